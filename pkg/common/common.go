package common

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	ENABLED  = "enabled"
	DISABLED = "disabled"
)

var snowflakeNode *snowflake.Node

func init() {
	var err error
	snowflakeNode, err = snowflake.NewNode(time.Now().UnixNano() % 1023)
	if err != nil {
		panic(err)
	}
}

// UUIDint64 returns a snowflake int64 id.
func UUIDint64() int64 {
	return snowflakeNode.Generate().Int64()
}

// UUID returns a snowflake id in base36 string form.
func UUID() string {
	return strings.ToLower(snowflakeNode.Generate().Base36())
}

// GetSecretSalt returns the password salt, overridable via environment.
func GetSecretSalt() string {
	if v, ok := os.LookupEnv("ZAPCRM_SECRET_SALT"); ok && v != "" {
		return v
	}
	return "zapcrm-fixed-salt"
}

// Sha256HashWithSalt hashes value with the given salt.
func Sha256HashWithSalt(value, salt string) string {
	sum := sha256.Sum256([]byte(value + salt))
	return hex.EncodeToString(sum[:])
}

// MustStartOfMonth returns the first day of t's month at midnight.
func MustStartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// FileExists reports whether path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
