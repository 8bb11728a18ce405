package adminapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

// Snowflake ids exceed 2^53, so a numeric uid claim would come back from
// JSON decoding as a clipped float64. The claim is issued as a string and
// must survive the round trip bit-exact.
func TestCurrentOprIdKeepsSnowflakePrecision(t *testing.T) {
	const id int64 = 9007199254740993 // 2^53 + 1

	issued := jwt.MapClaims{
		"uid": strconv.FormatInt(id, 10),
		"usr": "maria",
		"lvl": "opr",
	}
	raw, err := json.Marshal(issued)
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}
	var decoded jwt.MapClaims
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal claims: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.Set("user", &jwt.Token{Claims: decoded})

	if got := currentOprId(c); got != id {
		t.Errorf("currentOprId = %d, want %d", got, id)
	}
	if got := currentOprName(c); got != "maria" {
		t.Errorf("currentOprName = %q", got)
	}
	if got := currentOprLevel(c); got != "opr" {
		t.Errorf("currentOprLevel = %q", got)
	}
}
