package adminapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"github.com/zapcrmio/zapcrm/internal/webserver"
	"github.com/zapcrmio/zapcrm/pkg/common"
	"go.uber.org/zap"
)

const tokenTTL = 24 * time.Hour

type loginPayload struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type profilePayload struct {
	Realname string `json:"realname"`
	Mobile   string `json:"mobile"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func registerAuthRoutes() {
	webserver.PubPOST("/login", login)
	webserver.ApiGET("/profile", getProfile)
	webserver.ApiPUT("/profile", updateProfile)
	webserver.ApiGET("/system/oprlog", listOprLog)
}

func login(c echo.Context) error {
	var payload loginPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse credentials", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Username and password are required", nil)
	}

	var opr domain.SysOpr
	err := GetDB(c).Where("username = ?", strings.TrimSpace(payload.Username)).First(&opr).Error
	if err != nil {
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password", nil)
	}
	if opr.Status != common.ENABLED {
		return fail(c, http.StatusForbidden, "ACCOUNT_DISABLED", "Account is disabled", nil)
	}
	hashed := common.Sha256HashWithSalt(payload.Password, common.GetSecretSalt())
	if hashed != opr.Password {
		zap.L().Warn("login failed", zap.String("username", payload.Username), zap.String("ip", c.RealIP()))
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password", nil)
	}

	now := time.Now()
	// uid travels as a string: JSON claim decoding yields float64, which
	// clips snowflake ids above 2^53
	claims := jwt.MapClaims{
		"uid": strconv.FormatInt(opr.ID, 10),
		"usr": opr.Username,
		"lvl": opr.Level,
		"iat": now.Unix(),
		"exp": now.Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(GetAppContext(c).Config().Web.JwtSecret))
	if err != nil {
		return fail(c, http.StatusInternalServerError, "TOKEN_ERROR", "Failed to sign token", err.Error())
	}

	GetDB(c).Model(&domain.SysOpr{}).Where("id = ?", opr.ID).Update("last_login", now)
	GetDB(c).Create(&domain.SysOprLog{
		ID:        common.UUIDint64(),
		OprName:   opr.Username,
		OprIp:     c.RealIP(),
		OptAction: "login",
		OptDesc:   "operator login",
		OptTime:   now,
	})

	opr.Password = ""
	return ok(c, map[string]interface{}{
		"token":    signed,
		"operator": opr,
	})
}

func getProfile(c echo.Context) error {
	var opr domain.SysOpr
	if err := GetDB(c).Where("id = ?", currentOprId(c)).First(&opr).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Operator not found", nil)
	}
	opr.Password = ""
	return ok(c, opr)
}

func updateProfile(c echo.Context) error {
	var payload profilePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse profile", err.Error())
	}

	updates := map[string]interface{}{"updated_at": time.Now()}
	if v := strings.TrimSpace(payload.Realname); v != "" {
		updates["realname"] = v
	}
	if v := strings.TrimSpace(payload.Mobile); v != "" {
		updates["mobile"] = v
	}
	if v := strings.TrimSpace(payload.Email); v != "" {
		updates["email"] = v
	}
	if payload.Password != "" {
		updates["password"] = common.Sha256HashWithSalt(payload.Password, common.GetSecretSalt())
	}

	if err := GetDB(c).Model(&domain.SysOpr{}).
		Where("id = ?", currentOprId(c)).Updates(updates).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update profile", err.Error())
	}
	writeOprLog(c, "profile_update", "operator profile updated")
	return ok(c, map[string]interface{}{"updated": true})
}

func listOprLog(c echo.Context) error {
	if currentOprLevel(c) != "super" {
		return fail(c, http.StatusForbidden, "FORBIDDEN", "Super level required", nil)
	}
	page, perPage := parsePagination(c)

	db := GetDB(c).Model(&domain.SysOprLog{})
	if name := strings.TrimSpace(c.QueryParam("opr_name")); name != "" {
		db = db.Where("opr_name = ?", name)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query logs", err.Error())
	}
	var rows []domain.SysOprLog
	if err := db.Order("opt_time DESC").Offset((page - 1) * perPage).Limit(perPage).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query logs", err.Error())
	}
	return paged(c, rows, total, page, perPage)
}
