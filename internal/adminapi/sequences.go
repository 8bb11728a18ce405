package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"github.com/zapcrmio/zapcrm/internal/remarketing"
	"github.com/zapcrmio/zapcrm/internal/webserver"
	"github.com/zapcrmio/zapcrm/pkg/common"
	"gorm.io/gorm"
)

type sequencePayload struct {
	Name         string                  `json:"name" validate:"required,min=1,max=200"`
	InstanceName string                  `json:"instance_name"`
	Status       string                  `json:"status" validate:"omitempty,oneof=rascunho ativo inativo"`
	Steps        []remarketing.StepInput `json:"steps" validate:"required,min=1"`
}

func registerSequenceRoutes() {
	webserver.ApiGET("/crm/sequences", listSequences)
	webserver.ApiGET("/crm/sequences/:id", getSequence)
	webserver.ApiPOST("/crm/sequences", createSequence)
	webserver.ApiPUT("/crm/sequences/:id", updateSequence)
	webserver.ApiDELETE("/crm/sequences/:id", deleteSequence)
}

func listSequences(c echo.Context) error {
	page, perPage := parsePagination(c)

	db := GetDB(c).Model(&domain.RemarketingSequence{}).Where("user_id = ?", currentOprId(c))
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		db = db.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%")
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query sequences", err.Error())
	}
	var rows []domain.RemarketingSequence
	if err := db.Preload("Steps", func(db *gorm.DB) *gorm.DB {
		return db.Order("step_order ASC")
	}).Order("created_at DESC").Offset((page - 1) * perPage).Limit(perPage).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query sequences", err.Error())
	}
	return paged(c, rows, total, page, perPage)
}

func getSequence(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid sequence ID", nil)
	}
	svc := remarketing.NewService(GetDB(c))
	seq, err := svc.Get(currentOprId(c), id)
	if err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Sequence not found", nil)
	}
	return ok(c, seq)
}

func saveSequence(c echo.Context, seq *domain.RemarketingSequence) error {
	var payload sequencePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse sequence", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Name and at least one step are required", nil)
	}

	userId := currentOprId(c)
	svc := remarketing.NewService(GetDB(c))
	if err := svc.Validate(userId, payload.InstanceName, payload.Steps); err != nil {
		switch err {
		case remarketing.ErrStepMissingFlow:
			return fail(c, http.StatusBadRequest, "INVALID_STEP", "Every step must reference a flow", nil)
		case remarketing.ErrInstanceRequired:
			return fail(c, http.StatusBadRequest, "INSTANCE_REQUIRED", "An instance must be selected", nil)
		default:
			return fail(c, http.StatusBadRequest, "INVALID_SEQUENCE", "Sequence rejected", err.Error())
		}
	}

	seq.UserId = userId
	seq.Name = strings.TrimSpace(payload.Name)
	seq.InstanceName = payload.InstanceName
	if payload.Status != "" {
		seq.Status = payload.Status
	} else if seq.Status == "" {
		seq.Status = domain.SequenceStatusDraft
	}
	seq.UpdatedAt = time.Now()

	if err := svc.Save(userId, seq, payload.Steps); err != nil {
		if err == remarketing.ErrSequenceNotFound {
			return fail(c, http.StatusNotFound, "NOT_FOUND", "Sequence not found", nil)
		}
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to save sequence", err.Error())
	}
	return ok(c, seq)
}

func createSequence(c echo.Context) error {
	seq := &domain.RemarketingSequence{ID: common.UUIDint64()}
	return saveSequence(c, seq)
}

func updateSequence(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid sequence ID", nil)
	}
	svc := remarketing.NewService(GetDB(c))
	seq, err := svc.Get(currentOprId(c), id)
	if err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Sequence not found", nil)
	}
	return saveSequence(c, seq)
}

func deleteSequence(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid sequence ID", nil)
	}
	userId := currentOprId(c)

	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND user_id = ?", id, userId).Delete(&domain.RemarketingSequence{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return remarketing.ErrSequenceNotFound
		}
		return tx.Where("sequence_id = ?", id).Delete(&domain.RemarketingStep{}).Error
	})
	switch {
	case err == remarketing.ErrSequenceNotFound:
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Sequence not found", nil)
	case err != nil:
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete sequence", err.Error())
	}
	writeOprLog(c, "sequence_delete", "remarketing sequence removed")
	return ok(c, map[string]interface{}{"id": id})
}
