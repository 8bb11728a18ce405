// Package importer loads leads in bulk from CSV exports. Rows land in the
// default kanban column; only the phone column is mandatory.
package importer

import (
	"fmt"
	"io"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"github.com/zapcrmio/zapcrm/internal/kanban"
	"gorm.io/gorm"
)

var ErrEmptyFile = errors.New("csv file has no data rows")

const insertBatchSize = 200

type csvRow struct {
	Name       string `csv:"name"`
	Phone      string `csv:"phone"`
	Email      string `csv:"email"`
	PersonType string `csv:"person_type"`
	Cpf        string `csv:"cpf"`
	Cnpj       string `csv:"cnpj"`
	BirthDate  string `csv:"birth_date"`
	Cep        string `csv:"cep"`
	Street     string `csv:"street"`
	Number     string `csv:"number"`
	District   string `csv:"district"`
	City       string `csv:"city"`
	State      string `csv:"state"`
	Notes      string `csv:"notes"`
}

// RowError records a rejected row and why it was rejected.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

type Result struct {
	Imported int        `json:"imported"`
	Skipped  []RowError `json:"skipped"`
}

type Importer struct {
	db     *gorm.DB
	kanban *kanban.Service
}

func NewImporter(db *gorm.DB, kb *kanban.Service) *Importer {
	return &Importer{db: db, kanban: kb}
}

// ImportLeads parses the CSV stream and inserts one lead per valid row.
// Rows without a phone are skipped and reported, never aborting the batch.
func (im *Importer) ImportLeads(userId int64, r io.Reader) (*Result, error) {
	var rows []*csvRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, errors.Wrap(err, "parse csv")
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	workspace, err := im.kanban.EnsureDefaultWorkspace(userId)
	if err != nil {
		return nil, err
	}
	column, err := im.kanban.EnsureDefaultColumn(userId, workspace.ID)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	var leads []domain.Lead
	for i, row := range rows {
		// line 1 is the header
		line := i + 2
		lead, reason := im.buildLead(userId, workspace.ID, column.ColumnId, row)
		if reason != "" {
			result.Skipped = append(result.Skipped, RowError{Line: line, Reason: reason})
			continue
		}
		leads = append(leads, *lead)
	}
	if len(leads) == 0 {
		return result, nil
	}

	if err := im.db.CreateInBatches(&leads, insertBatchSize).Error; err != nil {
		return nil, errors.Wrap(err, "insert leads")
	}
	result.Imported = len(leads)
	return result, nil
}

func (im *Importer) buildLead(userId, workspaceId int64, columnId string, row *csvRow) (*domain.Lead, string) {
	phone := normalizePhone(row.Phone)
	if phone == "" {
		return nil, "missing phone"
	}

	personType := strings.ToUpper(strings.TrimSpace(row.PersonType))
	switch personType {
	case "":
		personType = domain.PersonTypePF
	case domain.PersonTypePF, domain.PersonTypePJ:
	default:
		return nil, fmt.Sprintf("invalid person_type %q", row.PersonType)
	}

	lead := &domain.Lead{
		UserId:      userId,
		WorkspaceId: workspaceId,
		ColumnId:    columnId,
		Name:        strings.TrimSpace(row.Name),
		Phone:       phone,
		Email:       strings.TrimSpace(row.Email),
		PersonType:  personType,
		Cpf:         strings.TrimSpace(row.Cpf),
		Cnpj:        strings.TrimSpace(row.Cnpj),
		Cep:         strings.TrimSpace(row.Cep),
		Street:      strings.TrimSpace(row.Street),
		Number:      strings.TrimSpace(row.Number),
		District:    strings.TrimSpace(row.District),
		City:        strings.TrimSpace(row.City),
		State:       strings.ToUpper(strings.TrimSpace(row.State)),
		Notes:       row.Notes,
		Source:      "csv",
	}

	// Exports disagree wildly on date formats; an unparseable birth date
	// is dropped rather than failing the row.
	if raw := strings.TrimSpace(row.BirthDate); raw != "" {
		if t, err := dateparse.ParseAny(raw); err == nil {
			lead.BirthDate = &t
		}
	}
	return lead, ""
}

// normalizePhone keeps digits and a single leading plus sign.
func normalizePhone(raw string) string {
	var b strings.Builder
	for i, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "+" {
		return ""
	}
	return s
}
