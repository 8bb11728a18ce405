package importer

import (
	"errors"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"github.com/zapcrmio/zapcrm/internal/kanban"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testImporter(t *testing.T) (*Importer, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(domain.Tables...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewImporter(db, kanban.NewService(db)), db
}

func TestImportLeads(t *testing.T) {
	im, db := testImporter(t)

	csv := strings.Join([]string{
		"name,phone,email,person_type,cpf,birth_date,city,state",
		"Maria Silva,(11) 98888-7777,maria@example.com,pf,123.456.789-00,1990-04-12,Campinas,sp",
		"Acme Ltda,+55 11 3333-2222,contato@acme.com.br,PJ,,,São Paulo,SP",
		"Sem Telefone,,ghost@example.com,PF,,,Santos,SP",
		"João,11 97777-1111,,,,12/31/1985,,",
	}, "\n")

	result, err := im.ImportLeads(1, strings.NewReader(csv))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Imported != 3 {
		t.Fatalf("imported = %d, want 3", result.Imported)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Line != 4 || result.Skipped[0].Reason != "missing phone" {
		t.Fatalf("skipped = %+v, want line 4 missing phone", result.Skipped)
	}

	var maria domain.Lead
	if err := db.Where("name = ?", "Maria Silva").First(&maria).Error; err != nil {
		t.Fatalf("load maria: %v", err)
	}
	if maria.Phone != "11988887777" {
		t.Errorf("phone = %q, want digits only", maria.Phone)
	}
	if maria.PersonType != domain.PersonTypePF {
		t.Errorf("person_type = %q, want PF (uppercased)", maria.PersonType)
	}
	if maria.State != "SP" {
		t.Errorf("state = %q, want SP", maria.State)
	}
	if maria.BirthDate == nil || maria.BirthDate.Year() != 1990 {
		t.Errorf("birth_date = %v, want 1990-04-12", maria.BirthDate)
	}
	if maria.ColumnId != domain.DefaultColumnId {
		t.Errorf("column = %q, imported leads must land in the default column", maria.ColumnId)
	}
	if maria.Source != "csv" {
		t.Errorf("source = %q, want csv", maria.Source)
	}

	var acme domain.Lead
	db.Where("name = ?", "Acme Ltda").First(&acme)
	if acme.Phone != "+551133332222" {
		t.Errorf("acme phone = %q, want leading plus kept", acme.Phone)
	}
	if acme.PersonType != domain.PersonTypePJ {
		t.Errorf("acme person_type = %q, want PJ", acme.PersonType)
	}

	var joao domain.Lead
	db.Where("name = ?", "João").First(&joao)
	if joao.PersonType != domain.PersonTypePF {
		t.Errorf("blank person_type must default to PF, got %q", joao.PersonType)
	}
	if joao.BirthDate == nil || joao.BirthDate.Year() != 1985 {
		t.Errorf("US-format birth date not parsed: %v", joao.BirthDate)
	}
}

func TestImportRejectsBadPersonType(t *testing.T) {
	im, _ := testImporter(t)
	csv := "name,phone,person_type\nX,11911112222,XX\n"
	result, err := im.ImportLeads(1, strings.NewReader(csv))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Imported != 0 || len(result.Skipped) != 1 {
		t.Fatalf("result = %+v, want one skipped row", result)
	}
}

func TestImportEmptyFile(t *testing.T) {
	im, _ := testImporter(t)
	_, err := im.ImportLeads(1, strings.NewReader("name,phone\n"))
	if !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("expected ErrEmptyFile, got %v", err)
	}
}

func TestImportUnparseableBirthDateDropped(t *testing.T) {
	im, db := testImporter(t)
	csv := "name,phone,birth_date\nY,11922223333,not-a-date\n"
	result, err := im.ImportLeads(1, strings.NewReader(csv))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Imported != 1 {
		t.Fatalf("imported = %d, want 1", result.Imported)
	}
	var lead domain.Lead
	db.Where("name = ?", "Y").First(&lead)
	if lead.BirthDate != nil {
		t.Errorf("birth_date = %v, want nil for garbage input", lead.BirthDate)
	}
}
