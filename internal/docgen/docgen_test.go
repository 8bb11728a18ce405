package docgen

import (
	"bytes"
	"testing"
	"time"

	"github.com/zapcrmio/zapcrm/internal/billing"
	"github.com/zapcrmio/zapcrm/internal/domain"
)

func TestOrderPDFName(t *testing.T) {
	at := time.Date(2026, 8, 31, 14, 30, 0, 0, time.UTC)
	got := OrderPDFName("Maria João & Cia.", at)
	want := "pedido_maria_joao_cia_20260831143000.pdf"
	if got != want {
		t.Errorf("name = %q, want %q", got, want)
	}
	if got := OrderPDFName("", at); got != "pedido_cliente_20260831143000.pdf" {
		t.Errorf("empty client name = %q", got)
	}
}

func TestReportNames(t *testing.T) {
	month := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if got := ReportPDFName(month); got != "relatorio_2026_08.pdf" {
		t.Errorf("pdf name = %q", got)
	}
	if got := ReportXLSXName(month); got != "relatorio_2026_08.xlsx" {
		t.Errorf("xlsx name = %q", got)
	}
}

func TestFormatBRL(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "R$ 0,00"},
		{54, "R$ 54,00"},
		{1234.5, "R$ 1.234,50"},
		{1234567.89, "R$ 1.234.567,89"},
		{-9.9, "R$ -9,90"},
	}
	for _, c := range cases {
		if got := formatBRL(c.in); got != c.want {
			t.Errorf("formatBRL(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func sampleOrder() *domain.Order {
	return &domain.Order{
		ID:          42,
		ClientName:  "Maria Silva",
		Status:      domain.OrderStatusQuote,
		Discount:    10,
		TotalAmount: 54,
		Notes:       "Entrega até sexta",
		CreatedAt:   time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC),
		Items: []domain.OrderItem{
			{Name: "Banner lona", Quantity: 2, Price: 10, Width: 1.5, Height: 2, Subtotal: 60},
		},
	}
}

func TestOrderPDF(t *testing.T) {
	g := NewGenerator(CompanyHeader{Name: "Gráfica Exemplo", TaxId: "12.345.678/0001-00"})
	var buf bytes.Buffer
	if err := g.OrderPDF(&buf, sampleOrder()); err != nil {
		t.Fatalf("order pdf: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Errorf("output does not start with %%PDF header")
	}
}

func sampleSummary() *billing.MonthSummary {
	return &billing.MonthSummary{
		Month: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Bills: []domain.Bill{
			{Title: "Aluguel", Amount: 1000, Status: domain.BillStatusPaid,
				DueDate: time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC)},
			{Title: "Internet", Amount: 200, Status: domain.BillStatusOverdue,
				DueDate:            time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
				CurrentInstallment: 2, TotalInstallments: 12},
		},
		TotalAmount: 1200, TotalPaid: 1000, TotalOverdue: 200,
	}
}

func TestReportPDF(t *testing.T) {
	g := NewGenerator(CompanyHeader{Name: "Gráfica Exemplo"})
	var buf bytes.Buffer
	if err := g.ReportPDF(&buf, sampleSummary()); err != nil {
		t.Fatalf("report pdf: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Errorf("output does not start with %%PDF header")
	}
}

func TestReportXLSX(t *testing.T) {
	g := NewGenerator(CompanyHeader{})
	var buf bytes.Buffer
	if err := g.ReportXLSX(&buf, sampleSummary()); err != nil {
		t.Fatalf("report xlsx: %v", err)
	}
	// xlsx files are zip archives
	if !bytes.HasPrefix(buf.Bytes(), []byte("PK")) {
		t.Errorf("output is not a zip archive")
	}
}
