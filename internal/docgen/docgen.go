// Package docgen renders printable documents: the order PDF handed to the
// client and the monthly financial report in PDF and XLSX form.
package docgen

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/go-pdf/fpdf"
	"github.com/zapcrmio/zapcrm/internal/billing"
	"github.com/zapcrmio/zapcrm/internal/domain"
)

// CompanyHeader is printed at the top of every generated document.
type CompanyHeader struct {
	Name    string
	TaxId   string
	Address string
	Phone   string
}

type Generator struct {
	header CompanyHeader
}

func NewGenerator(header CompanyHeader) *Generator {
	if header.Name == "" {
		header.Name = "ZapCRM"
	}
	return &Generator{header: header}
}

// OrderPDFName builds the download filename, e.g. pedido_maria_silva_20260831143000.pdf.
func OrderPDFName(clientName string, at time.Time) string {
	return fmt.Sprintf("pedido_%s_%s.pdf", slugify(clientName), at.Format("20060102150405"))
}

// ReportPDFName builds the monthly report filename, e.g. relatorio_2026_08.pdf.
func ReportPDFName(month time.Time) string {
	return fmt.Sprintf("relatorio_%s.pdf", month.Format("2006_01"))
}

func ReportXLSXName(month time.Time) string {
	return fmt.Sprintf("relatorio_%s.xlsx", month.Format("2006_01"))
}

// OrderPDF writes the order as an A4 document: company header, client
// block, one row per item and the totals box.
func (g *Generator) OrderPDF(w io.Writer, order *domain.Order) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	g.writeHeader(pdf, tr, fmt.Sprintf("Pedido #%d", order.ID))

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr("Cliente: "+order.ClientName), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("Data: "+order.CreatedAt.Format("02/01/2006 15:04")), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("Status: "+order.Status), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(70, 7, tr("Item"), "1", 0, "L", true, 0, "")
	pdf.CellFormat(15, 7, "Qtd", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, tr("Dimensões"), "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 7, tr("Preço"), "1", 0, "R", true, 0, "")
	pdf.CellFormat(40, 7, "Subtotal", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, item := range order.Items {
		dims := "-"
		if item.Width > 0 && item.Height > 0 {
			dims = fmt.Sprintf("%.2f x %.2f m", item.Width, item.Height)
		}
		pdf.CellFormat(70, 7, tr(item.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(15, 7, fmt.Sprintf("%d", item.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 7, dims, "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 7, tr(formatBRL(item.Price)), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 7, tr(formatBRL(item.Subtotal)), "1", 1, "R", false, 0, "")
	}

	pdf.Ln(4)
	gross := 0.0
	for _, item := range order.Items {
		gross += item.Subtotal
	}
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(150, 6, "Soma dos itens", "", 0, "R", false, 0, "")
	pdf.CellFormat(40, 6, tr(formatBRL(gross)), "", 1, "R", false, 0, "")
	if order.Discount > 0 {
		pdf.CellFormat(150, 6, tr(fmt.Sprintf("Desconto (%.1f%%)", order.Discount)), "", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, tr("-"+formatBRL(gross-order.TotalAmount)), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(150, 8, "Total", "", 0, "R", false, 0, "")
	pdf.CellFormat(40, 8, tr(formatBRL(order.TotalAmount)), "", 1, "R", false, 0, "")

	if order.Notes != "" {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(0, 5, tr("Obs: "+order.Notes), "", "L", false)
	}

	return pdf.Output(w)
}

// ReportPDF writes the monthly bill report: totals block plus one row per
// bill with its derived status.
func (g *Generator) ReportPDF(w io.Writer, summary *billing.MonthSummary) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	g.writeHeader(pdf, tr, tr("Relatório financeiro - "+summary.Month.Format("01/2006")))

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr("Total do mês: "+formatBRL(summary.TotalAmount)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("Pago: "+formatBRL(summary.TotalPaid)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("Pendente: "+formatBRL(summary.TotalPending)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("Atrasado: "+formatBRL(summary.TotalOverdue)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(80, 7, tr("Conta"), "1", 0, "L", true, 0, "")
	pdf.CellFormat(35, 7, "Vencimento", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 7, "Valor", "1", 0, "R", true, 0, "")
	pdf.CellFormat(40, 7, "Status", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for i := range summary.Bills {
		bill := &summary.Bills[i]
		title := bill.Title
		if bill.TotalInstallments > 0 {
			title = fmt.Sprintf("%s (%d/%d)", title, bill.CurrentInstallment, bill.TotalInstallments)
		}
		pdf.CellFormat(80, 7, tr(title), "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 7, bill.DueDate.Format("02/01/2006"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 7, tr(formatBRL(bill.Amount)), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 7, bill.Status, "1", 1, "C", false, 0, "")
	}

	return pdf.Output(w)
}

// ReportXLSX writes the same monthly report as a spreadsheet.
func (g *Generator) ReportXLSX(w io.Writer, summary *billing.MonthSummary) error {
	f := excelize.NewFile()
	sheet := "Sheet1"

	f.SetCellValue(sheet, "A1", g.header.Name)
	f.SetCellValue(sheet, "A2", "Relatório financeiro "+summary.Month.Format("01/2006"))

	headers := []string{"Conta", "Vencimento", "Valor", "Status", "Parcela"}
	for i, h := range headers {
		f.SetCellValue(sheet, fmt.Sprintf("%c4", 'A'+i), h)
	}
	for i := range summary.Bills {
		bill := &summary.Bills[i]
		row := 5 + i
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), bill.Title)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), bill.DueDate.Format("02/01/2006"))
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), bill.Amount)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), bill.Status)
		if bill.TotalInstallments > 0 {
			f.SetCellValue(sheet, fmt.Sprintf("E%d", row),
				fmt.Sprintf("%d/%d", bill.CurrentInstallment, bill.TotalInstallments))
		}
	}

	totalsRow := 6 + len(summary.Bills)
	f.SetCellValue(sheet, fmt.Sprintf("A%d", totalsRow), "Total")
	f.SetCellValue(sheet, fmt.Sprintf("C%d", totalsRow), summary.TotalAmount)
	f.SetCellValue(sheet, fmt.Sprintf("A%d", totalsRow+1), "Pago")
	f.SetCellValue(sheet, fmt.Sprintf("C%d", totalsRow+1), summary.TotalPaid)
	f.SetCellValue(sheet, fmt.Sprintf("A%d", totalsRow+2), "Pendente")
	f.SetCellValue(sheet, fmt.Sprintf("C%d", totalsRow+2), summary.TotalPending)
	f.SetCellValue(sheet, fmt.Sprintf("A%d", totalsRow+3), "Atrasado")
	f.SetCellValue(sheet, fmt.Sprintf("C%d", totalsRow+3), summary.TotalOverdue)

	return f.Write(w)
}

func (g *Generator) writeHeader(pdf *fpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, tr(g.header.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	if g.header.TaxId != "" {
		pdf.CellFormat(0, 5, tr("CNPJ: "+g.header.TaxId), "", 1, "L", false, 0, "")
	}
	if g.header.Address != "" {
		pdf.CellFormat(0, 5, tr(g.header.Address), "", 1, "L", false, 0, "")
	}
	if g.header.Phone != "" {
		pdf.CellFormat(0, 5, tr(g.header.Phone), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, tr(title), "", 1, "L", false, 0, "")
	pdf.Ln(2)
}

// formatBRL renders 1234.5 as "R$ 1.234,50".
func formatBRL(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	parts := strings.SplitN(s, ".", 2)
	intPart, decPart := parts[0], parts[1]

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := "R$ " + b.String() + "," + decPart
	if neg {
		out = "R$ -" + b.String() + "," + decPart
	}
	return out
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case deaccent(r) != 0:
			b.WriteRune(deaccent(r))
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "cliente"
	}
	return out
}

func deaccent(r rune) rune {
	switch r {
	case 'á', 'à', 'â', 'ã', 'ä':
		return 'a'
	case 'é', 'è', 'ê', 'ë':
		return 'e'
	case 'í', 'ì', 'î', 'ï':
		return 'i'
	case 'ó', 'ò', 'ô', 'õ', 'ö':
		return 'o'
	case 'ú', 'ù', 'û', 'ü':
		return 'u'
	case 'ç':
		return 'c'
	case 'ñ':
		return 'n'
	}
	return 0
}
