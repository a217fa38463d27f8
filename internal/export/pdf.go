package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"github.com/odyssey-erp/marketdesk/web"
)

// HTMLConverter turns an HTML document into PDF bytes.
type HTMLConverter interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

type pdfDocument struct {
	Table
	Generated  string
	RowsLabel  string
	EmptyLabel string
}

// PDFRenderer renders tables through the embedded report template.
type PDFRenderer struct {
	converter HTMLConverter
	formatter *Formatter
	tpl       *template.Template
}

// NewPDFRenderer parses the report template.
func NewPDFRenderer(converter HTMLConverter, formatter *Formatter) (*PDFRenderer, error) {
	tpl, err := template.ParseFS(web.Templates, "templates/reports/table.html")
	if err != nil {
		return nil, fmt.Errorf("export: parse report template: %w", err)
	}
	return &PDFRenderer{converter: converter, formatter: formatter, tpl: tpl}, nil
}

// HTML renders the table as an HTML document.
func (r *PDFRenderer) HTML(table Table) (string, error) {
	doc := pdfDocument{
		Table:      table,
		Generated:  r.formatter.DateTime(table.GeneratedAt),
		RowsLabel:  "baris",
		EmptyLabel: "Tidak ada data",
	}
	if base, _ := r.formatter.tag.Base(); base.String() != "id" {
		doc.RowsLabel = "rows"
		doc.EmptyLabel = "No data"
	}
	var buf bytes.Buffer
	if err := r.tpl.ExecuteTemplate(&buf, "table.html", doc); err != nil {
		return "", fmt.Errorf("export: render report: %w", err)
	}
	return buf.String(), nil
}

// Render converts the table into a PDF document.
func (r *PDFRenderer) Render(ctx context.Context, table Table) ([]byte, error) {
	if r == nil || r.converter == nil {
		return nil, errors.New("export: pdf renderer not configured")
	}
	html, err := r.HTML(table)
	if err != nil {
		return nil, err
	}
	pdf, err := r.converter.RenderHTML(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("export: convert report: %w", err)
	}
	return pdf, nil
}
