// Package report renders period closing documents to PDF through Gotenberg.
package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/periodclose/internal/close"
	"github.com/odyssey-erp/periodclose/web"
)

// Converter turns HTML into PDF bytes.
type Converter interface {
	RenderHTML(ctx context.Context, html string, page PageOptions) ([]byte, error)
}

// Renderer produces closing summary documents.
type Renderer struct {
	converter Converter
	tmpl      *template.Template
	now       func() time.Time
}

// NewRenderer parses the embedded templates.
func NewRenderer(converter Converter) (*Renderer, error) {
	tmpl, err := template.New("closing_summary.html").Funcs(template.FuncMap{
		"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
		"date":  func(t time.Time) string { return t.Format("2006-01-02") },
		"datetime": func(t time.Time) string {
			return t.UTC().Format("2006-01-02 15:04 MST")
		},
	}).ParseFS(web.Templates, "templates/report/closing_summary.html")
	if err != nil {
		return nil, fmt.Errorf("report: parse templates: %w", err)
	}
	return &Renderer{converter: converter, tmpl: tmpl, now: time.Now}, nil
}

type summaryView struct {
	close.ClosingSummary
	GeneratedAt time.Time
}

// ClosingSummaryHTML renders the summary as a standalone HTML page.
func (r *Renderer) ClosingSummaryHTML(summary close.ClosingSummary) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, summaryView{ClosingSummary: summary, GeneratedAt: r.now()}); err != nil {
		return "", fmt.Errorf("report: render closing summary: %w", err)
	}
	return buf.String(), nil
}

// ClosingSummaryPDF renders the summary and converts it to PDF.
func (r *Renderer) ClosingSummaryPDF(ctx context.Context, summary close.ClosingSummary) ([]byte, error) {
	html, err := r.ClosingSummaryHTML(summary)
	if err != nil {
		return nil, err
	}
	return r.converter.RenderHTML(ctx, html, A4Portrait)
}
