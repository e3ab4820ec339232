package letters

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"

	wkhtmltopdf "github.com/SebastiaanKlippert/go-wkhtmltopdf"

	"github.com/pzse-platform/iebc-backend/config"
)

// Templates renders letter and preview markup from on-disk HTML
// templates.
type Templates struct {
	tpl *template.Template
}

func LoadTemplates(dir string) (*Templates, error) {
	tpl, err := template.ParseGlob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Templates{tpl: tpl}, nil
}

func (t *Templates) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.tpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// PDFRenderer turns rendered HTML into PDF bytes.
type PDFRenderer interface {
	RenderPDF(ctx context.Context, html string) ([]byte, error)
}

// WkhtmlRenderer shells out to wkhtmltopdf with the letter print
// settings (Letter paper, 300 dpi, 0.25/0.5 inch margins).
type WkhtmlRenderer struct {
	devMode bool
}

func NewWkhtmlRenderer(cfg config.PDFConfig) *WkhtmlRenderer {
	if cfg.WkhtmltopdfPath != "" {
		wkhtmltopdf.SetPath(cfg.WkhtmltopdfPath)
	}
	return &WkhtmlRenderer{devMode: cfg.DevMode}
}

func (r *WkhtmlRenderer) RenderPDF(ctx context.Context, html string) ([]byte, error) {
	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("pdf generator: %w", err)
	}

	pdfg.PageSize.Set(wkhtmltopdf.PageSizeLetter)
	pdfg.Dpi.Set(300)
	pdfg.MarginTop.Set(6)     // 0.25in
	pdfg.MarginBottom.Set(6)  // 0.25in
	pdfg.MarginLeft.Set(13)   // 0.5in
	pdfg.MarginRight.Set(13)  // 0.5in

	page := wkhtmltopdf.NewPageReader(strings.NewReader(html))
	// Smart shrinking distorts the stamp placement on production
	// letters; only the dev preview keeps it on.
	page.DisableSmartShrinking.Set(!r.devMode)
	pdfg.AddPage(page)

	if err := pdfg.CreateContext(ctx); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return pdfg.Bytes(), nil
}
