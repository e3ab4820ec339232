// Package letters renders certification letters: the two-pass generation
// driven by finalize, the on-demand regeneration path, and the signed
// download PDF.
package letters

import (
	"context"
	"fmt"

	"github.com/pzse-platform/iebc-backend/internal/auth"
	"github.com/pzse-platform/iebc-backend/internal/projects/domain"
)

// ViewContext is the data a letter template renders from.
type ViewContext struct {
	Project *domain.Project
	ATC     any
	User    auth.Actor
	Stamp   string
	WsOn    bool
}

// GeneratedLetter describes one rendered artifact.
type GeneratedLetter struct {
	FileName string
	Key      string
	Signed   bool
}

// Generator renders one letter variant per call to durable storage. The
// finalize workflow invokes it twice per operation, signed then unsigned
// stamp, sharing one generation id so both artifacts correlate.
type Generator struct {
	templates *Templates
	pdf       PDFRenderer
	store     ObjectStore
}

func NewGenerator(templates *Templates, pdf PDFRenderer, store ObjectStore) *Generator {
	return &Generator{templates: templates, pdf: pdf, store: store}
}

// Generate renders the letter for the view context and stores it under
// the project's letters path.
func (g *Generator) Generate(ctx context.Context, p *domain.Project, view ViewContext, regenerated bool, sharedID string, signed bool) (*GeneratedLetter, error) {
	html, err := g.templates.Render("letter.html", view)
	if err != nil {
		return nil, err
	}

	pdfBytes, err := g.pdf.RenderPDF(ctx, html)
	if err != nil {
		return nil, err
	}

	variant := "print"
	if signed {
		variant = "signed"
	}
	prefix := "IEBC-Letter"
	if regenerated {
		prefix = "IEBC-Letter-Regenerated"
	}

	letter := &GeneratedLetter{
		FileName: fmt.Sprintf("%s-%s-%s.pdf", prefix, sharedID, variant),
		Signed:   signed,
	}
	letter.Key = fmt.Sprintf("active/%d/letters/%s", p.ID, letter.FileName)

	if err := g.store.Put(ctx, letter.Key, pdfBytes, "application/pdf"); err != nil {
		return nil, err
	}
	return letter, nil
}

// RenderPDF renders the letter for the view context without storing it.
// The download path signs and streams the bytes itself.
func (g *Generator) RenderPDF(ctx context.Context, view ViewContext) ([]byte, error) {
	html, err := g.templates.Render("letter.html", view)
	if err != nil {
		return nil, err
	}
	return g.pdf.RenderPDF(ctx, html)
}

// PreviewHTML renders the preview markup returned to the wizard after a
// successful finalize.
func (g *Generator) PreviewHTML(view ViewContext) (string, error) {
	return g.templates.Render("preview.html", view)
}
