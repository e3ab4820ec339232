package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/pzse-platform/iebc-backend/internal/auth"
	"github.com/pzse-platform/iebc-backend/internal/letters"
	"github.com/pzse-platform/iebc-backend/internal/lookup"
	"github.com/pzse-platform/iebc-backend/internal/projects/domain"
)

// LookupOutcome is the response of the preview lookup endpoint. Exactly
// one of FieldErrors, Message and Preview is set.
type LookupOutcome struct {
	FieldErrors map[string]string
	Message     string
	Preview     *PreviewPayload
}

// LookupPreview re-runs validation and lookup for the preview endpoint
// without generating or charging anything.
func (s *Service) LookupPreview(ctx context.Context, actor auth.Actor, projectID int64) (*LookupOutcome, error) {
	p, err := s.store.ProjectWithMeta(ctx, projectID)
	if err != nil {
		return nil, s.classify(err)
	}

	sel, names, err := s.metaSelection(ctx, p)
	if err != nil {
		return nil, s.classify(err)
	}
	if res := s.validator.Validate(sel, names); !res.OK() {
		return &LookupOutcome{FieldErrors: res.FieldErrors}, nil
	}

	res, err := s.resolver.DoLookup(ctx, p)
	if err != nil {
		return nil, s.classify(err)
	}
	if !res.Resolved() {
		return &LookupOutcome{Message: res.Message}, nil
	}

	stamp, found, err := s.stamps.FilesByState(ctx, p.State)
	if err != nil {
		return nil, s.classify(err)
	}
	if !found {
		return nil, s.classify(fmt.Errorf("no stamp configured for state %s", p.State))
	}

	view := letters.ViewContext{Project: p, ATC: displayValues(res.Values), User: actor, Stamp: stamp.Signed}
	html, err := s.generator.PreviewHTML(view)
	if err != nil {
		return nil, s.classify(err)
	}

	return &LookupOutcome{Preview: &PreviewPayload{
		View:                  html,
		ProjectID:             p.ID,
		LookupData:            res.Values,
		Stamp:                 stamp.Signed,
		StampWithoutSignature: stamp.Unsigned,
	}}, nil
}

// RegeneratePDF re-renders both letter variants for an already reviewed
// project using engineer values, where recorded overrides win over the
// lookup. The project is marked regenerated so the artifacts carry the
// regenerated file prefix.
func (s *Service) RegeneratePDF(ctx context.Context, actor auth.Actor, projectID int64) error {
	err := s.store.InTx(ctx, func(ctx context.Context) error {
		p, err := s.store.ProjectWithMeta(ctx, projectID)
		if err != nil {
			return err
		}

		loc, err := s.resolver.CheckLocation(ctx, p)
		if err != nil {
			return err
		}
		ov, err := s.store.ProjectOverrides(ctx, p.ID)
		if err != nil {
			return err
		}
		values, err := s.resolver.DoLookupEngineerValues(ctx, p, overrideFor(ov))
		if err != nil {
			return err
		}

		// The stamp follows the authoritative state the address resolves
		// to, not what the client typed.
		stampState := p.State
		if loc.State != "" {
			stampState = loc.State
		}
		stamp, found, err := s.stamps.FilesByState(ctx, stampState)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no stamp configured for state %s", stampState)
		}

		if err := s.store.SetLetterRegenerated(ctx, p.ID); err != nil {
			return err
		}
		p.IsLetterRegenerated = true

		wsOn := p.Meta != nil && p.Meta.WetSignRequested == domain.WetSignRequested
		sharedID := uuid.NewString()

		signedView := letters.ViewContext{Project: p, ATC: values, User: actor, Stamp: stamp.Signed}
		if err := s.generateAndRecord(ctx, actor, p, signedView, sharedID, true); err != nil {
			return err
		}
		printView := letters.ViewContext{Project: p, ATC: values, User: actor, Stamp: stamp.Unsigned, WsOn: wsOn}
		return s.generateAndRecord(ctx, actor, p, printView, sharedID, false)
	})
	if err != nil {
		return s.classify(err)
	}
	return nil
}

// DownloadPDF renders, signs and returns the letter on demand. It never
// touches durable storage; everything happens in the scratch directory,
// which is cleared before any work starts.
func (s *Service) DownloadPDF(ctx context.Context, actor auth.Actor, projectID int64) (*FileDownload, error) {
	if err := s.scratch.Clean(); err != nil {
		return nil, s.classify(err)
	}

	p, err := s.store.ProjectWithMeta(ctx, projectID)
	if err != nil {
		return nil, s.classify(err)
	}

	ov, err := s.store.ProjectOverrides(ctx, p.ID)
	if err != nil {
		return nil, s.classify(err)
	}
	values, err := s.resolver.DoLookupEngineerValues(ctx, p, overrideFor(ov))
	if err != nil {
		return nil, s.classify(err)
	}

	stamp, found, err := s.stamps.FilesByState(ctx, p.State)
	if err != nil {
		return nil, s.classify(err)
	}
	if !found {
		return nil, s.classify(fmt.Errorf("no stamp configured for state %s", p.State))
	}

	wsOn := p.Meta != nil && p.Meta.WetSignRequested == domain.WetSignRequested
	stampFile := stamp.Signed
	if wsOn {
		stampFile = stamp.Unsigned
	}
	view := letters.ViewContext{Project: p, ATC: values, User: actor, Stamp: stampFile, WsOn: wsOn}

	pdfBytes, err := s.generator.RenderPDF(ctx, view)
	if err != nil {
		return nil, s.classify(err)
	}

	unsigned := s.scratch.Path(fmt.Sprintf("letter-%d.pdf", p.ID))
	signed := s.scratch.Path(fmt.Sprintf("letter-%d-signed.pdf", p.ID))
	if err := os.WriteFile(unsigned, pdfBytes, 0o644); err != nil {
		return nil, s.classify(err)
	}
	if err := s.signer.SignFile(unsigned, signed); err != nil {
		return nil, s.classify(err)
	}
	data, err := os.ReadFile(signed)
	if err != nil {
		return nil, s.classify(err)
	}

	return &FileDownload{
		Name:        fmt.Sprintf("PZSE-IEBC-Letter-%s.pdf", time.Now().Format("2006-01-02")),
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}

func overrideFor(ov *domain.AhjOverride) *lookup.Override {
	if ov == nil {
		return nil
	}
	return &lookup.Override{Snow: ov.Snow, Wind: ov.Wind}
}
