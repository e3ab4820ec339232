package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/pzse-platform/iebc-backend/internal/auth"
	"github.com/pzse-platform/iebc-backend/internal/billing"
	"github.com/pzse-platform/iebc-backend/internal/compliance"
	"github.com/pzse-platform/iebc-backend/internal/events"
	"github.com/pzse-platform/iebc-backend/internal/letters"
	"github.com/pzse-platform/iebc-backend/internal/lookup"
	"github.com/pzse-platform/iebc-backend/internal/projects/domain"
)

// PreviewPayload is the success body of a finish transition: the letter
// preview markup plus the stamp variants the wizard shows.
type PreviewPayload struct {
	View                  string                   `json:"view"`
	ProjectID             int64                    `json:"projectId"`
	LookupData            map[string]lookup.Metric `json:"lookupData"`
	Stamp                 string                   `json:"stamp"`
	StampWithoutSignature string                   `json:"stampWithoutSignature"`
}

// FinishOutcome is the committed result of a finish transition. When
// Redirected is set the project was forwarded to the engineering team
// and the caller is sent to RedirectTo with Message; otherwise Preview
// carries the generated letter preview.
type FinishOutcome struct {
	Redirected  bool
	Message     string
	RedirectTo  string
	FieldErrors map[string]string
	Preview     *PreviewPayload
}

// ShippingInput selects or describes the wet-stamp delivery address.
type ShippingInput struct {
	ProfileID *int64
	Name      string
	Address   string
	City      string
	State     string
	Zip       string
	Phone     string
	Save      bool
}

type FourthStepInput struct {
	Shipping ShippingInput
}

const forwardMsg = "Based on the provided information the letter could not be generated automatically. " +
	"The project has been forwarded to our engineering team for review."

// Forwarded outcomes send the caller back to the project list.
const projectsIndexPath = "/projects"

// FinishFromSecondStep saves the step-2 selections and finalizes the
// project. A pending wet-stamp request is cancelled here: finishing at
// step 2 means the client no longer wants the stamped-plans flow.
func (s *Service) FinishFromSecondStep(ctx context.Context, actor auth.Actor, projectID int64, in SecondStepInput) (*FinishOutcome, error) {
	var out *FinishOutcome

	err := s.store.InTx(ctx, func(ctx context.Context) error {
		p, err := s.store.ProjectWithMeta(ctx, projectID)
		if err != nil {
			return err
		}

		roof, err := s.store.ExistingRoofLoadByID(ctx, in.Meta.ExistingRoofTypeID)
		if err != nil {
			return err
		}

		meta := p.Meta
		meta.ExistingRoofTypeID = in.Meta.ExistingRoofTypeID
		meta.ExistingRoofTypeManualValue = in.Meta.ExistingRoofTypeManualValue
		meta.RoofSlope = in.Meta.RoofSlope
		if err := s.store.UpdateMeta(ctx, meta); err != nil {
			return err
		}

		if meta.WetSignRequested == domain.WetSignRequested {
			if err := s.store.SetWetSignRequested(ctx, p.ID, domain.WetSignCancelled); err != nil {
				return err
			}
			meta.WetSignRequested = domain.WetSignCancelled
		}

		if err := s.chargeProject(ctx, actor, p); err != nil {
			return err
		}

		sel, names, err := s.metaSelection(ctx, p)
		if err != nil {
			return err
		}
		sel.RoofLoad = roof.LoadCategory

		if res := s.validator.Validate(sel, names); !res.OK() {
			out, err = s.forwardWithErrors(ctx, actor, p, res.FieldErrors)
			return err
		}

		res, err := s.resolver.DoLookup(ctx, p)
		if err != nil {
			return err
		}
		loc, err := s.resolver.CheckLocation(ctx, p)
		if err != nil {
			return err
		}
		s.resolver.CacheIfMoved(ctx, p, loc, res)

		out, err = s.finalizeLetters(ctx, actor, p, res, true, false)
		return err
	})
	if err != nil {
		return nil, s.classify(err)
	}
	return out, nil
}

// FinishFromThirdStep finalizes after the document-upload step. No meteo
// cache write happens here; the address was settled at step 2.
func (s *Service) FinishFromThirdStep(ctx context.Context, actor auth.Actor, projectID int64) (*FinishOutcome, error) {
	var out *FinishOutcome

	err := s.store.InTx(ctx, func(ctx context.Context) error {
		p, err := s.store.ProjectWithMeta(ctx, projectID)
		if err != nil {
			return err
		}

		if err := s.chargeProject(ctx, actor, p); err != nil {
			return err
		}

		sel, names, err := s.metaSelection(ctx, p)
		if err != nil {
			return err
		}

		if res := s.validator.Validate(sel, names); !res.OK() {
			out, err = s.forwardWithErrors(ctx, actor, p, res.FieldErrors)
			return err
		}

		res, err := s.resolver.DoLookup(ctx, p)
		if err != nil {
			return err
		}

		out, err = s.finalizeLetters(ctx, actor, p, res, false, true)
		return err
	})
	if err != nil {
		return nil, s.classify(err)
	}
	return out, nil
}

// FinishFromFourthStep finalizes the wet-stamp flow. Charging and the
// request flag share the gate of the base charge: only a still
// processed project finished by a non-engineer pays the wet-stamp
// service and gets the flag, so re-finishing a settled project never
// bills again. The shipping profile is recorded either way.
func (s *Service) FinishFromFourthStep(ctx context.Context, actor auth.Actor, projectID int64, in FourthStepInput) (*FinishOutcome, error) {
	var out *FinishOutcome

	err := s.store.InTx(ctx, func(ctx context.Context) error {
		p, err := s.store.ProjectWithMeta(ctx, projectID)
		if err != nil {
			return err
		}

		if p.Status == domain.StatusProcessed && !actor.HasRole(auth.RolePzseEngineer) {
			if err := s.payments.PayForProject(ctx, actor, p); err != nil {
				return err
			}
			if err := s.payments.PayForService(ctx, actor, domain.ServiceWetStamp, p); err != nil {
				return err
			}
			if err := s.store.SetWetSignRequested(ctx, p.ID, domain.WetSignRequested); err != nil {
				return err
			}
			p.Meta.WetSignRequested = domain.WetSignRequested
		}

		if err := s.recordShipping(ctx, actor, p.ID, in.Shipping); err != nil {
			return err
		}

		sel, names, err := s.metaSelection(ctx, p)
		if err != nil {
			return err
		}

		if res := s.validator.Validate(sel, names); !res.OK() {
			out, err = s.forwardWithErrors(ctx, actor, p, res.FieldErrors)
			return err
		}

		res, err := s.resolver.DoLookup(ctx, p)
		if err != nil {
			return err
		}

		out, err = s.finalizeLetters(ctx, actor, p, res,
			p.Meta.WetSignRequested == domain.WetSignRequested, true)
		return err
	})
	if err != nil {
		return nil, s.classify(err)
	}
	return out, nil
}

// chargeProject charges the base service price once. Only a processed
// project is charged, and engineers finishing on a client's behalf are
// never billed.
func (s *Service) chargeProject(ctx context.Context, actor auth.Actor, p *domain.Project) error {
	if p.Status != domain.StatusProcessed {
		return nil
	}
	if actor.HasRole(auth.RolePzseEngineer) {
		return nil
	}
	return s.payments.PayForProject(ctx, actor, p)
}

// metaSelection builds the compliance selection from the stored meta and
// its loaded reference rows.
func (s *Service) metaSelection(ctx context.Context, p *domain.Project) (compliance.Selection, compliance.Names, error) {
	meta := p.Meta
	if meta == nil || meta.BuildingDescription == nil || meta.SurroundingTerrain == nil {
		return compliance.Selection{}, compliance.Names{}, domain.ErrReferenceNotFound
	}

	sel := compliance.Selection{
		RiskCategory:     meta.BuildingDescription.RiskCategoryInternalName,
		ExposureCategory: meta.SurroundingTerrain.ExposureCategory,
	}
	if meta.RoofType != nil {
		sel.RoofLoad = meta.RoofType.LoadCategory
	}
	names := compliance.Names{
		RiskCategory:     meta.BuildingDescription.RiskCategoryInternalName,
		ExposureCategory: meta.SurroundingTerrain.ExposureCategory,
	}
	return sel, names, nil
}

// forwardWithErrors marks the project forwarded and returns the
// redirect-to-index outcome. The transaction still commits: the charge
// and the forwarded status are kept. No lifecycle event fires here; the
// caller never got past validation.
func (s *Service) forwardWithErrors(ctx context.Context, actor auth.Actor, p *domain.Project, fieldErrors map[string]string) (*FinishOutcome, error) {
	if err := s.store.SetStatus(ctx, p.ID, domain.StatusForwardedToEngineer); err != nil {
		return nil, err
	}

	return &FinishOutcome{
		Redirected:  true,
		Message:     forwardMsg,
		RedirectTo:  projectsIndexPath,
		FieldErrors: fieldErrors,
	}, nil
}

// finalizeLetters runs the tail of every finish transition: branch on
// the lookup result and the project state, then render both letter
// variants under one generation id. decideByPlans lets the later
// finishes route plans-upload projects to an engineer; a step-2 finish
// always completes as a plain letter.
func (s *Service) finalizeLetters(ctx context.Context, actor auth.Actor, p *domain.Project, res lookup.Result, wsOn, decideByPlans bool) (*FinishOutcome, error) {
	if !res.Resolved() {
		if err := s.store.SetStatus(ctx, p.ID, domain.StatusForwardedToEngineer); err != nil {
			return nil, err
		}
		s.publish(ctx, events.ProjectCreated, p.ID, actor.ID)
		return &FinishOutcome{
			Redirected: true,
			Message:    res.Message,
			RedirectTo: projectsIndexPath,
		}, nil
	}

	if domain.ForwardToEngineerStates[p.State] {
		if err := s.store.SetStatus(ctx, p.ID, domain.StatusForwardedToEngineer); err != nil {
			return nil, err
		}
		s.publish(ctx, events.ProjectCreated, p.ID, actor.ID)
		return &FinishOutcome{
			Redirected: true,
			Message:    forwardMsg,
			RedirectTo: projectsIndexPath,
		}, nil
	}

	stamp, found, err := s.stamps.FilesByState(ctx, p.State)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("no stamp configured for state %s", p.State)
	}

	sharedID := uuid.NewString()
	atc := displayValues(res.Values)

	signedView := letters.ViewContext{Project: p, ATC: atc, User: actor, Stamp: stamp.Signed, WsOn: false}
	if err := s.generateAndRecord(ctx, actor, p, signedView, sharedID, true); err != nil {
		return nil, err
	}

	printView := letters.ViewContext{Project: p, ATC: atc, User: actor, Stamp: stamp.Unsigned, WsOn: wsOn}
	if err := s.generateAndRecord(ctx, actor, p, printView, sharedID, false); err != nil {
		return nil, err
	}

	// A plans upload means the client wants stamped plans back: those go
	// through an engineer, so the project forwards instead of completing.
	hasPlans := false
	if decideByPlans {
		hasPlans, err = s.store.HasDocumentOfType(ctx, p.ID, domain.DocTypePlans)
		if err != nil {
			return nil, err
		}
	}
	if hasPlans {
		if err := s.store.SetStatusAndType(ctx, p.ID, domain.StatusForwardedToEngineer, domain.TypeIEBCStampedPlans); err != nil {
			return nil, err
		}
	} else {
		if err := s.store.SetStatusAndType(ctx, p.ID, domain.StatusCompleted, domain.TypeIEBC); err != nil {
			return nil, err
		}
	}
	s.publish(ctx, events.ProjectCreated, p.ID, actor.ID)

	view, err := s.generator.PreviewHTML(signedView)
	if err != nil {
		return nil, err
	}

	return &FinishOutcome{
		Preview: &PreviewPayload{
			View:                  view,
			ProjectID:             p.ID,
			LookupData:            res.Values,
			Stamp:                 stamp.Signed,
			StampWithoutSignature: stamp.Unsigned,
		},
	}, nil
}

// generateAndRecord renders one letter variant and stores its document
// row. The unsigned variant stays invisible to clients; staff downloads
// bundle it via the shared generation id.
func (s *Service) generateAndRecord(ctx context.Context, actor auth.Actor, p *domain.Project, view letters.ViewContext, sharedID string, signed bool) error {
	letter, err := s.generator.Generate(ctx, p, view, p.IsLetterRegenerated, sharedID, signed)
	if err != nil {
		return err
	}

	letterType, err := s.store.DocumentTypeBySlug(ctx, domain.DocTypeLetter)
	if err != nil {
		return err
	}

	return s.store.CreateDocument(ctx, &domain.Document{
		ProjectID:  p.ID,
		UploadedBy: actor.ID,
		FileName:   letter.FileName,
		TypeID:     letterType.ID,
		BundleID:   sharedID,
		Visibility: signed,
	})
}

// recordShipping attaches an existing shipping profile or creates one
// from the submitted address. Save marks the new profile as the
// account's regular address for reuse.
func (s *Service) recordShipping(ctx context.Context, actor auth.Actor, projectID int64, in ShippingInput) error {
	if in.ProfileID != nil {
		sp, err := s.store.ShippingProfileByID(ctx, *in.ProfileID)
		if err != nil {
			return err
		}
		return s.store.AttachShippingProfile(ctx, projectID, sp.ID)
	}

	sp := &domain.ShippingProfile{
		AccountID: actor.BillingAccountID(),
		Name:      in.Name,
		Address:   in.Address,
		City:      in.City,
		State:     in.State,
		Zip:       in.Zip,
		Phone:     in.Phone,
		Regular:   in.Save,
	}
	if err := s.store.CreateShippingProfile(ctx, sp); err != nil {
		return err
	}
	return s.store.AttachShippingProfile(ctx, projectID, sp.ID)
}

// displayValues flattens resolved metrics to the plain strings the
// letter templates print.
func displayValues(values map[string]lookup.Metric) map[string]string {
	out := make(map[string]string, len(values))
	for k, m := range values {
		out[k] = m.Value
	}
	return out
}

// publish emits a lifecycle event. Delivery problems are logged and
// never fail the transaction.
func (s *Service) publish(ctx context.Context, kind events.Kind, projectID int64, actorID string) {
	e := events.Event{Kind: kind, ProjectID: projectID, ActorID: actorID, At: time.Now()}
	if err := s.bus.Publish(ctx, e); err != nil {
		log.Printf("publish %s for project %d: %v", kind, projectID, err)
	}
}

// classify maps a rolled-back error to its caller-facing form. Known
// conditions pass through for status mapping; anything else is logged
// and collapsed into the generic failure.
func (s *Service) classify(err error) error {
	switch {
	case errors.Is(err, domain.ErrProjectNotFound),
		errors.Is(err, domain.ErrDocumentNotFound),
		errors.Is(err, domain.ErrDocumentTypeNotFound),
		errors.Is(err, domain.ErrReferenceNotFound),
		errors.Is(err, domain.ErrShippingNotFound),
		errors.Is(err, billing.ErrInsufficientBalance),
		errors.Is(err, billing.ErrServiceNotFound):
		return err
	default:
		log.Printf("project operation failed: %v", err)
		return ErrOperationFailed
	}
}
