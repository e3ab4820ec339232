package service

import (
	"context"

	"github.com/pzse-platform/iebc-backend/internal/auth"
	"github.com/pzse-platform/iebc-backend/internal/compliance"
	"github.com/pzse-platform/iebc-backend/internal/projects/domain"
)

// MetaInput carries the wizard's meta selections. Pointer fields absent
// from the submission reset the stored value to NULL.
type MetaInput struct {
	BuildingDescriptionID          int64
	SurroundingTerrainID           int64
	ExistingRoofTypeID             int64
	BuildingDescriptionManualValue *string
	SurroundingTerrainManualValue  *string
	ExistingRoofTypeManualValue    *string
	RoofSlope                      string
}

type FirstStepInput struct {
	Address string
	State   string
	County  string
	City    string
	Zip     string
	Meta    MetaInput
}

type SecondStepInput struct {
	Meta MetaInput
}

// StepResult reports the saved project and any soft validation
// messages. Soft failures do not stop a step from saving; the wizard
// shows them inline and the finish transition enforces them.
type StepResult struct {
	ProjectID          int64
	AdditionalMessages map[string]string
}

// StoreFirstStep creates the project with its meta at step 1. The base
// service price is resolved at creation time; status starts processed,
// pending finance at the first finish transition.
func (s *Service) StoreFirstStep(ctx context.Context, actor auth.Actor, in FirstStepInput) (*StepResult, error) {
	var out *StepResult

	err := s.store.InTx(ctx, func(ctx context.Context) error {
		price, err := s.payments.ServicePrice(ctx, domain.ServiceIEBCLetter)
		if err != nil {
			return err
		}

		p := &domain.Project{
			UserID:     actor.ID,
			Status:     domain.StatusProcessed,
			Type:       domain.TypeIEBC,
			PriceCents: price,
			Address:    in.Address,
			State:      in.State,
			County:     in.County,
			City:       in.City,
			Zip:        in.Zip,
		}
		meta := &domain.ProjectMeta{
			BuildingDescriptionID:          in.Meta.BuildingDescriptionID,
			SurroundingTerrainID:           in.Meta.SurroundingTerrainID,
			BuildingDescriptionManualValue: in.Meta.BuildingDescriptionManualValue,
			SurroundingTerrainManualValue:  in.Meta.SurroundingTerrainManualValue,
		}
		if err := s.store.CreateProject(ctx, p, meta); err != nil {
			return err
		}

		msgs, err := s.softValidatePair(ctx, in.Meta)
		if err != nil {
			return err
		}

		out = &StepResult{ProjectID: p.ID, AdditionalMessages: msgs}
		return nil
	})
	if err != nil {
		return nil, s.classify(err)
	}
	return out, nil
}

// UpdateFirstStep updates the step-1 address and meta selections.
func (s *Service) UpdateFirstStep(ctx context.Context, actor auth.Actor, projectID int64, in FirstStepInput) (*StepResult, error) {
	var out *StepResult

	err := s.store.InTx(ctx, func(ctx context.Context) error {
		p, err := s.store.ProjectWithMeta(ctx, projectID)
		if err != nil {
			return err
		}

		msgs, err := s.softValidatePair(ctx, in.Meta)
		if err != nil {
			return err
		}

		p.Address = in.Address
		p.State = in.State
		p.County = in.County
		p.City = in.City
		p.Zip = in.Zip
		if err := s.store.UpdateProject(ctx, p); err != nil {
			return err
		}

		meta := p.Meta
		meta.BuildingDescriptionID = in.Meta.BuildingDescriptionID
		meta.SurroundingTerrainID = in.Meta.SurroundingTerrainID
		meta.BuildingDescriptionManualValue = in.Meta.BuildingDescriptionManualValue
		meta.SurroundingTerrainManualValue = in.Meta.SurroundingTerrainManualValue
		if err := s.store.UpdateMeta(ctx, meta); err != nil {
			return err
		}

		out = &StepResult{ProjectID: p.ID, AdditionalMessages: msgs}
		return nil
	})
	if err != nil {
		return nil, s.classify(err)
	}
	return out, nil
}

// UpdateSecondStep updates the roof-load selections. The wet-sign field
// never comes from this payload; an existing request is untouched here.
// The location lookup runs so the meteo cache picks up address changes.
func (s *Service) UpdateSecondStep(ctx context.Context, actor auth.Actor, projectID int64, in SecondStepInput) (*StepResult, error) {
	var out *StepResult

	err := s.store.InTx(ctx, func(ctx context.Context) error {
		p, err := s.store.ProjectWithMeta(ctx, projectID)
		if err != nil {
			return err
		}

		roof, err := s.store.ExistingRoofLoadByID(ctx, in.Meta.ExistingRoofTypeID)
		if err != nil {
			return err
		}

		var msgs map[string]string
		if res := s.validator.ValidateRoofLoad(compliance.Selection{RoofLoad: roof.LoadCategory}); !res.OK() {
			msgs = res.FieldErrors
		}

		meta := p.Meta
		meta.ExistingRoofTypeID = in.Meta.ExistingRoofTypeID
		meta.ExistingRoofTypeManualValue = in.Meta.ExistingRoofTypeManualValue
		meta.RoofSlope = in.Meta.RoofSlope
		if err := s.store.UpdateMeta(ctx, meta); err != nil {
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

		out = &StepResult{ProjectID: p.ID, AdditionalMessages: msgs}
		return nil
	})
	if err != nil {
		return nil, s.classify(err)
	}
	return out, nil
}

// UpdateThirdStep refreshes the meteo cache after the document-upload
// step; it writes no project data itself.
func (s *Service) UpdateThirdStep(ctx context.Context, actor auth.Actor, projectID int64) error {
	err := s.store.InTx(ctx, func(ctx context.Context) error {
		p, err := s.store.ProjectByID(ctx, projectID)
		if err != nil {
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
		return nil
	})
	if err != nil {
		return s.classify(err)
	}
	return nil
}

// softValidatePair checks the risk/exposure pair for step-1 feedback.
// Missing reference rows are hard failures; an incompatible pair only
// produces messages.
func (s *Service) softValidatePair(ctx context.Context, in MetaInput) (map[string]string, error) {
	bd, err := s.store.BuildingDescriptionByID(ctx, in.BuildingDescriptionID)
	if err != nil {
		return nil, err
	}
	terrain, err := s.store.SurroundingTerrainByID(ctx, in.SurroundingTerrainID)
	if err != nil {
		return nil, err
	}

	res := s.validator.ValidatePair(
		compliance.Selection{
			RiskCategory:     bd.RiskCategoryInternalName,
			ExposureCategory: terrain.ExposureCategory,
		},
		compliance.Names{
			RiskCategory:     bd.RiskCategoryInternalName,
			ExposureCategory: terrain.ExposureCategory,
		},
	)
	if res.OK() {
		return nil, nil
	}
	return res.FieldErrors, nil
}
