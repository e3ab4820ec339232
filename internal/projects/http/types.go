package http

import (
	"github.com/pzse-platform/iebc-backend/internal/projects/service"
)

// Handler bundles the dependencies for project HTTP endpoints.
type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

type metaReq struct {
	BuildingDescriptionID          int64   `json:"building_description_id"`
	SurroundingTerrainID           int64   `json:"surrounding_terrain_id"`
	ExistingRoofTypeID             int64   `json:"existing_roof_type_id"`
	BuildingDescriptionManualValue *string `json:"building_description_manual_value"`
	SurroundingTerrainManualValue  *string `json:"surrounding_terrain_manual_value"`
	ExistingRoofTypeManualValue    *string `json:"existing_roof_type_manual_value"`
	RoofSlope                      string  `json:"roof_slope"`
}

func (r metaReq) input() service.MetaInput {
	return service.MetaInput{
		BuildingDescriptionID:          r.BuildingDescriptionID,
		SurroundingTerrainID:           r.SurroundingTerrainID,
		ExistingRoofTypeID:             r.ExistingRoofTypeID,
		BuildingDescriptionManualValue: r.BuildingDescriptionManualValue,
		SurroundingTerrainManualValue:  r.SurroundingTerrainManualValue,
		ExistingRoofTypeManualValue:    r.ExistingRoofTypeManualValue,
		RoofSlope:                      r.RoofSlope,
	}
}

type firstStepReq struct {
	Address string  `json:"address" binding:"required"`
	State   string  `json:"state" binding:"required"`
	County  string  `json:"county"`
	City    string  `json:"city"`
	Zip     string  `json:"zip"`
	Meta    metaReq `json:"meta"`
}

type secondStepReq struct {
	Meta metaReq `json:"meta"`
}

type shippingReq struct {
	ProfileID *int64 `json:"profile_id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Phone     string `json:"phone"`
	Save      bool   `json:"save"`
}

func (r shippingReq) input() service.ShippingInput {
	return service.ShippingInput{
		ProfileID: r.ProfileID,
		Name:      r.Name,
		Address:   r.Address,
		City:      r.City,
		State:     r.State,
		Zip:       r.Zip,
		Phone:     r.Phone,
		Save:      r.Save,
	}
}

type fourthStepReq struct {
	Shipping shippingReq `json:"shipping"`
}

type commentReq struct {
	Notes     string `json:"notes" binding:"required"`
	PlanCheck bool   `json:"plan_check"`
}

type statusReq struct {
	Status         string `json:"status" binding:"required"`
	TrackingNumber string `json:"tracking_number"`
	TrackingNotes  string `json:"tracking_notes"`
}
