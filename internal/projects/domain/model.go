package domain

import "time"

// Project is an IEBC compliance-letter project moving through the
// four-step intake wizard.
type Project struct {
	ID                     int64      `json:"id"`
	UserID                 string     `json:"user_id"`
	Status                 string     `json:"status"`
	Type                   string     `json:"type"`
	PriceCents             int64      `json:"price_cents"`
	Address                string     `json:"address"`
	State                  string     `json:"state"`
	County                 string     `json:"county"`
	City                   string     `json:"city"`
	Zip                    string     `json:"zip"`
	StampPlansRequestCount int        `json:"stamp_plans_request_count"`
	IsLetterRegenerated    bool       `json:"is_letter_regenerated"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
	CompletedAt            *time.Time `json:"completed_at,omitempty"`

	Meta *ProjectMeta `json:"meta,omitempty"`
}

// ProjectMeta holds the domain selections captured at steps 1-3,
// one-to-one with Project.
type ProjectMeta struct {
	ProjectID                      int64   `json:"project_id"`
	BuildingDescriptionID          int64   `json:"building_description_id"`
	SurroundingTerrainID           int64   `json:"surrounding_terrain_id"`
	ExistingRoofTypeID             int64   `json:"existing_roof_type_id"`
	BuildingDescriptionManualValue *string `json:"building_description_manual_value,omitempty"`
	SurroundingTerrainManualValue  *string `json:"surrounding_terrain_manual_value,omitempty"`
	ExistingRoofTypeManualValue    *string `json:"existing_roof_type_manual_value,omitempty"`
	RoofSlope                      string  `json:"roof_slope"`
	WetSignRequested               int     `json:"wet_sign_requested"`

	BuildingDescription *BuildingDescription `json:"building_description,omitempty"`
	SurroundingTerrain  *SurroundingTerrain  `json:"surrounding_terrain,omitempty"`
	RoofType            *ExistingRoofLoad    `json:"roof_type,omitempty"`
}

// Reference rows. Read-only configuration owned outside this core.

type BuildingDescription struct {
	ID                       int64  `json:"id"`
	Name                     string `json:"name"`
	RiskCategoryInternalName string `json:"risk_category_internal_name"`
	Order                    int    `json:"order"`
}

type SurroundingTerrain struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	ExposureCategory string `json:"exposure_category"`
}

type ExistingRoofLoad struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	LoadCategory string `json:"load_category"`
}

// Document is a stored project file. Letters generated by the system
// carry a shared BundleID per generation pass; the unsigned variant is
// kept invisible to clients and bundled on staff downloads.
type Document struct {
	ID         int64     `json:"id"`
	ProjectID  int64     `json:"project_id"`
	UploadedBy string    `json:"uploaded_by"`
	FileName   string    `json:"file_name"`
	TypeID     int64     `json:"type_id"`
	BundleID   string    `json:"bundle_id,omitempty"`
	Visibility bool      `json:"visibility"`
	CreatedAt  time.Time `json:"created_at"`
}

// DocumentType maps a document kind to its storage sub-path.
type DocumentType struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	SavePath string `json:"save_path"`
}

type Comment struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"project_id"`
	CommentedBy string    `json:"commented_by"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
}

// ShippingProfile is a wet-stamp delivery address owned by an account.
type ShippingProfile struct {
	ID        int64     `json:"id"`
	AccountID string    `json:"account_id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Zip       string    `json:"zip"`
	Phone     string    `json:"phone"`
	Regular   bool      `json:"regular"`
	CreatedAt time.Time `json:"created_at"`
}

// AhjOverride carries manually entered snow/wind values recorded for a
// project by an engineer; they take precedence over lookup results when
// present and not a sentinel.
type AhjOverride struct {
	ProjectID int64   `json:"project_id"`
	Snow      *string `json:"snow,omitempty"`
	Wind      *string `json:"wind,omitempty"`
}
