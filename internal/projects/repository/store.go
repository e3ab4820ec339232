// Package repository is the Postgres persistence layer of the project
// workflow. Every method resolves its querier from the context so calls
// made inside db.InTx join the surrounding transaction.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pzse-platform/iebc-backend/internal/db"
	"github.com/pzse-platform/iebc-backend/internal/projects/domain"
)

type Store struct {
	db *db.DB
}

func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// InTx delegates to the shared transaction helper.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.db.InTx(ctx, fn)
}

func (s *Store) CreateProject(ctx context.Context, p *domain.Project, meta *domain.ProjectMeta) error {
	q := s.db.Q(ctx)

	err := q.QueryRow(ctx, `
		INSERT INTO projects (user_id, status, type, price_cents, address, state, county, city, zip)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		p.UserID, p.Status, p.Type, p.PriceCents, p.Address, p.State, p.County, p.City, p.Zip,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}

	meta.ProjectID = p.ID
	_, err = q.Exec(ctx, `
		INSERT INTO project_meta (project_id, building_description_id, surrounding_terrain_id,
			existing_roof_type_id, building_description_manual_value,
			surrounding_terrain_manual_value, existing_roof_type_manual_value,
			roof_slope, wet_sign_requested)
		VALUES ($1, NULLIF($2, 0), NULLIF($3, 0), NULLIF($4, 0), $5, $6, $7, $8, $9)`,
		meta.ProjectID, meta.BuildingDescriptionID, meta.SurroundingTerrainID,
		meta.ExistingRoofTypeID, meta.BuildingDescriptionManualValue,
		meta.SurroundingTerrainManualValue, meta.ExistingRoofTypeManualValue,
		meta.RoofSlope, meta.WetSignRequested,
	)
	if err != nil {
		return fmt.Errorf("insert project meta: %w", err)
	}
	p.Meta = meta
	return nil
}

const projectColumns = `id, user_id, status, type, price_cents, address, state, county, city, zip,
	stamp_plans_request_count, is_letter_regenerated, created_at, updated_at, completed_at`

func scanProject(row pgx.Row) (*domain.Project, error) {
	var p domain.Project
	err := row.Scan(&p.ID, &p.UserID, &p.Status, &p.Type, &p.PriceCents,
		&p.Address, &p.State, &p.County, &p.City, &p.Zip,
		&p.StampPlansRequestCount, &p.IsLetterRegenerated,
		&p.CreatedAt, &p.UpdatedAt, &p.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan project: %w", err)
	}
	return &p, nil
}

func (s *Store) ProjectByID(ctx context.Context, id int64) (*domain.Project, error) {
	row := s.db.Q(ctx).QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	return scanProject(row)
}

// ProjectWithMeta loads the project, its meta and the reference rows the
// workflow validates against. Inside a transaction the project row is
// locked so concurrent finish transitions serialize on it.
func (s *Store) ProjectWithMeta(ctx context.Context, id int64) (*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	if db.HasTx(ctx) {
		query += ` FOR UPDATE`
	}
	p, err := scanProject(s.db.Q(ctx).QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	meta, err := s.metaFor(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Meta = meta
	return p, nil
}

func (s *Store) metaFor(ctx context.Context, projectID int64) (*domain.ProjectMeta, error) {
	q := s.db.Q(ctx)

	var (
		meta   domain.ProjectMeta
		bdID   *int64
		stID   *int64
		roofID *int64
		bdName *string
		bdRisk *string
		stName *string
		stExp  *string
		rfName *string
		rfLoad *string
	)

	err := q.QueryRow(ctx, `
		SELECT m.project_id, m.building_description_id, m.surrounding_terrain_id,
			m.existing_roof_type_id, m.building_description_manual_value,
			m.surrounding_terrain_manual_value, m.existing_roof_type_manual_value,
			m.roof_slope, m.wet_sign_requested,
			bd.name, bd.risk_category_internal_name,
			st.name, st.exposure_category,
			rf.name, rf.load_category
		FROM project_meta m
		LEFT JOIN building_descriptions bd ON bd.id = m.building_description_id
		LEFT JOIN surrounding_terrains st ON st.id = m.surrounding_terrain_id
		LEFT JOIN existing_roof_loads rf ON rf.id = m.existing_roof_type_id
		WHERE m.project_id = $1`,
		projectID,
	).Scan(&meta.ProjectID, &bdID, &stID, &roofID,
		&meta.BuildingDescriptionManualValue, &meta.SurroundingTerrainManualValue,
		&meta.ExistingRoofTypeManualValue, &meta.RoofSlope, &meta.WetSignRequested,
		&bdName, &bdRisk,
		&stName, &stExp,
		&rfName, &rfLoad)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan project meta: %w", err)
	}

	if bdID != nil {
		meta.BuildingDescriptionID = *bdID
		if bdName != nil && bdRisk != nil {
			meta.BuildingDescription = &domain.BuildingDescription{
				ID: *bdID, Name: *bdName, RiskCategoryInternalName: *bdRisk,
			}
		}
	}
	if stID != nil {
		meta.SurroundingTerrainID = *stID
		if stName != nil && stExp != nil {
			meta.SurroundingTerrain = &domain.SurroundingTerrain{
				ID: *stID, Name: *stName, ExposureCategory: *stExp,
			}
		}
	}
	if roofID != nil {
		meta.ExistingRoofTypeID = *roofID
		if rfName != nil && rfLoad != nil {
			meta.RoofType = &domain.ExistingRoofLoad{
				ID: *roofID, Name: *rfName, LoadCategory: *rfLoad,
			}
		}
	}
	return &meta, nil
}

func (s *Store) UpdateProject(ctx context.Context, p *domain.Project) error {
	tag, err := s.db.Q(ctx).Exec(ctx, `
		UPDATE projects
		SET address = $2, state = $3, county = $4, city = $5, zip = $6, updated_at = now()
		WHERE id = $1`,
		p.ID, p.Address, p.State, p.County, p.City, p.Zip)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

func (s *Store) UpdateMeta(ctx context.Context, meta *domain.ProjectMeta) error {
	tag, err := s.db.Q(ctx).Exec(ctx, `
		UPDATE project_meta
		SET building_description_id = NULLIF($2, 0), surrounding_terrain_id = NULLIF($3, 0),
			existing_roof_type_id = NULLIF($4, 0), building_description_manual_value = $5,
			surrounding_terrain_manual_value = $6, existing_roof_type_manual_value = $7,
			roof_slope = $8
		WHERE project_id = $1`,
		meta.ProjectID, meta.BuildingDescriptionID, meta.SurroundingTerrainID,
		meta.ExistingRoofTypeID, meta.BuildingDescriptionManualValue,
		meta.SurroundingTerrainManualValue, meta.ExistingRoofTypeManualValue,
		meta.RoofSlope)
	if err != nil {
		return fmt.Errorf("update project meta: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

func (s *Store) SetStatus(ctx context.Context, projectID int64, status string) error {
	tag, err := s.db.Q(ctx).Exec(ctx, `
		UPDATE projects
		SET status = $2,
			completed_at = CASE WHEN $2 = 'completed' THEN now() ELSE completed_at END,
			updated_at = now()
		WHERE id = $1`,
		projectID, status)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

func (s *Store) SetStatusAndType(ctx context.Context, projectID int64, status, projectType string) error {
	tag, err := s.db.Q(ctx).Exec(ctx, `
		UPDATE projects
		SET status = $2, type = $3,
			completed_at = CASE WHEN $2 = 'completed' THEN now() ELSE completed_at END,
			updated_at = now()
		WHERE id = $1`,
		projectID, status, projectType)
	if err != nil {
		return fmt.Errorf("set status and type: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

func (s *Store) SetWetSignRequested(ctx context.Context, projectID int64, state int) error {
	tag, err := s.db.Q(ctx).Exec(ctx,
		`UPDATE project_meta SET wet_sign_requested = $2 WHERE project_id = $1`,
		projectID, state)
	if err != nil {
		return fmt.Errorf("set wet sign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

func (s *Store) SetLetterRegenerated(ctx context.Context, projectID int64) error {
	tag, err := s.db.Q(ctx).Exec(ctx,
		`UPDATE projects SET is_letter_regenerated = true, updated_at = now() WHERE id = $1`,
		projectID)
	if err != nil {
		return fmt.Errorf("set letter regenerated: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

func (s *Store) IncrementStampPlansCount(ctx context.Context, projectID int64) error {
	tag, err := s.db.Q(ctx).Exec(ctx,
		`UPDATE projects SET stamp_plans_request_count = stamp_plans_request_count + 1, updated_at = now() WHERE id = $1`,
		projectID)
	if err != nil {
		return fmt.Errorf("increment stamp plans count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

func (s *Store) BuildingDescriptionByID(ctx context.Context, id int64) (*domain.BuildingDescription, error) {
	var bd domain.BuildingDescription
	err := s.db.Q(ctx).QueryRow(ctx,
		`SELECT id, name, risk_category_internal_name, sort_order FROM building_descriptions WHERE id = $1`,
		id).Scan(&bd.ID, &bd.Name, &bd.RiskCategoryInternalName, &bd.Order)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrReferenceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("building description %d: %w", id, err)
	}
	return &bd, nil
}

func (s *Store) SurroundingTerrainByID(ctx context.Context, id int64) (*domain.SurroundingTerrain, error) {
	var st domain.SurroundingTerrain
	err := s.db.Q(ctx).QueryRow(ctx,
		`SELECT id, name, exposure_category FROM surrounding_terrains WHERE id = $1`,
		id).Scan(&st.ID, &st.Name, &st.ExposureCategory)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrReferenceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("surrounding terrain %d: %w", id, err)
	}
	return &st, nil
}

func (s *Store) ExistingRoofLoadByID(ctx context.Context, id int64) (*domain.ExistingRoofLoad, error) {
	var rf domain.ExistingRoofLoad
	err := s.db.Q(ctx).QueryRow(ctx,
		`SELECT id, name, load_category FROM existing_roof_loads WHERE id = $1`,
		id).Scan(&rf.ID, &rf.Name, &rf.LoadCategory)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrReferenceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("existing roof load %d: %w", id, err)
	}
	return &rf, nil
}

func (s *Store) ProjectOverrides(ctx context.Context, projectID int64) (*domain.AhjOverride, error) {
	var ov domain.AhjOverride
	err := s.db.Q(ctx).QueryRow(ctx,
		`SELECT project_id, snow, wind FROM ahj_overrides WHERE project_id = $1`,
		projectID).Scan(&ov.ProjectID, &ov.Snow, &ov.Wind)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("project overrides %d: %w", projectID, err)
	}
	return &ov, nil
}
