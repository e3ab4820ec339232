package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pzse-platform/iebc-backend/internal/projects/domain"
)

func (s *Store) DocumentTypeByID(ctx context.Context, id int64) (*domain.DocumentType, error) {
	var dt domain.DocumentType
	err := s.db.Q(ctx).QueryRow(ctx,
		`SELECT id, name, slug, save_path FROM document_types WHERE id = $1`,
		id).Scan(&dt.ID, &dt.Name, &dt.Slug, &dt.SavePath)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDocumentTypeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("document type %d: %w", id, err)
	}
	return &dt, nil
}

func (s *Store) DocumentTypeBySlug(ctx context.Context, slug string) (*domain.DocumentType, error) {
	var dt domain.DocumentType
	err := s.db.Q(ctx).QueryRow(ctx,
		`SELECT id, name, slug, save_path FROM document_types WHERE slug = $1`,
		slug).Scan(&dt.ID, &dt.Name, &dt.Slug, &dt.SavePath)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDocumentTypeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("document type %q: %w", slug, err)
	}
	return &dt, nil
}

func (s *Store) DocumentByID(ctx context.Context, id int64) (*domain.Document, error) {
	var d domain.Document
	err := s.db.Q(ctx).QueryRow(ctx, `
		SELECT id, project_id, uploaded_by, file_name, type_id, COALESCE(bundle_id, ''), visibility, created_at
		FROM documents WHERE id = $1`,
		id).Scan(&d.ID, &d.ProjectID, &d.UploadedBy, &d.FileName, &d.TypeID, &d.BundleID, &d.Visibility, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("document %d: %w", id, err)
	}
	return &d, nil
}

// BundledDocument returns the invisible counterpart of a letter bundle,
// or nil when the bundle only has one file.
func (s *Store) BundledDocument(ctx context.Context, bundleID string) (*domain.Document, error) {
	var d domain.Document
	err := s.db.Q(ctx).QueryRow(ctx, `
		SELECT id, project_id, uploaded_by, file_name, type_id, COALESCE(bundle_id, ''), visibility, created_at
		FROM documents WHERE bundle_id = $1 AND visibility = false
		ORDER BY id DESC LIMIT 1`,
		bundleID).Scan(&d.ID, &d.ProjectID, &d.UploadedBy, &d.FileName, &d.TypeID, &d.BundleID, &d.Visibility, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bundled document %s: %w", bundleID, err)
	}
	return &d, nil
}

func (s *Store) HasDocumentOfType(ctx context.Context, projectID int64, typeSlug string) (bool, error) {
	var exists bool
	err := s.db.Q(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM documents d
			JOIN document_types dt ON dt.id = d.type_id
			WHERE d.project_id = $1 AND dt.slug = $2
		)`,
		projectID, typeSlug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has document of type %q: %w", typeSlug, err)
	}
	return exists, nil
}

func (s *Store) DocumentsByProject(ctx context.Context, projectID int64, visibleOnly bool) ([]domain.Document, error) {
	query := `
		SELECT id, project_id, uploaded_by, file_name, type_id, COALESCE(bundle_id, ''), visibility, created_at
		FROM documents WHERE project_id = $1`
	if visibleOnly {
		query += ` AND visibility = true`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Q(ctx).Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("documents for project %d: %w", projectID, err)
	}
	defer rows.Close()

	var out []domain.Document
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.UploadedBy, &d.FileName,
			&d.TypeID, &d.BundleID, &d.Visibility, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}
	return out, nil
}

func (s *Store) CommentsByProject(ctx context.Context, projectID int64) ([]domain.Comment, error) {
	rows, err := s.db.Q(ctx).Query(ctx, `
		SELECT id, project_id, commented_by, notes, created_at
		FROM comments WHERE project_id = $1
		ORDER BY created_at DESC, id DESC`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("comments for project %d: %w", projectID, err)
	}
	defer rows.Close()

	var out []domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.CommentedBy, &c.Notes, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read comments: %w", err)
	}
	return out, nil
}

func (s *Store) CreateDocument(ctx context.Context, d *domain.Document) error {
	err := s.db.Q(ctx).QueryRow(ctx, `
		INSERT INTO documents (project_id, uploaded_by, file_name, type_id, bundle_id, visibility)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		RETURNING id, created_at`,
		d.ProjectID, d.UploadedBy, d.FileName, d.TypeID, d.BundleID, d.Visibility,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *Store) CreateComment(ctx context.Context, c *domain.Comment) error {
	err := s.db.Q(ctx).QueryRow(ctx, `
		INSERT INTO comments (project_id, commented_by, notes)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		c.ProjectID, c.CommentedBy, c.Notes,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (s *Store) AttachCommentDocument(ctx context.Context, commentID, documentID int64) error {
	_, err := s.db.Q(ctx).Exec(ctx,
		`INSERT INTO comment_documents (comment_id, document_id) VALUES ($1, $2)`,
		commentID, documentID)
	if err != nil {
		return fmt.Errorf("attach comment document: %w", err)
	}
	return nil
}
