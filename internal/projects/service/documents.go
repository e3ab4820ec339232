package service

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/pzse-platform/iebc-backend/internal/auth"
	"github.com/pzse-platform/iebc-backend/internal/events"
	"github.com/pzse-platform/iebc-backend/internal/projects/domain"
)

// FileUpload is one submitted file.
type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

// FileDownload is a streamed file response.
type FileDownload struct {
	Name        string
	ContentType string
	Data        []byte
}

type DocumentsInput struct {
	TypeID int64
	Notes  string
	Files  []FileUpload
}

// StoreDocuments uploads files under one comment. Plan-check files flip
// the project into the plan-check status; plan uploads past the free
// re-stamp allowance are charged per upload.
func (s *Service) StoreDocuments(ctx context.Context, actor auth.Actor, projectID int64, in DocumentsInput) error {
	err := s.store.InTx(ctx, func(ctx context.Context) error {
		p, err := s.store.ProjectByID(ctx, projectID)
		if err != nil {
			return err
		}
		docType, err := s.store.DocumentTypeByID(ctx, in.TypeID)
		if err != nil {
			return err
		}

		if docType.Slug == domain.DocTypePlanCheckComments {
			if err := s.store.SetStatus(ctx, p.ID, domain.StatusPlanCheckComments); err != nil {
				return err
			}
		}

		if docType.Slug == domain.DocTypePlans {
			if err := s.store.IncrementStampPlansCount(ctx, p.ID); err != nil {
				return err
			}
			p.StampPlansRequestCount++
			if p.StampPlansRequestCount > domain.FreeRestampLimit && !actor.HasRole(auth.RolePzseEngineer) {
				if err := s.payments.PayForService(ctx, actor, domain.ServiceAdditionalRestamp, p); err != nil {
					return err
				}
			}
		}

		comment := &domain.Comment{
			ProjectID:   p.ID,
			CommentedBy: actor.ID,
			Notes:       in.Notes,
		}
		if err := s.store.CreateComment(ctx, comment); err != nil {
			return err
		}

		for _, f := range in.Files {
			key := documentKey(p.ID, docType.SavePath, f.Name)
			if err := s.files.Put(ctx, key, f.Data, f.ContentType); err != nil {
				return err
			}

			doc := &domain.Document{
				ProjectID:  p.ID,
				UploadedBy: actor.ID,
				FileName:   f.Name,
				TypeID:     docType.ID,
				Visibility: true,
			}
			if err := s.store.CreateDocument(ctx, doc); err != nil {
				return err
			}
			if err := s.store.AttachCommentDocument(ctx, comment.ID, doc.ID); err != nil {
				return err
			}
		}

		s.publish(ctx, events.SelectUploadEvent(actor, docType.Slug), p.ID, actor.ID)
		return nil
	})
	if err != nil {
		return s.classify(err)
	}
	return nil
}

// ProjectFiles is the document listing for one project.
type ProjectFiles struct {
	Documents []domain.Document `json:"documents"`
	Comments  []domain.Comment  `json:"comments"`
}

// ListDocuments returns the project's documents and comments. Clients
// only see visible documents; staff also get the unsigned letter
// variants.
func (s *Service) ListDocuments(ctx context.Context, actor auth.Actor, projectID int64) (*ProjectFiles, error) {
	p, err := s.store.ProjectByID(ctx, projectID)
	if err != nil {
		return nil, s.classify(err)
	}

	docs, err := s.store.DocumentsByProject(ctx, p.ID, !actor.IsStaff())
	if err != nil {
		return nil, s.classify(err)
	}
	comments, err := s.store.CommentsByProject(ctx, p.ID)
	if err != nil {
		return nil, s.classify(err)
	}
	return &ProjectFiles{Documents: docs, Comments: comments}, nil
}

// DownloadDocument streams a stored document. Staff downloading a
// generated letter get a zip holding both variants of its bundle;
// everyone else gets the single visible file.
func (s *Service) DownloadDocument(ctx context.Context, actor auth.Actor, documentID int64) (*FileDownload, error) {
	doc, err := s.store.DocumentByID(ctx, documentID)
	if err != nil {
		return nil, s.classify(err)
	}
	docType, err := s.store.DocumentTypeByID(ctx, doc.TypeID)
	if err != nil {
		return nil, s.classify(err)
	}

	if actor.IsStaff() && doc.BundleID != "" {
		bundled, err := s.store.BundledDocument(ctx, doc.BundleID)
		if err != nil {
			return nil, s.classify(err)
		}
		if bundled != nil && bundled.ID != doc.ID {
			return s.zipBundle(ctx, doc, bundled, docType)
		}
	}

	data, err := s.fetchObject(ctx, documentKey(doc.ProjectID, docType.SavePath, doc.FileName))
	if err != nil {
		return nil, s.classify(err)
	}
	return &FileDownload{Name: doc.FileName, ContentType: "application/octet-stream", Data: data}, nil
}

// NotifyDocumentUploaded emits the upload event for files persisted
// outside this workflow, for example direct browser uploads.
func (s *Service) NotifyDocumentUploaded(ctx context.Context, actor auth.Actor, projectID, typeID int64) error {
	docType, err := s.store.DocumentTypeByID(ctx, typeID)
	if err != nil {
		return s.classify(err)
	}
	s.publish(ctx, events.SelectUploadEvent(actor, docType.Slug), projectID, actor.ID)
	return nil
}

func (s *Service) zipBundle(ctx context.Context, a, b *domain.Document, docType *domain.DocumentType) (*FileDownload, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, doc := range []*domain.Document{a, b} {
		data, err := s.fetchObject(ctx, documentKey(doc.ProjectID, docType.SavePath, doc.FileName))
		if err != nil {
			return nil, s.classify(err)
		}
		w, err := zw.Create(doc.FileName)
		if err != nil {
			return nil, fmt.Errorf("zip entry %s: %w", doc.FileName, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("zip write %s: %w", doc.FileName, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}

	return &FileDownload{
		Name:        fmt.Sprintf("letters-%s.zip", a.BundleID),
		ContentType: "application/zip",
		Data:        buf.Bytes(),
	}, nil
}

func (s *Service) fetchObject(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.files.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func documentKey(projectID int64, savePath, fileName string) string {
	return fmt.Sprintf("active/%d/%s/%s", projectID, savePath, fileName)
}
