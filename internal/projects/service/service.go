// Package service drives the IEBC project workflow: step capture, the
// three finish transitions, wet-stamp handling, documents, comments and
// letter generation. Every mutating operation runs inside one
// transaction; collaborators are injected through narrow interfaces so
// the branching rules are testable without live infrastructure.
package service

import (
	"context"
	"errors"

	"github.com/pzse-platform/iebc-backend/internal/auth"
	"github.com/pzse-platform/iebc-backend/internal/compliance"
	"github.com/pzse-platform/iebc-backend/internal/events"
	"github.com/pzse-platform/iebc-backend/internal/letters"
	"github.com/pzse-platform/iebc-backend/internal/lookup"
	"github.com/pzse-platform/iebc-backend/internal/projects/domain"
)

// ErrOperationFailed is the generic failure surfaced for any
// unclassified error after the transaction rolled back. The underlying
// cause is logged, never returned to the caller.
var ErrOperationFailed = errors.New("operation failed")

// Store is the persistence surface of the workflow. Implementations
// must honor InTx: every call made with the inner context joins one
// transaction that commits or rolls back as a whole.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error

	CreateProject(ctx context.Context, p *domain.Project, meta *domain.ProjectMeta) error
	ProjectByID(ctx context.Context, id int64) (*domain.Project, error)
	// ProjectWithMeta loads the project with meta and reference
	// associations, locking the row when called inside a transaction.
	ProjectWithMeta(ctx context.Context, id int64) (*domain.Project, error)
	UpdateProject(ctx context.Context, p *domain.Project) error
	UpdateMeta(ctx context.Context, meta *domain.ProjectMeta) error
	SetStatus(ctx context.Context, projectID int64, status string) error
	SetStatusAndType(ctx context.Context, projectID int64, status, projectType string) error
	SetWetSignRequested(ctx context.Context, projectID int64, state int) error
	SetLetterRegenerated(ctx context.Context, projectID int64) error
	IncrementStampPlansCount(ctx context.Context, projectID int64) error

	BuildingDescriptionByID(ctx context.Context, id int64) (*domain.BuildingDescription, error)
	SurroundingTerrainByID(ctx context.Context, id int64) (*domain.SurroundingTerrain, error)
	ExistingRoofLoadByID(ctx context.Context, id int64) (*domain.ExistingRoofLoad, error)

	DocumentTypeByID(ctx context.Context, id int64) (*domain.DocumentType, error)
	DocumentTypeBySlug(ctx context.Context, slug string) (*domain.DocumentType, error)
	DocumentByID(ctx context.Context, id int64) (*domain.Document, error)
	// BundledDocument returns the invisible counterpart sharing the
	// bundle id, or nil when there is none.
	BundledDocument(ctx context.Context, bundleID string) (*domain.Document, error)
	HasDocumentOfType(ctx context.Context, projectID int64, typeSlug string) (bool, error)
	// DocumentsByProject lists project documents newest first; visibleOnly
	// hides the unsigned letter variants from clients.
	DocumentsByProject(ctx context.Context, projectID int64, visibleOnly bool) ([]domain.Document, error)
	CommentsByProject(ctx context.Context, projectID int64) ([]domain.Comment, error)
	CreateDocument(ctx context.Context, d *domain.Document) error
	CreateComment(ctx context.Context, c *domain.Comment) error
	AttachCommentDocument(ctx context.Context, commentID, documentID int64) error

	CreateShippingProfile(ctx context.Context, sp *domain.ShippingProfile) error
	ShippingProfileByID(ctx context.Context, id int64) (*domain.ShippingProfile, error)
	UpdateShippingProfile(ctx context.Context, sp *domain.ShippingProfile) error
	AttachShippingProfile(ctx context.Context, projectID, profileID int64) error
	DetachShippingProfile(ctx context.Context, profileID int64) error
	UpdateShippingTracking(ctx context.Context, projectID int64, trackingNumber, notes string) error

	// ProjectOverrides returns manually recorded snow/wind values, or
	// nil when the project has none.
	ProjectOverrides(ctx context.Context, projectID int64) (*domain.AhjOverride, error)
}

// PaymentGate executes charges and refunds. Callers decide role
// exemptions before invoking it.
type PaymentGate interface {
	PayForProject(ctx context.Context, actor auth.Actor, p *domain.Project) error
	PayForService(ctx context.Context, actor auth.Actor, slug string, p *domain.Project) error
	ServicePrice(ctx context.Context, slug string) (int64, error)
	Refund(ctx context.Context, accountID string, cents int64) error
}

// Validator checks compliance triples against the configured rule set.
type Validator interface {
	Validate(sel compliance.Selection, names compliance.Names) compliance.Result
	ValidatePair(sel compliance.Selection, names compliance.Names) compliance.Result
	ValidateRoofLoad(sel compliance.Selection) compliance.Result
}

// LocationResolver is the climate/ATC lookup adapter.
type LocationResolver interface {
	DoLookup(ctx context.Context, p *domain.Project) (lookup.Result, error)
	DoLookupEngineerValues(ctx context.Context, p *domain.Project, ov *lookup.Override) (map[string]string, error)
	CheckLocation(ctx context.Context, p *domain.Project) (lookup.Location, error)
	CacheIfMoved(ctx context.Context, p *domain.Project, loc lookup.Location, res lookup.Result)
}

// LetterGenerator renders one letter variant per call.
type LetterGenerator interface {
	Generate(ctx context.Context, p *domain.Project, view letters.ViewContext, regenerated bool, sharedID string, signed bool) (*letters.GeneratedLetter, error)
	RenderPDF(ctx context.Context, view letters.ViewContext) ([]byte, error)
	PreviewHTML(view letters.ViewContext) (string, error)
}

// StampSource resolves the per-state stamp files.
type StampSource interface {
	FilesByState(ctx context.Context, state string) (letters.StampFiles, bool, error)
}

// PDFSigner applies the digital signature to a rendered PDF file.
type PDFSigner interface {
	SignFile(inputPath, outputPath string) error
}

// EventBus publishes lifecycle events; delivery is fire-and-forget.
type EventBus interface {
	Publish(ctx context.Context, e events.Event) error
}

// FileStore persists uploaded documents and serves stored files.
type FileStore = letters.ObjectStore

// Service orchestrates the workflow.
type Service struct {
	store     Store
	validator Validator
	payments  PaymentGate
	resolver  LocationResolver
	generator LetterGenerator
	stamps    StampSource
	signer    PDFSigner
	files     FileStore
	bus       EventBus
	scratch   *letters.Scratch
}

func New(store Store, validator Validator, payments PaymentGate, resolver LocationResolver,
	generator LetterGenerator, stamps StampSource, signer PDFSigner, files FileStore,
	bus EventBus, scratch *letters.Scratch) *Service {
	return &Service{
		store:     store,
		validator: validator,
		payments:  payments,
		resolver:  resolver,
		generator: generator,
		stamps:    stamps,
		signer:    signer,
		files:     files,
		bus:       bus,
		scratch:   scratch,
	}
}
