// Package events selects and publishes project lifecycle notifications.
// Selection is pure so the role/type branching can be tested without a
// broker; delivery goes over Redis pub/sub and is fire-and-forget.
package events

import (
	"time"

	"github.com/pzse-platform/iebc-backend/internal/auth"
)

type Kind string

const (
	// ProjectCreated marks a committed finish transition, whether the
	// project completed or was routed to an engineer.
	ProjectCreated           Kind = "project.created"
	ProjectStatusChanged     Kind = "project.status_changed"
	WetStampRequested        Kind = "project.wet_stamp_requested"
	WetStampCancelled        Kind = "project.wet_stamp_cancelled"
	ProjectCommented         Kind = "project.commented"
	PzseUserCommentedProject Kind = "project.commented.pzse"
	PlanCheckCommentAdded    Kind = "project.plan_check_comment_added"
	PlanCheckFileAdded       Kind = "project.plan_check_file_added"
	ClientUploadedDocument   Kind = "project.document_uploaded.client"
	PzseUploadedDocument     Kind = "project.document_uploaded.pzse"
	DocumentUploaded         Kind = "project.document_uploaded"
)

// Event is one lifecycle notification. Delivery is the broker's concern;
// the core only decides which kind to emit.
type Event struct {
	Kind      Kind      `json:"kind"`
	ProjectID int64     `json:"project_id"`
	ActorID   string    `json:"actor_id,omitempty"`
	At        time.Time `json:"at"`
}

// SelectCommentEvent maps a comment to the event it should emit.
// Plan-check comments trump role-based selection.
func SelectCommentEvent(actor auth.Actor, planCheck bool) Kind {
	switch {
	case planCheck:
		return PlanCheckCommentAdded
	case actor.IsClient():
		return ProjectCommented
	case actor.IsStaff():
		return PzseUserCommentedProject
	default:
		return ProjectCommented
	}
}

// SelectUploadEvent maps a document upload to the event it should emit.
func SelectUploadEvent(actor auth.Actor, docSlug string) Kind {
	switch {
	case docSlug == "plan_check_comments":
		return PlanCheckFileAdded
	case actor.IsClient():
		return ClientUploadedDocument
	case actor.IsStaff():
		return PzseUploadedDocument
	default:
		return DocumentUploaded
	}
}
