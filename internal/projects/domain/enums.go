package domain

// Project statuses. A project is created PROCESSED (payment pending) and
// moves to one of the finish outcomes; PLAN_CHECK_COMMENTS is set when a
// plan-check document or comment arrives.
const (
	StatusProcessed           = "processed"
	StatusCompleted           = "completed"
	StatusForwardedToEngineer = "forwarded_to_engineer"
	StatusPlanCheckComments   = "plan_check_comments"
)

var statusDescriptions = map[string]string{
	StatusProcessed:           "Processed",
	StatusCompleted:           "Completed",
	StatusForwardedToEngineer: "Forwarded to engineer",
	StatusPlanCheckComments:   "Plan check comments",
}

// StatusDescription returns the display text for a status code.
func StatusDescription(status string) string {
	if d, ok := statusDescriptions[status]; ok {
		return d
	}
	return status
}

// ValidStatus reports whether status is one of the defined codes.
func ValidStatus(status string) bool {
	_, ok := statusDescriptions[status]
	return ok
}

// Project types.
const (
	TypeIEBC             = "iebc"
	TypeIEBCStampedPlans = "iebc_stamped_plans"
)

// Wet-sign request states on ProjectMeta.
const (
	WetSignNone      = 0
	WetSignRequested = 1
	WetSignCancelled = 2
)

// Billable service slugs. Prices live in the services table and are
// resolved at charge time, never cached on the project.
const (
	ServiceIEBCLetter        = "iebc-letter"
	ServiceWetStamp          = "wet-stamp"
	ServiceAdditionalRestamp = "additional-restamp"
)

// Document type slugs the workflow branches on.
const (
	DocTypePlans             = "plans"
	DocTypePlanCheckComments = "plan_check_comments"
	DocTypeLetter            = "letter"
)

// Free re-stamps before additional plan uploads are charged.
const FreeRestampLimit = 5

// ForwardToEngineerStates are regions whose projects always route to a
// human engineer regardless of validation and lookup outcome.
var ForwardToEngineerStates = map[string]bool{"NC": true}
