package domain

const (
	RoleClient     = "CLIENT"
	RoleTechnician = "TECHNICIAN"
	RoleAdmin      = "ADMIN"
)

// Job lifecycle states. REJECTED, CANCELLED and COMPLETED are terminal.
const (
	JobPending    = "PENDING"
	JobNeedsVisit = "NEEDS_VISIT"
	JobQuoted     = "QUOTED"
	JobAccepted   = "ACCEPTED"
	JobInProgress = "IN_PROGRESS"
	JobCompleted  = "COMPLETED"
	JobRejected   = "REJECTED"
	JobCancelled  = "CANCELLED"
	JobDisputed   = "DISPUTED"
)

// Provider-side payment states. APPROVED never regresses.
const (
	PaymentPending   = "PENDING"
	PaymentInProcess = "IN_PROCESS"
	PaymentApproved  = "APPROVED"
	PaymentRejected  = "REJECTED"
	PaymentCancelled = "CANCELLED"
	PaymentRefunded  = "REFUNDED"
)

const (
	ReportPending  = "PENDING"
	ReportInReview = "IN_REVIEW"
	ReportResolved = "RESOLVED"
	ReportRejected = "REJECTED"
)

const (
	NotifNewJob  = "NEW_JOB"
	NotifSystem  = "SYSTEM"
	NotifPayment = "PAYMENT"
	NotifRating  = "RATING"
	NotifDispute = "DISPUTE"
)

// TerminalJobStates are absorbing: no transition may leave them.
var TerminalJobStates = []string{JobRejected, JobCancelled, JobCompleted}

func IsTerminalJobState(s string) bool {
	for _, t := range TerminalJobStates {
		if s == t {
			return true
		}
	}
	return false
}
