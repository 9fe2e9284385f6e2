package debate

// SessionStatus represents the current state of a debate session.
type SessionStatus string

const (
	// StatusPending indicates the session exists but no turn has been taken.
	StatusPending SessionStatus = "pending"

	// StatusActive indicates turns are being taken.
	StatusActive SessionStatus = "active"

	// StatusEnded indicates all 2R turns were taken.
	StatusEnded SessionStatus = "ended"

	// StatusTerminated indicates the terminate policy stopped the debate
	// after a failed turn.
	StatusTerminated SessionStatus = "terminated"

	// StatusCanceled indicates the run context was canceled mid-debate.
	StatusCanceled SessionStatus = "canceled"
)

// Terminal reports whether no further turn can be recorded.
func (s SessionStatus) Terminal() bool {
	return s == StatusEnded || s == StatusTerminated || s == StatusCanceled
}

// Role is a debate seat.
type Role string

const (
	RoleA Role = "A"
	RoleB Role = "B"
)

// FailurePolicy decides what a failed turn does to the debate.
type FailurePolicy string

const (
	// PolicyPlaceholder records a placeholder turn and continues.
	PolicyPlaceholder FailurePolicy = "placeholder"
	// PolicyTerminate stops the debate and keeps the partial transcript.
	PolicyTerminate FailurePolicy = "terminate"
)
