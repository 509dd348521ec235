package session

import "fmt"

// ErrSessionNotFound is returned for unknown or expired session ids.
type ErrSessionNotFound struct {
	SessionID string
}

func (e *ErrSessionNotFound) Error() string {
	return fmt.Sprintf("session %q not found", e.SessionID)
}

// ErrItemNotIssued is returned when a response names an item that is not
// the session's pending item.
type ErrItemNotIssued struct {
	SessionID string
	ItemID    string
}

func (e *ErrItemNotIssued) Error() string {
	return fmt.Sprintf("item %q was not issued to session %q", e.ItemID, e.SessionID)
}

// ErrItemAlreadyAnswered is returned for a second response to an item.
type ErrItemAlreadyAnswered struct {
	SessionID string
	ItemID    string
}

func (e *ErrItemAlreadyAnswered) Error() string {
	return fmt.Sprintf("item %q already answered in session %q", e.ItemID, e.SessionID)
}

// ErrSessionClosed is returned for operations on a finished session.
type ErrSessionClosed struct {
	SessionID string
	Status    Status
}

func (e *ErrSessionClosed) Error() string {
	return fmt.Sprintf("session %q is %s", e.SessionID, e.Status)
}

// ErrInvalidTransition is returned when a status change would move a
// session backwards or out of a terminal state.
type ErrInvalidTransition struct {
	From, To Status
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid session transition %s -> %s", e.From, e.To)
}
