package domain

import (
	"time"
)

// Status is the lifecycle state of a support session.
type Status string

const (
	StatusNew                 Status = "NEW"
	StatusSelfServeInProgress Status = "SELF_SERVE_IN_PROGRESS"
	StatusEscalatedToHuman    Status = "ESCALATED_TO_HUMAN"
	StatusNeedMoreInfo        Status = "NEED_MORE_INFO" // response-only, never stored on a session
)

// Originator identifies who produced a turn.
type Originator string

const (
	FromCustomer Originator = "customer"
	FromSystem   Originator = "ai"
)

// Turn is a single entry in the session history.
type Turn struct {
	Timestamp time.Time  `json:"ts"`
	From      Originator `json:"from"`
	Text      string     `json:"text"`
}

// Session holds one conversation's history and status.
type Session struct {
	ID         string    `json:"session_id"`
	CustomerID *string   `json:"customer_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Status     Status    `json:"status"`
	History    []Turn    `json:"history"`
}

// NewSession creates an empty session in the NEW state.
func NewSession(id string, customerID *string, now time.Time) *Session {
	now = now.UTC()
	var cid *string
	if customerID != nil {
		v := *customerID
		cid = &v
	}
	return &Session{
		ID:         id,
		CustomerID: cid,
		CreatedAt:  now,
		UpdatedAt:  now,
		Status:     StatusNew,
		History:    []Turn{},
	}
}

// Append adds a turn to the end of the history.
func (s *Session) Append(from Originator, text string, now time.Time) {
	now = now.UTC()
	s.History = append(s.History, Turn{
		Timestamp: now,
		From:      from,
		Text:      text,
	})
	s.UpdatedAt = now
}

// SetStatus records the outcome of the latest message. A session never
// returns to NEW.
func (s *Session) SetStatus(status Status) {
	if status == StatusNew || status == StatusNeedMoreInfo {
		return
	}
	s.Status = status
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.CustomerID != nil {
		v := *s.CustomerID
		c.CustomerID = &v
	}
	c.History = make([]Turn, len(s.History))
	copy(c.History, s.History)
	return &c
}

// Idle returns how long the session has gone without activity.
func (s *Session) Idle(now time.Time) time.Duration {
	return now.Sub(s.UpdatedAt)
}
