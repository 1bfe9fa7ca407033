package merge

import (
	"errors"
	"fmt"
	"time"

	"github.com/mirror520/collab/document"
	"github.com/mirror520/collab/model"
)

var (
	ErrRequestNotFound = errors.New("merge request not found")
	ErrAlreadyResolved = errors.New("merge request already resolved")
	ErrInvalidStatus   = fmt.Errorf("%w: invalid merge request status", model.ErrValidation)
	ErrEmptyUser       = fmt.Errorf("%w: user id is empty", model.ErrValidation)
)

type Status string

const (
	Pending  Status = "pending"
	Accepted Status = "accepted"
	Rejected Status = "rejected"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case Pending, Accepted, Rejected:
		return Status(s), nil
	default:
		return "", ErrInvalidStatus
	}
}

type Request struct {
	ID              string            `json:"id"`
	WorkspaceID     string            `json:"workspaceId"`
	FromUserID      string            `json:"fromUserId"`
	FromUserName    string            `json:"fromUserName"`
	ToUserID        string            `json:"toUserId"`
	SessionID       string            `json:"sessionId"`
	ForkedSessionID string            `json:"forkedSessionId"`
	Message         string            `json:"message"`
	Timestamp       string            `json:"timestamp"`
	Status          Status            `json:"status"`
	Revision        document.Revision `json:"revision"`
}

// DefaultMessage is the text sent when the requester gives none.
func DefaultMessage(fromUserName string, title string) string {
	return fmt.Sprintf("%s wants to merge their changes into \"%s\"", fromUserName, title)
}

func (r *Request) Validate() error {
	if r.FromUserID == "" || r.ToUserID == "" {
		return ErrEmptyUser
	}

	return nil
}

func (r *Request) Resolve(status Status) error {
	if status != Accepted && status != Rejected {
		return ErrInvalidStatus
	}

	if r.Status != Pending {
		return ErrAlreadyResolved
	}

	r.Status = status
	return nil
}

type record struct {
	WorkspaceID     string `json:"workspaceId"`
	FromUserID      string `json:"fromUserId"`
	FromUserName    string `json:"fromUserName"`
	ToUserID        string `json:"toUserId"`
	SessionID       string `json:"sessionId"`
	ForkedSessionID string `json:"forkedSessionId"`
	Message         string `json:"message"`
	Timestamp       string `json:"timestamp"`
	Status          string `json:"status"`
}

func encode(r *Request) (document.Fields, error) {
	return document.NewFields(&record{
		WorkspaceID:     r.WorkspaceID,
		FromUserID:      r.FromUserID,
		FromUserName:    r.FromUserName,
		ToUserID:        r.ToUserID,
		SessionID:       r.SessionID,
		ForkedSessionID: r.ForkedSessionID,
		Message:         r.Message,
		Timestamp:       r.Timestamp,
		Status:          string(r.Status),
	})
}

func decode(doc *document.Document) (*Request, error) {
	var rec record
	if err := doc.Decode(&rec); err != nil {
		return nil, err
	}

	status, err := ParseStatus(rec.Status)
	if err != nil {
		return nil, fmt.Errorf("%w: merge request %s: %w", document.ErrMalformedDocument, doc.ID, err)
	}

	return &Request{
		ID:              doc.ID,
		WorkspaceID:     rec.WorkspaceID,
		FromUserID:      rec.FromUserID,
		FromUserName:    rec.FromUserName,
		ToUserID:        rec.ToUserID,
		SessionID:       rec.SessionID,
		ForkedSessionID: rec.ForkedSessionID,
		Message:         rec.Message,
		Timestamp:       rec.Timestamp,
		Status:          status,
		Revision:        doc.Revision,
	}, nil
}

func newTimestamp() string {
	return model.FormatTime(time.Now())
}
