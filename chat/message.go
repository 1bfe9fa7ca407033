package chat

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mirror520/collab/document"
	"github.com/mirror520/collab/model"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrEmptyContent    = fmt.Errorf("%w: message content is empty", model.ErrValidation)
	ErrEmptyWorkspace  = fmt.Errorf("%w: workspace id is empty", model.ErrValidation)
)

const DefaultLimit = 50

type MessageType string

const Text MessageType = "text"

type Message struct {
	ID          string      `json:"id"`
	WorkspaceID string      `json:"workspaceId"`
	UserID      string      `json:"userId"`
	UserName    string      `json:"userName"`
	Content     string      `json:"content"`
	Type        MessageType `json:"type"`
	Timestamp   string      `json:"timestamp"`
}

func NewMessage(workspaceID string, userID string, userName string, content string, now time.Time) (*Message, error) {
	if workspaceID == "" {
		return nil, ErrEmptyWorkspace
	}

	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	return &Message{
		WorkspaceID: workspaceID,
		UserID:      userID,
		UserName:    userName,
		Content:     content,
		Type:        Text,
		Timestamp:   model.FormatTime(now),
	}, nil
}

func (m *Message) Time() time.Time {
	t, _ := model.ParseTime(m.Timestamp)
	return t
}

// Less orders messages by timestamp, then by id.
func Less(a *Message, b *Message) bool {
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	return a.ID < b.ID
}

// Insert places m into msgs, kept in timestamp order. A message whose id is
// already present is dropped and Insert reports false.
func Insert(msgs []*Message, m *Message) ([]*Message, bool) {
	for _, existing := range msgs {
		if existing.ID == m.ID {
			return msgs, false
		}
	}

	i := sort.Search(len(msgs), func(i int) bool {
		return Less(m, msgs[i])
	})

	msgs = append(msgs, nil)
	copy(msgs[i+1:], msgs[i:])
	msgs[i] = m

	return msgs, true
}

type record struct {
	WorkspaceID string `json:"workspaceId"`
	UserID      string `json:"userId"`
	UserName    string `json:"userName"`
	Content     string `json:"content"`
	Type        string `json:"type"`
	Timestamp   string `json:"timestamp"`
}

func encode(m *Message) (document.Fields, error) {
	return document.NewFields(&record{
		WorkspaceID: m.WorkspaceID,
		UserID:      m.UserID,
		UserName:    m.UserName,
		Content:     m.Content,
		Type:        string(m.Type),
		Timestamp:   m.Timestamp,
	})
}

func decode(doc *document.Document) (*Message, error) {
	var r record
	if err := doc.Decode(&r); err != nil {
		return nil, err
	}

	if r.WorkspaceID == "" || r.Timestamp == "" {
		return nil, fmt.Errorf("%w: message %s: missing workspace or timestamp", document.ErrMalformedDocument, doc.ID)
	}

	if r.Type == "" {
		r.Type = string(Text)
	}

	return &Message{
		ID:          doc.ID,
		WorkspaceID: r.WorkspaceID,
		UserID:      r.UserID,
		UserName:    r.UserName,
		Content:     r.Content,
		Type:        MessageType(r.Type),
		Timestamp:   r.Timestamp,
	}, nil
}
