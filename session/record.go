package session

import (
	"encoding/json"
	"fmt"

	"github.com/mirror520/collab/document"
)

const schemaVersion = 1

type record struct {
	SchemaVersion   int    `json:"schemaVersion"`
	WorkspaceID     string `json:"workspaceId"`
	UserID          string `json:"userId"`
	UserName        string `json:"userName"`
	Language        string `json:"language"`
	Title           string `json:"title"`
	Code            string `json:"code"`
	CursorPositions string `json:"cursorPositions,omitempty"`
	Selections      string `json:"selections,omitempty"`
}

func encode(s *Session) (document.Fields, error) {
	return document.NewFields(&record{
		SchemaVersion: schemaVersion,
		WorkspaceID:   s.WorkspaceID,
		UserID:        s.UserID,
		UserName:      s.UserName,
		Language:      string(s.Language),
		Title:         s.Title,
		Code:          s.Code,
	})
}

func encodeCode(code string) (document.Fields, error) {
	return document.NewFields(map[string]any{
		"code": code,
	})
}

func encodeCursors(s *Session) (document.Fields, error) {
	cursors, err := json.Marshal(s.CursorPositions)
	if err != nil {
		return nil, err
	}

	selections, err := json.Marshal(s.Selections)
	if err != nil {
		return nil, err
	}

	return document.NewFields(map[string]any{
		"cursorPositions": string(cursors),
		"selections":      string(selections),
	})
}

func decode(doc *document.Document) (*Session, error) {
	var r record
	if err := doc.Decode(&r); err != nil {
		return nil, err
	}

	if r.WorkspaceID == "" || r.UserID == "" {
		return nil, fmt.Errorf("%w: session %s: missing workspace or user", document.ErrMalformedDocument, doc.ID)
	}

	s := &Session{
		ID:              doc.ID,
		WorkspaceID:     r.WorkspaceID,
		UserID:          r.UserID,
		UserName:        r.UserName,
		Language:        Language(r.Language),
		Title:           r.Title,
		Code:            r.Code,
		CursorPositions: make(map[string]Position),
		Selections:      make(map[string]Range),
		Revision:        doc.Revision,
		Model:           doc.Model,
	}

	if r.CursorPositions != "" && r.CursorPositions != "null" {
		if err := json.Unmarshal([]byte(r.CursorPositions), &s.CursorPositions); err != nil {
			return nil, fmt.Errorf("%w: session %s: %w", document.ErrMalformedDocument, doc.ID, err)
		}
	}

	if r.Selections != "" && r.Selections != "null" {
		if err := json.Unmarshal([]byte(r.Selections), &s.Selections); err != nil {
			return nil, fmt.Errorf("%w: session %s: %w", document.ErrMalformedDocument, doc.ID, err)
		}
	}

	return s, nil
}
