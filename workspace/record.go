package workspace

import (
	"encoding/json"
	"fmt"

	"github.com/mirror520/collab/document"
)

const schemaVersion = 1

// record is the persisted shape. Nested maps are stored as JSON strings so
// the document stays flat.
type record struct {
	SchemaVersion int      `json:"schemaVersion"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	OwnerID       string   `json:"ownerId"`
	OwnerName     string   `json:"ownerName"`
	Members       []string `json:"members"`
	MemberNames   string   `json:"memberNames"`
	Settings      string   `json:"settings"`
}

func encode(w *Workspace) (document.Fields, error) {
	names, err := json.Marshal(w.MemberNames)
	if err != nil {
		return nil, err
	}

	settings, err := json.Marshal(w.Settings)
	if err != nil {
		return nil, err
	}

	return document.NewFields(&record{
		SchemaVersion: schemaVersion,
		Name:          w.Name,
		Description:   w.Description,
		OwnerID:       w.OwnerID,
		OwnerName:     w.OwnerName,
		Members:       w.Members,
		MemberNames:   string(names),
		Settings:      string(settings),
	})
}

func encodeMembers(w *Workspace) (document.Fields, error) {
	names, err := json.Marshal(w.MemberNames)
	if err != nil {
		return nil, err
	}

	return document.NewFields(map[string]any{
		"members":     w.Members,
		"memberNames": string(names),
	})
}

func encodeSettings(s Settings) (document.Fields, error) {
	settings, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}

	return document.NewFields(map[string]any{
		"settings": string(settings),
	})
}

func decode(doc *document.Document) (*Workspace, error) {
	var r record
	if err := doc.Decode(&r); err != nil {
		return nil, err
	}

	w := &Workspace{
		ID:          doc.ID,
		Name:        r.Name,
		Description: r.Description,
		OwnerID:     r.OwnerID,
		OwnerName:   r.OwnerName,
		Members:     r.Members,
		MemberNames: make(map[string]string),
		Settings:    DefaultSettings(),
		Revision:    doc.Revision,
		Model:       doc.Model,
	}

	if w.Members == nil {
		w.Members = make([]string, 0)
	}

	if r.MemberNames != "" {
		if err := json.Unmarshal([]byte(r.MemberNames), &w.MemberNames); err != nil {
			return nil, fmt.Errorf("%w: workspace %s: %w", document.ErrMalformedDocument, doc.ID, err)
		}
	}

	if r.Settings != "" {
		if err := json.Unmarshal([]byte(r.Settings), &w.Settings); err != nil {
			return nil, fmt.Errorf("%w: workspace %s: %w", document.ErrMalformedDocument, doc.ID, err)
		}

		if w.Settings.VoiceChatMuted == nil {
			w.Settings.VoiceChatMuted = []string{}
		}
	}

	if err := w.Validate(); err != nil {
		return nil, err
	}

	return w, nil
}
