package workspace

import (
	"errors"
	"fmt"
	"slices"

	"github.com/mirror520/collab/document"
	"github.com/mirror520/collab/model"
)

var (
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrOwnerCannotLeave  = errors.New("owner cannot leave workspace")
	ErrEmptyName         = fmt.Errorf("%w: workspace name is empty", model.ErrValidation)
	ErrEmptyUser         = fmt.Errorf("%w: user id is empty", model.ErrValidation)
)

type Settings struct {
	VoiceChatEnabled bool     `json:"voiceChatEnabled"`
	VoiceChatMuted   []string `json:"voiceChatMuted"`
	TextChatEnabled  bool     `json:"textChatEnabled"`
}

func DefaultSettings() Settings {
	return Settings{
		VoiceChatEnabled: true,
		VoiceChatMuted:   []string{},
		TextChatEnabled:  true,
	}
}

type Workspace struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	OwnerID     string            `json:"ownerId"`
	OwnerName   string            `json:"ownerName"`
	Members     []string          `json:"members"`
	MemberNames map[string]string `json:"memberNames"`
	Settings    Settings          `json:"settings"`
	Revision    document.Revision `json:"revision"`
	model.Model
}

func NewWorkspace(name string, description string, ownerID string, ownerName string) (*Workspace, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	if ownerID == "" {
		return nil, ErrEmptyUser
	}

	return &Workspace{
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		OwnerName:   ownerName,
		Members:     []string{ownerID},
		MemberNames: map[string]string{
			ownerID: ownerName,
		},
		Settings: DefaultSettings(),
	}, nil
}

func (w *Workspace) IsOwner(userID string) bool {
	return w.OwnerID == userID
}

func (w *Workspace) IsMember(userID string) bool {
	return slices.Contains(w.Members, userID)
}

// Join adds userID to the members. It reports false when nothing changed.
func (w *Workspace) Join(userID string, userName string) (bool, error) {
	if userID == "" {
		return false, ErrEmptyUser
	}

	if w.IsMember(userID) && w.MemberNames[userID] == userName {
		return false, nil
	}

	if !w.IsMember(userID) {
		w.Members = append(w.Members, userID)
	}

	if w.MemberNames == nil {
		w.MemberNames = make(map[string]string)
	}
	w.MemberNames[userID] = userName

	return true, nil
}

// Leave removes userID from the members. It reports false when userID was
// not a member.
func (w *Workspace) Leave(userID string) (bool, error) {
	if w.IsOwner(userID) {
		return false, ErrOwnerCannotLeave
	}

	i := slices.Index(w.Members, userID)
	if i < 0 {
		return false, nil
	}

	w.Members = slices.Delete(w.Members, i, i+1)
	delete(w.MemberNames, userID)

	return true, nil
}

func (w *Workspace) Validate() error {
	if w.OwnerID == "" || !w.IsMember(w.OwnerID) {
		return fmt.Errorf("%w: workspace %s: owner is not a member", document.ErrMalformedDocument, w.ID)
	}

	if len(w.MemberNames) != len(w.Members) {
		return fmt.Errorf("%w: workspace %s: member names do not match members", document.ErrMalformedDocument, w.ID)
	}

	seen := make(map[string]struct{}, len(w.Members))
	for _, m := range w.Members {
		if _, ok := seen[m]; ok {
			return fmt.Errorf("%w: workspace %s: duplicate member %s", document.ErrMalformedDocument, w.ID, m)
		}
		seen[m] = struct{}{}

		if _, ok := w.MemberNames[m]; !ok {
			return fmt.Errorf("%w: workspace %s: member names do not match members", document.ErrMalformedDocument, w.ID)
		}
	}

	return nil
}

func (w *Workspace) Clone() *Workspace {
	clone := *w
	clone.Members = slices.Clone(w.Members)
	clone.MemberNames = make(map[string]string, len(w.MemberNames))
	for k, v := range w.MemberNames {
		clone.MemberNames[k] = v
	}
	clone.Settings.VoiceChatMuted = slices.Clone(w.Settings.VoiceChatMuted)
	return &clone
}
