package policy

import (
	"bytes"
	"context"

	_ "embed"

	"github.com/open-policy-agent/opa/rego"
	"github.com/open-policy-agent/opa/storage"
	"github.com/open-policy-agent/opa/storage/inmem"
)

type Action string

const (
	CreateWorkspace Action = "workspace.create"
	JoinWorkspace   Action = "workspace.join"
	ReadWorkspace   Action = "workspace.read"
	LeaveWorkspace  Action = "workspace.leave"
	UpdateSettings  Action = "workspace.update_settings"
	DeleteWorkspace Action = "workspace.delete"

	CreateSession Action = "session.create"
	ReadSession   Action = "session.read"
	ForkSession   Action = "session.fork"
	UpdateCode    Action = "session.update_code"
	UpdateCursor  Action = "session.update_cursor"
	DeleteSession Action = "session.delete"

	RequestMerge Action = "merge.request"
	ReadMerge    Action = "merge.read"
	ResolveMerge Action = "merge.resolve"

	ReadChat    Action = "chat.read"
	SendMessage Action = "chat.send"
	DeleteChat  Action = "chat.delete"

	Suggest Action = "ai.suggest"
)

// Resource carries the attributes of the target a rule can look at.
type Resource struct {
	Owner           string   `json:"owner,omitempty"`
	Members         []string `json:"members"`
	Author          string   `json:"author,omitempty"`
	Recipient       string   `json:"recipient,omitempty"`
	TextChatEnabled bool     `json:"textChatEnabled"`
}

type Input struct {
	Action   Action   `json:"action"`
	Actor    string   `json:"actor"`
	Resource Resource `json:"resource"`
}

type Policy interface {
	Eval(ctx context.Context, input any) (bool, error)
}

//go:embed authz.rego
var module string

//go:embed data.json
var data []byte

type regoPolicy struct {
	query *rego.PreparedEvalQuery
	store storage.Store
}

func NewRegoPolicy(ctx context.Context) (Policy, error) {
	store := inmem.NewFromReader(bytes.NewReader(data))

	query, err := rego.New(
		rego.Module("authz.rego", module),
		rego.Query("data.collab.authz.allow"),
		rego.Store(store),
	).PrepareForEval(ctx)

	if err != nil {
		return nil, err
	}

	return &regoPolicy{
		&query,
		store,
	}, nil
}

func (policy *regoPolicy) Eval(ctx context.Context, input any) (bool, error) {
	results, err := policy.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, err
	}

	return results.Allowed(), nil
}
