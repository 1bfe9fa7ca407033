package editor

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/mirror520/collab/ai"
	"github.com/mirror520/collab/conf"
	"github.com/mirror520/collab/session"
)

var ErrReadOnly = errors.New("editor is read-only")

type Mode int

const (
	Editable Mode = iota
	WatchMode
	ReadOnlyNotOwner
)

func (m Mode) String() string {
	switch m {
	case Editable:
		return "editable"
	case WatchMode:
		return "watch"
	case ReadOnlyNotOwner:
		return "read_only"
	default:
		return ""
	}
}

type State int

const (
	Clean State = iota
	DirtyPending
	Saving
)

func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case DirtyPending:
		return "dirty_pending"
	case Saving:
		return "saving"
	default:
		return ""
	}
}

type SaveFunc func(ctx context.Context, code string) error

type SuggestFunc func(ctx context.Context, req ai.Request) (string, bool)

type Option func(*Editor)

func WithSuggester(fn SuggestFunc) Option {
	return func(e *Editor) {
		e.suggest = fn
	}
}

// OnSuggestion is called with every accepted suggestion.
func OnSuggestion(fn func(text string)) Option {
	return func(e *Editor) {
		e.onSuggestion = fn
	}
}

// OnError is called when a save fails.
func OnError(fn func(err error)) Option {
	return func(e *Editor) {
		e.onError = fn
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(e *Editor) {
		e.log = log
	}
}

// Editor holds the local buffer of one open session. Edits are saved after
// the save delay passes without further edits, and suggestions are requested
// after the suggest delay, each on its own timer.
type Editor struct {
	sessionID string
	language  string
	mode      Mode
	state     State
	buffer    string
	cursor    session.Position

	generation  uint64 // bumped by every local edit
	savedGen    uint64
	saving      bool
	flushQueued bool
	suggestion  string
	closed      bool

	save         SaveFunc
	suggest      SuggestFunc
	onSuggestion func(string)
	onError      func(error)

	saveTimer    *Debouncer
	suggestTimer *Debouncer
	log          *zap.Logger
	ctx          context.Context
	cancel       context.CancelFunc
	mu           sync.Mutex
}

func ModeFor(s *session.Session, actorID string, watch bool) Mode {
	switch {
	case watch:
		return WatchMode
	case s.IsOwner(actorID):
		return Editable
	default:
		return ReadOnlyNotOwner
	}
}

func New(s *session.Session, mode Mode, cfg conf.Sync, save SaveFunc, opts ...Option) *Editor {
	e := &Editor{
		sessionID: s.ID,
		language:  string(s.Language),
		mode:      mode,
		state:     Clean,
		buffer:    s.Code,
		save:      save,
		log:       zap.L(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.log = e.log.With(
		zap.String("editor", s.ID),
		zap.String("mode", mode.String()),
	)

	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.saveTimer = NewDebouncer(cfg.SaveDelay, e.flush)
	e.suggestTimer = NewDebouncer(cfg.SuggestDelay, e.requestSuggestion)

	return e
}

func (e *Editor) SessionID() string {
	return e.sessionID
}

func (e *Editor) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Editor) Buffer() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffer
}

func (e *Editor) Suggestion() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.suggestion
}

// Edit replaces the local buffer. Every call re-arms both timers.
func (e *Editor) Edit(code string, cursor session.Position) error {
	e.mu.Lock()

	if e.mode != Editable {
		e.mu.Unlock()
		return ErrReadOnly
	}

	if e.closed {
		e.mu.Unlock()
		return context.Canceled
	}

	e.buffer = code
	e.cursor = cursor
	e.generation++
	e.suggestion = ""

	// a save already in flight holds an older generation
	e.state = DirtyPending

	worth := e.suggest != nil && ai.Worth(code)
	e.mu.Unlock()

	e.saveTimer.Trigger()

	if worth {
		e.suggestTimer.Trigger()
	} else {
		e.suggestTimer.Stop()
	}

	return nil
}

// ApplyRemote takes the code of a session update. Watchers always take it;
// the owner only while the local buffer has no unsaved edits.
func (e *Editor) ApplyRemote(code string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.mode == Editable && e.state != Clean {
		return false
	}

	e.buffer = code
	return true
}

// Flush saves pending edits now instead of waiting for the save timer.
func (e *Editor) Flush() {
	e.saveTimer.Stop()
	e.flush()
}

func (e *Editor) flush() {
	e.mu.Lock()

	if e.closed {
		e.mu.Unlock()
		return
	}

	if e.saving {
		e.flushQueued = true
		e.mu.Unlock()
		return
	}

	if e.generation == e.savedGen {
		e.mu.Unlock()
		return
	}

	gen := e.generation
	code := e.buffer
	e.state = Saving
	e.saving = true
	e.mu.Unlock()

	err := e.save(e.ctx, code)

	e.mu.Lock()
	e.saving = false

	if err != nil {
		e.state = DirtyPending
		e.flushQueued = false
		e.mu.Unlock()

		e.log.Error(err.Error(), zap.String("action", "save"))
		if e.onError != nil {
			e.onError(err)
		}
		return
	}

	e.savedGen = gen

	// edits made while saving are still unsaved
	if e.generation == gen {
		e.state = Clean
	} else {
		e.state = DirtyPending
	}

	again := e.flushQueued && e.state == DirtyPending
	e.flushQueued = false
	e.mu.Unlock()

	if again {
		e.flush()
	}
}

func (e *Editor) requestSuggestion() {
	e.mu.Lock()

	if e.closed || e.suggest == nil {
		e.mu.Unlock()
		return
	}

	gen := e.generation
	line := e.cursor.Line
	if line < 1 {
		line = 1
	}

	req := ai.Request{
		Intent:   ai.Complete,
		Code:     ai.Window(e.buffer, line, ai.WindowRadius),
		Language: e.language,
		Line:     line,
	}
	e.mu.Unlock()

	text, ok := e.suggest(e.ctx, req)
	if !ok || !ai.Acceptable(text) {
		return
	}

	e.mu.Lock()

	// the buffer moved on while the request was in flight
	if gen != e.generation || e.closed {
		e.mu.Unlock()
		return
	}

	e.suggestion = text
	callback := e.onSuggestion
	e.mu.Unlock()

	if callback != nil {
		callback(text)
	}
}

// Close stops both timers and cancels any request in flight. Unsaved edits
// are dropped; call Flush first to keep them.
func (e *Editor) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	e.saveTimer.Stop()
	e.suggestTimer.Stop()
	e.cancel()
}
