package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/oklog/ulid/v2"

	"github.com/mirror520/collab/model"
)

var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrDocumentExists    = errors.New("document already exists")
	ErrRevisionConflict  = errors.New("revision conflict")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrMalformedDocument = errors.New("malformed document")
)

// Revision increases by one on every committed write, starting at 1.
type Revision uint64

// AnyRevision skips the compare-and-swap check on Update and Delete.
const AnyRevision Revision = 0

func (rev Revision) String() string {
	return strconv.FormatUint(uint64(rev), 10)
}

type ConflictError struct {
	Collection string
	ID         string
	Expected   Revision
	Current    Revision
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("revision conflict: %s/%s expected %d, current %d",
		e.Collection, e.ID, e.Expected, e.Current)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrRevisionConflict
}

func NewID() string {
	return ulid.Make().String()
}

// Fields is a flat JSON object. Nested values are allowed but are always
// replaced whole by Merge.
type Fields map[string]json.RawMessage

func NewFields(v any) (Fields, error) {
	bs, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var fields Fields
	if err := json.Unmarshal(bs, &fields); err != nil {
		return nil, err
	}

	return fields, nil
}

func (f Fields) Decode(v any) error {
	bs, err := json.Marshal(f)
	if err != nil {
		return err
	}

	return json.Unmarshal(bs, v)
}

func (f Fields) String(name string) string {
	raw, ok := f[name]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}

	return s
}

func (f Fields) Clone() Fields {
	clone := make(Fields, len(f))
	for k, v := range f {
		clone[k] = append(json.RawMessage(nil), v...)
	}
	return clone
}

// Merge returns a copy of f where every field present in partial replaces
// the existing value.
func (f Fields) Merge(partial Fields) Fields {
	merged := f.Clone()
	for k, v := range partial {
		merged[k] = append(json.RawMessage(nil), v...)
	}
	return merged
}

type Document struct {
	ID         string   `json:"id"`
	Collection string   `json:"collection"`
	Revision   Revision `json:"revision"`
	Fields     Fields   `json:"fields"`
	model.Model
}

func (d *Document) Clone() *Document {
	clone := *d
	clone.Fields = d.Fields.Clone()
	return &clone
}

func (d *Document) Decode(v any) error {
	if err := d.Fields.Decode(v); err != nil {
		return fmt.Errorf("%w: %s/%s: %w", ErrMalformedDocument, d.Collection, d.ID, err)
	}

	return nil
}
