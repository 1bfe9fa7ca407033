package document

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"
)

type Operator int

const (
	OpEqual Operator = iota
	OpContains
)

type Filter struct {
	Op    Operator
	Field string
	Value any
}

func Equal(field string, value any) Filter {
	return Filter{OpEqual, field, value}
}

// Contains matches documents whose array field holds value.
func Contains(field string, value any) Filter {
	return Filter{OpContains, field, value}
}

func (f Filter) Match(fields Fields) bool {
	raw, ok := fields[f.Field]
	if !ok {
		return false
	}

	var actual any
	if err := json.Unmarshal(raw, &actual); err != nil {
		return false
	}

	want := normalize(f.Value)

	switch f.Op {
	case OpEqual:
		return reflect.DeepEqual(actual, want)

	case OpContains:
		items, ok := actual.([]any)
		if !ok {
			return false
		}

		for _, item := range items {
			if reflect.DeepEqual(item, want) {
				return true
			}
		}
	}

	return false
}

type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int
}

func (q Query) Match(doc *Document) bool {
	for _, f := range q.Filters {
		if !f.Match(doc.Fields) {
			return false
		}
	}
	return true
}

// Apply filters, orders and truncates docs. Ties, and queries without
// OrderBy, fall back to id order, which for generated ids is creation order.
func (q Query) Apply(docs []*Document) []*Document {
	result := make([]*Document, 0, len(docs))
	for _, doc := range docs {
		if q.Match(doc) {
			result = append(result, doc)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if q.Desc {
			a, b = b, a
		}

		if q.OrderBy != "" {
			if c := compare(a.Fields[q.OrderBy], b.Fields[q.OrderBy]); c != 0 {
				return c < 0
			}
		}

		return a.ID < b.ID
	})

	if q.Limit > 0 && len(result) > q.Limit {
		result = result[:q.Limit]
	}

	return result
}

func normalize(v any) any {
	bs, err := json.Marshal(v)
	if err != nil {
		return v
	}

	var out any
	if err := json.Unmarshal(bs, &out); err != nil {
		return v
	}

	return out
}

func compare(a, b json.RawMessage) int {
	var va, vb any
	json.Unmarshal(a, &va)
	json.Unmarshal(b, &vb)

	switch x := va.(type) {
	case string:
		if y, ok := vb.(string); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}

	case float64:
		if y, ok := vb.(float64); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}

	if va == nil && vb != nil {
		return -1
	}

	if va != nil && vb == nil {
		return 1
	}

	return bytes.Compare(a, b)
}
