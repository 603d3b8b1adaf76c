package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// MaxFilterDepth bounds the nesting of filter groups.
const MaxFilterDepth = 32

// Filter is a node of a client-supplied filter tree: either a FilterGroup or
// a FilterOperation.
type Filter interface {
	isFilter()
}

// FilterMode is the logical operator of a group.
type FilterMode string

// Filter modes. Anything unrecognized combines as AND.
const (
	FilterAnd FilterMode = "AND"
	FilterOr  FilterMode = "OR"
)

// ParseFilterMode maps s to a mode, defaulting to AND.
func ParseFilterMode(s string) FilterMode {
	if strings.EqualFold(strings.TrimSpace(s), string(FilterOr)) {
		return FilterOr
	}
	return FilterAnd
}

// FilterGroup combines its children with Mode. Children may be groups.
type FilterGroup struct {
	Mode     FilterMode
	Children []Filter
}

// FilterOperation is an equality test of Field against Value. A nil Value
// matches NULL.
type FilterOperation struct {
	Field string
	Value any
}

func (FilterGroup) isFilter()     {}
func (FilterOperation) isFilter() {}

type rawFilter struct {
	Type     string            `json:"type"`
	Mode     string            `json:"mode"`
	Field    string            `json:"field"`
	Value    json.RawMessage   `json:"value"`
	Children []json.RawMessage `json:"children"`
}

// ParseFilter decodes the JSON filter tree used by the grid API. Empty input
// yields a nil Filter.
//
//	{"type":"group","mode":"AND","children":[...]}
//	{"type":"operation","field":"author","value":"Orwell"}
//
// A node without "type" is a group when it has "children" and an operation
// otherwise.
func ParseFilter(data []byte) (Filter, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	return parseFilterNode(data, 0)
}

func parseFilterNode(data []byte, depth int) (Filter, error) {
	if depth > MaxFilterDepth {
		return nil, ErrValidation("filter nesting exceeds %d levels", MaxFilterDepth)
	}
	var raw rawFilter
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, ErrValidation("invalid filter: %v", err)
	}

	kind := strings.ToLower(raw.Type)
	if kind == "" {
		kind = "operation"
		if raw.Children != nil {
			kind = "group"
		}
	}

	switch kind {
	case "group":
		g := FilterGroup{Mode: ParseFilterMode(raw.Mode), Children: make([]Filter, 0, len(raw.Children))}
		for _, c := range raw.Children {
			child, err := parseFilterNode(c, depth+1)
			if err != nil {
				return nil, err
			}
			g.Children = append(g.Children, child)
		}
		return g, nil
	case "operation":
		value, err := decodeJSONValue(raw.Value)
		if err != nil {
			return nil, ErrValidation("invalid filter value for %q: %v", raw.Field, err)
		}
		return FilterOperation{Field: raw.Field, Value: value}, nil
	default:
		return nil, ErrValidation("unknown filter node type %q", raw.Type)
	}
}

// decodeJSONValue decodes a scalar keeping numbers as json.Number so integer
// precision survives until coercion.
func decodeJSONValue(data json.RawMessage) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodePayload decodes a JSON object of field values, keeping numbers as
// json.Number.
func DecodePayload(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, ErrValidation("invalid payload: %v", err)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}

// SortTerm is one requested sort key.
type SortTerm struct {
	Field string
	Desc  bool
}

// ParseSort parses a comma-separated sort list. A leading "-" selects
// descending order and is stripped from the field name.
func ParseSort(s string) []SortTerm {
	var terms []SortTerm
	for _, tok := range SplitList(s) {
		desc := strings.HasPrefix(tok, "-")
		name := strings.TrimSpace(strings.TrimPrefix(tok, "-"))
		if name == "" {
			continue
		}
		terms = append(terms, SortTerm{Field: name, Desc: desc})
	}
	return terms
}

// SplitList splits a comma-separated list, dropping empty entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Record is one row of a dataset table keyed by column name.
type Record map[string]any

// GridQuery holds the parameters of a grid read.
type GridQuery struct {
	DatasetID string
	Fields    []string
	Filter    Filter
	Sort      []SortTerm
	Page      int // 0 means first page
	Limit     int // 0 means the configured default
}

// GridRecordQuery selects one non-trashed record.
type GridRecordQuery struct {
	DatasetID string
	RecordID  string
	Fields    []string
}

// GridMeta describes a grid page. Count is the number of rows in this page,
// not the total number of matching rows.
type GridMeta struct {
	Count int `json:"count"`
}

// GridResult is the envelope returned by grid reads.
type GridResult struct {
	Data []Record `json:"data"`
	Meta GridMeta `json:"meta"`
}

// CreateRecordResult identifies a newly created record.
type CreateRecordResult struct {
	ID string `json:"id"`
}

// MutationResult reports the number of rows touched by an update or delete.
type MutationResult struct {
	Count int64 `json:"count"`
}
