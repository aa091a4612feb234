package analysis

import (
	"encoding/json"
	"errors"
)

// ErrEmptyResult marks a completed analysis whose payload projected to
// nothing usable.
var ErrEmptyResult = errors.New("analysis completed without usable data")

// Result is the projection of a completed analysis payload.
type Result struct {
	Summary   string
	Topics    []string
	KeyPoints []string
}

// ParseResult projects a raw payload into a Result. Fields with an
// unexpected shape are coerced to their empty value; a projection where
// every field ends up empty is an error, not a silent success.
func ParseResult(raw json.RawMessage) (*Result, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyResult
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, ErrEmptyResult
	}
	result := &Result{
		Summary:   coerceString(payload["summary"]),
		Topics:    coerceStrings(payload["topics"]),
		KeyPoints: coerceStrings(payload["key_points"]),
	}
	if result.Summary == "" && len(result.Topics) == 0 && len(result.KeyPoints) == 0 {
		return nil, ErrEmptyResult
	}
	return result, nil
}

func coerceString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func coerceStrings(raw json.RawMessage) []string {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := coerceString(item); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
