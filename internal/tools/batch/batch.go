package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Outcome statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Outcome is the result of the operation for one item.
type Outcome struct {
	Item    string `json:"item"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Report aggregates the outcomes of a batch.
type Report struct {
	Total     int       `json:"total"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Outcomes  []Outcome `json:"outcomes"`
}

// ParseList accepts a string, a JSON array encoded as a string, or an array
// of strings. Items are trimmed and case-insensitive duplicates dropped,
// keeping the first occurrence.
func ParseList(param any, name string) ([]string, error) {
	if param == nil {
		return nil, fmt.Errorf("%s is required", name)
	}

	var raw []any
	switch v := param.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, fmt.Errorf("%s cannot be empty", name)
		}
		if strings.HasPrefix(s, "[") {
			if err := json.Unmarshal([]byte(s), &raw); err != nil {
				return nil, fmt.Errorf("%s is not a valid JSON array: %w", name, err)
			}
		} else {
			raw = []any{s}
		}
	case []string:
		for _, item := range v {
			raw = append(raw, item)
		}
	case []any:
		raw = v
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", name)
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("%s cannot be empty", name)
	}

	seen := make(map[string]bool, len(raw))
	items := make([]string, 0, len(raw))
	for i, r := range raw {
		s, ok := r.(string)
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be a string", name, i)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, fmt.Errorf("%s[%d] cannot be empty", name, i)
		}
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, s)
	}
	return items, nil
}

// Run calls fn for each item in order. Once ctx is done the remaining items
// are reported as failed without calling fn.
func Run(ctx context.Context, items []string, fn func(ctx context.Context, item string) (string, error)) Report {
	report := Report{Total: len(items), Outcomes: make([]Outcome, 0, len(items))}

	for _, item := range items {
		var (
			msg string
			err = ctx.Err()
		)
		if err == nil {
			msg, err = fn(ctx, item)
		}
		if err != nil {
			report.Failed++
			report.Outcomes = append(report.Outcomes, Outcome{Item: item, Status: StatusError, Error: err.Error()})
			continue
		}
		report.Succeeded++
		report.Outcomes = append(report.Outcomes, Outcome{Item: item, Status: StatusSuccess, Message: msg})
	}
	return report
}

// JSON returns the report as indented JSON.
func (r Report) JSON() string {
	b, _ := json.MarshalIndent(r, "", "  ")
	return string(b)
}
