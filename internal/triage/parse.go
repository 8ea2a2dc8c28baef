package triage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/spec-kit/ticket-ai/internal/domain"
)

// ErrMalformed is returned when the model output holds no usable JSON object.
var ErrMalformed = errors.New("malformed triage response")

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// response is the schema the model is asked to produce. Fields are kept raw
// and coerced one by one so a single bad field does not discard the rest.
type response struct {
	Summary       json.RawMessage `json:"summary"`
	Priority      json.RawMessage `json:"priority"`
	HelpfulNotes  json.RawMessage `json:"helpfulNotes"`
	RelatedSkills json.RawMessage `json:"relatedSkills"`
}

// ParseResponse validates raw model output. It accepts a fenced code block,
// a bare JSON object, or an object embedded in prose.
func ParseResponse(raw string) (Assessment, error) {
	for _, candidate := range candidates(raw) {
		var r response
		if err := decodeObject(candidate, &r); err != nil {
			continue
		}
		return r.assessment(), nil
	}
	return Assessment{}, ErrMalformed
}

func candidates(raw string) []string {
	var out []string
	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		out = append(out, strings.TrimSpace(m[1]))
	}
	out = append(out, strings.TrimSpace(raw))
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		out = append(out, raw[start:end+1])
	}
	return out
}

func decodeObject(s string, r *response) error {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return fmt.Errorf("%w: not an object", ErrMalformed)
	}
	return json.Unmarshal([]byte(s), r)
}

func (r response) assessment() Assessment {
	priority, _ := domain.ParsePriority(asString(r.Priority))
	return Assessment{
		Summary:       asString(r.Summary),
		Priority:      priority,
		HelpfulNotes:  asString(r.HelpfulNotes),
		RelatedSkills: asStringList(r.RelatedSkills),
	}
}

// asString returns a JSON string value, or "" for anything else.
func asString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// asStringList accepts an array of scalars. Objects, nested arrays and
// nulls inside it are dropped; a non-array yields an empty list.
func asStringList(raw json.RawMessage) []string {
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := scalarString(item); ok {
			out = append(out, s)
		}
	}
	return domain.CleanSkills(out)
}

func scalarString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	switch raw[0] {
	case '"':
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return "", false
		}
		return s, true
	case 't', 'f':
		var b bool
		if json.Unmarshal(raw, &b) != nil {
			return "", false
		}
		return strconv.FormatBool(b), true
	case '{', '[', 'n':
		return "", false
	default:
		var n json.Number
		if json.Unmarshal(raw, &n) != nil {
			return "", false
		}
		return n.String(), true
	}
}
