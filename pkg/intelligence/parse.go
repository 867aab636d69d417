package intelligence

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hireflow/careermem-go/pkg/memory"
)

// ErrParse marks LLM responses that could not be interpreted.
var ErrParse = errors.New("unparseable llm response")

// ParseError reports why an LLM response was rejected.
type ParseError struct {
	// Reason is a short description of the problem.
	Reason string

	// Err is the underlying decode error, if any.
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrParse, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrParse, e.Reason)
}

func (e *ParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrParse, e.Err}
	}
	return []error{ErrParse}
}

// StripCodeFences removes markdown code fences (```json ... ```) and
// surrounding whitespace from an LLM response.
func StripCodeFences(response string) string {
	response = strings.TrimSpace(response)
	if !strings.HasPrefix(response, "```") {
		return response
	}
	response = strings.TrimPrefix(response, "```")
	if nl := strings.IndexByte(response, '\n'); nl >= 0 {
		// drop the language tag line
		if !strings.ContainsAny(response[:nl], "{[") {
			response = response[nl+1:]
		}
	}
	response = strings.TrimSuffix(strings.TrimSpace(response), "```")
	return strings.TrimSpace(response)
}

// idListKeys are the wrapper keys accepted around an id array.
var idListKeys = []string{"ids", "results", "relevant_memories"}

// ParseIDList normalizes the id selection returned by an LLM.
//
// Accepted shapes:
//
//	["a", "b"]
//	{"ids": ["a", "b"]}
//	{"results": [...]}
//	{"relevant_memories": [...]}
//
// Array elements may be strings, numbers, or objects carrying an "id" field.
// Any other shape, or a wrapper whose value is not an array, yields a
// *ParseError. Empty and repeated ids are dropped.
func ParseIDList(response string) ([]string, error) {
	body := StripCodeFences(response)
	if body == "" {
		return nil, &ParseError{Reason: "empty response"}
	}

	var raw any
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, &ParseError{Reason: "invalid json", Err: err}
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case map[string]any:
		found := false
		for _, key := range idListKeys {
			value, ok := v[key]
			if !ok {
				continue
			}
			arr, ok := value.([]any)
			if !ok {
				return nil, &ParseError{Reason: fmt.Sprintf("%q is not an array", key)}
			}
			items, found = arr, true
			break
		}
		if !found {
			return nil, &ParseError{Reason: "no id list in object"}
		}
	default:
		return nil, &ParseError{Reason: fmt.Sprintf("unexpected %T", raw)}
	}

	ids := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		id := idOf(item)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

func idOf(item any) string {
	switch v := item.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return fmt.Sprintf("%.0f", v)
	case map[string]any:
		if id, ok := v["id"]; ok {
			return idOf(id)
		}
		if id, ok := v["memory_id"]; ok {
			return idOf(id)
		}
	}
	return ""
}

// RawCandidate is the JSON shape of a memory proposed by the LLM.
type RawCandidate struct {
	Type       string   `json:"type"`
	Category   string   `json:"category"`
	Content    string   `json:"content"`
	Confidence *float64 `json:"confidence"`
	Importance string   `json:"importance"`
	Tags       []string `json:"tags"`
}

// ToCandidates converts raw LLM proposals into validated candidates. Entries
// with an unknown type or category, or no content, are dropped. Unknown
// importance falls back to the evaluator's judgement.
func ToCandidates(raw []RawCandidate, source memory.Source, evaluator *ImportanceEvaluator) []memory.Candidate {
	out := make([]memory.Candidate, 0, len(raw))
	for _, r := range raw {
		typ, ok := memory.ParseType(r.Type)
		if !ok {
			continue
		}
		cat, ok := memory.ParseCategory(r.Category)
		if !ok {
			continue
		}
		c := memory.Candidate{
			Type:     typ,
			Category: cat,
			Content:  strings.TrimSpace(r.Content),
			Tags:     memory.NormalizeTags(r.Tags),
			Source:   source,
		}
		if r.Confidence != nil {
			c.Confidence = memory.Float(memory.Clamp(*r.Confidence))
		}
		if imp, ok := memory.ParseImportance(r.Importance); ok {
			c.Importance = imp
		} else if evaluator != nil {
			c.Importance = evaluator.Evaluate(c)
		}
		if c.Validate() != nil {
			continue
		}
		out = append(out, c)
	}
	return out
}

// ExtractionPayload is the JSON object the extraction prompt asks for.
type ExtractionPayload struct {
	Memories       []RawCandidate `json:"memories"`
	Insights       []any          `json:"insights"`
	ProfileUpdates map[string]any `json:"profileUpdates"`
}

// ParseExtraction strictly decodes an extraction response. A missing or empty
// memories list is reported as a *ParseError.
func ParseExtraction(response string) (*ExtractionPayload, error) {
	body := StripCodeFences(response)
	var payload ExtractionPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil, &ParseError{Reason: "invalid json", Err: err}
	}
	if len(payload.Memories) == 0 {
		return nil, &ParseError{Reason: "no memories"}
	}
	return &payload, nil
}

// InsightTexts flattens insights that may be plain strings or objects with a
// text-like field.
func InsightTexts(items []any) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				out = append(out, s)
			}
		case map[string]any:
			for _, key := range []string{"text", "insight", "content", "description"} {
				if s, ok := v[key].(string); ok && strings.TrimSpace(s) != "" {
					out = append(out, strings.TrimSpace(s))
					break
				}
			}
		}
	}
	return out
}
