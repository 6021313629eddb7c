package enrich

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ragstage/ragstage/internal/payload"
)

// Strategy describes one enrichment task: how it is presented to the
// model, the metadata field the result lands in, and how a decoded
// value is validated before it is written. Fallback documents the
// neutral value for the field; failed enrichments leave the field
// unset rather than writing it.
type Strategy struct {
	Method       payload.EnrichMethod
	TaskName     string
	Description  string
	OutputField  string
	Schema       string
	QualityRules []string
	Fallback     any
	Validate     func(any) (any, error)
}

// Strategies returns the built-in enrichment strategies keyed by method.
func Strategies() map[payload.EnrichMethod]Strategy {
	return map[payload.EnrichMethod]Strategy{
		payload.EnrichSummary: {
			Method:      payload.EnrichSummary,
			TaskName:    "summary",
			Description: "Summarize the passage.",
			OutputField: "summary",
			Schema:      "a string of at most 100 characters",
			QualityRules: []string{
				"Do not copy sentences from the passage verbatim.",
				"No evaluative or speculative language.",
				"Keep the tone neutral and objective.",
			},
			Fallback: "",
			Validate: validateText,
		},
		payload.EnrichKeywords: {
			Method:      payload.EnrichKeywords,
			TaskName:    "keywords",
			Description: "Extract the key terms of the passage.",
			OutputField: "keywords",
			Schema:      "an array of 5 to 8 strings",
			QualityRules: []string{
				"Prefer nouns and noun phrases.",
				"Avoid overly generic terms.",
			},
			Fallback: []string{},
			Validate: validateStringList,
		},
		payload.EnrichSuggestedQuestions: {
			Method:      payload.EnrichSuggestedQuestions,
			TaskName:    "suggested_questions",
			Description: "Write questions a reader could answer with the passage.",
			OutputField: "suggested_questions",
			Schema:      "an array of exactly 3 strings",
			QualityRules: []string{
				"Make each question specific rather than broad.",
				"Avoid yes/no questions.",
			},
			Fallback: []string{},
			Validate: validateStringList,
		},
	}
}

// BuildPrompt renders the system prompt for one model call covering all
// active tasks. The example object keys the response schema by output
// field; the model must answer with that single JSON object.
func BuildPrompt(active []Strategy) string {
	var b strings.Builder
	b.WriteString("You are a structured information extraction system. ")
	b.WriteString("Perform every task below on the passage provided by the user.\n")

	for _, s := range active {
		fmt.Fprintf(&b, "\nTask: %s\n%s\nOutput field %q: %s\n", s.TaskName, s.Description, s.OutputField, s.Schema)
		for _, rule := range s.QualityRules {
			fmt.Fprintf(&b, "- %s\n", rule)
		}
	}

	b.WriteString("\nRespond with a single JSON object and nothing else, no prose and no Markdown:\n{")
	for i, s := range active {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q: \"value\"", s.OutputField)
	}
	b.WriteString("}")
	return b.String()
}

// ParseObject decodes a model response into the enrichment object. Code
// fences around the JSON body are tolerated and removed.
func ParseObject(raw string) (map[string]any, error) {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("response is not a JSON object; %w", err)
	}
	return parsed, nil
}

// stripFences removes a surrounding markdown code fence, with or without
// a language tag on the opening line.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func validateText(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty text result")
	}
	return s, nil
}

func validateStringList(v any) (any, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected list, got %T", v)
	}

	var out []string
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected list of strings, got %T element", item)
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty list result")
	}
	return out, nil
}
