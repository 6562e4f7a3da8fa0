package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformedResponse is returned when model output is not a JSON object or
// array once formatting is stripped.
var ErrMalformedResponse = errors.New("llm: malformed model response")

// ExtractJSON strips an optional Markdown code fence from raw and decodes the
// remainder as a single JSON value. The result is a map[string]any or []any
// with numbers kept as json.Number. Text around the JSON is not tolerated.
func ExtractJSON(raw string) (any, error) {
	text := stripFence(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrMalformedResponse)
	}

	switch v.(type) {
	case map[string]any, []any:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: expected object or array, got %T", ErrMalformedResponse, v)
	}
}

// stripFence removes a leading ``` or ```json line and a trailing ``` marker.
// Either marker may be missing.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = s[3:]
		if nl := strings.IndexByte(s, '\n'); nl != -1 {
			lang := strings.TrimSpace(s[:nl])
			if lang == "" || strings.EqualFold(lang, "json") {
				s = s[nl+1:]
			}
		} else {
			s = strings.TrimPrefix(s, "json")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
