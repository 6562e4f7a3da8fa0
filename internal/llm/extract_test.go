package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestExtractJSON_Accepts(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		isArray bool
	}{
		{"bare object", `{"exercices": []}`, false},
		{"json fence", "```json\n{\"exercices\": []}\n```", false},
		{"uppercase fence", "```JSON\n{\"exercices\": []}\n```", false},
		{"plain fence", "```\n[{\"exercices\": []}]\n```", true},
		{"single-line fence", "```json{\"a\":1}```", false},
		{"leading fence only", "```json\n{\"a\":1}", false},
		{"trailing fence only", "{\"a\":1}\n```", false},
		{"surrounding whitespace", "\n\n  [1, 2]  \n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ExtractJSON(tt.raw)
			if err != nil {
				t.Fatalf("ExtractJSON: %v", err)
			}
			_, isArray := v.([]any)
			if isArray != tt.isArray {
				t.Errorf("got %T, want array=%v", v, tt.isArray)
			}
		})
	}
}

func TestExtractJSON_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "   \n  "},
		{"empty fence", "```json\n```"},
		{"prose", "I cannot help with that"},
		{"prose before json", "Voici le programme : {\"exercices\": []}"},
		{"prose after json", "{\"exercices\": []} J'espere que cela aide !"},
		{"two values", `{"a":1} {"b":2}`},
		{"truncated", `{"exercices": [{"type": "Course"`},
		{"string", `"just a string"`},
		{"number", `42`},
		{"null", `null`},
		{"other language fence", "```yaml\n{\"a\":1}\n```"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ExtractJSON(tt.raw)
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("ExtractJSON(%q) = %v, %v; want ErrMalformedResponse", tt.raw, v, err)
			}
		})
	}
}

func TestExtractJSON_KeepsNumbers(t *testing.T) {
	v, err := ExtractJSON(`{"series": 4, "distance": 5.25}`)
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	obj := v.(map[string]any)
	if n, ok := obj["series"].(json.Number); !ok || n.String() != "4" {
		t.Errorf("series = %#v, want json.Number 4", obj["series"])
	}
	if n, ok := obj["distance"].(json.Number); !ok || n.String() != "5.25" {
		t.Errorf("distance = %#v, want json.Number 5.25", obj["distance"])
	}
}
