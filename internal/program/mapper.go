package program

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrMissingExercises is returned when parsed output has no exercise list.
var ErrMissingExercises = errors.New("program: missing exercices array")

// Field defaults applied when a raw exercise omits a value.
const (
	DefaultSeries   = "1"
	DefaultRestTime = "60"
)

// Mapper converts parsed model output into Programs.
type Mapper struct {
	Normalizer Normalizer
}

// Map builds the Program for date from raw, which must be a JSON object with
// an "exercices" array. Nothing in raw is trusted except commentaire and the
// exercise entries, which are normalized field by field.
func (m Mapper) Map(raw any, date time.Time) (*Program, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, ErrMissingExercises
	}
	entries, ok := obj["exercices"].([]any)
	if !ok {
		return nil, ErrMissingExercises
	}

	type pair struct {
		t   ExerciseType
		sub string
	}
	seen := make(map[pair]bool, len(entries))
	exercises := make([]Exercise, 0, len(entries))

	for i, entry := range entries {
		ex := m.mapExercise(entry)
		key := pair{ex.Type, ex.SubType}
		if seen[key] {
			if m.Normalizer.Log != nil {
				m.Normalizer.Log.Debug("dropping duplicate exercise",
					"index", i, "type", string(ex.Type), "subType", ex.SubType)
			}
			continue
		}
		seen[key] = true
		exercises = append(exercises, ex)
	}

	commentaire, _ := obj["commentaire"].(string)

	return &Program{
		Nom:         DisplayName(date),
		Date:        date.Format(DateLayout),
		Commentaire: commentaire,
		Exercices:   exercises,
	}, nil
}

func (m Mapper) mapExercise(entry any) Exercise {
	fields, _ := entry.(map[string]any)

	t := m.Normalizer.Type(stringField(fields, "type"))

	intensity := Moderee
	if raw := stringField(fields, "intensity"); raw != "" {
		intensity = m.Normalizer.Intensity(raw)
	}

	return Exercise{
		Type:        t,
		SubType:     m.Normalizer.SubType(t, stringField(fields, "subType")),
		Series:      numericField(fields, "series", DefaultSeries),
		Distance:    numericField(fields, "distance", ""),
		Duration:    numericField(fields, "duration", ""),
		Repetitions: numericField(fields, "repetitions", ""),
		RestTime:    numericField(fields, "restTime", DefaultRestTime),
		Intensity:   intensity,
		Accompli:    false,
	}
}

// stringField returns fields[key] when it is a string, trimmed.
func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return strings.TrimSpace(s)
}

// plainDecimal matches the only numeric text a Program carries: no
// exponents, hex, NaN or Inf.
var plainDecimal = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)

// numericField returns fields[key] as plain decimal text. Absent, empty or
// non-numeric values yield def.
func numericField(fields map[string]any, key, def string) string {
	var s string
	switch v := fields[key].(type) {
	case json.Number:
		s = v.String()
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return def
		}
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		s = strings.TrimSpace(v)
	}
	if plainDecimal.MatchString(s) {
		return s
	}
	return def
}
