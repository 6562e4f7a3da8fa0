package program

import (
	"slices"
	"strings"
)

// Logger receives soft warnings raised while normalizing model output.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
}

var intensityAliases = map[string]Intensity{
	"faible":  Faible,
	"basse":   Faible,
	"low":     Faible,
	"moderee": Moderee,
	"modere":  Moderee,
	"moyenne": Moderee,
	"medium":  Moderee,
	"elevee":  Elevee,
	"haute":   Elevee,
	"forte":   Elevee,
	"high":    Elevee,
}

// NormalizeIntensity maps raw to a canonical intensity. The boolean reports
// whether raw was recognised; unrecognised input yields Moderee.
func NormalizeIntensity(raw string) (Intensity, bool) {
	if v, ok := intensityAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return v, true
	}
	return Moderee, false
}

// CorrectSubType returns proposed when it belongs to t's vocabulary, the
// canonical default of t otherwise, and "" when t has no vocabulary.
func CorrectSubType(t ExerciseType, proposed string) string {
	allowed := vocabulary[t]
	if len(allowed) == 0 {
		return ""
	}
	if slices.Contains(allowed, proposed) {
		return proposed
	}
	return allowed[0]
}

// Normalizer applies the normalization rules and reports every correction
// through Log. A nil Log is allowed.
type Normalizer struct {
	Log Logger
}

// Intensity normalizes raw, warning when it had to fall back to the default.
func (n Normalizer) Intensity(raw string) Intensity {
	v, ok := NormalizeIntensity(raw)
	if !ok && n.Log != nil {
		n.Log.Warn("unknown intensity, defaulting", "intensity", raw, "default", string(v))
	}
	return v
}

// SubType corrects proposed for t, warning when a non-empty proposal was
// replaced.
func (n Normalizer) SubType(t ExerciseType, proposed string) string {
	v := CorrectSubType(t, proposed)
	if v != proposed && proposed != "" && n.Log != nil {
		n.Log.Warn("sub-type outside vocabulary, defaulting",
			"type", string(t), "subType", proposed, "default", v)
	}
	return v
}

// Type resolves a raw type. Empty input silently yields DefaultType; unknown
// names yield DefaultType with a warning.
func (n Normalizer) Type(raw string) ExerciseType {
	if strings.TrimSpace(raw) == "" {
		return DefaultType
	}
	if t, ok := ParseType(raw); ok {
		return t
	}
	if n.Log != nil {
		n.Log.Warn("unknown exercise type, defaulting", "type", raw, "default", string(DefaultType))
	}
	return DefaultType
}
