package program

import "strings"

// ExerciseType is one of the closed set of exercise families.
type ExerciseType string

const (
	StreetWorkout    ExerciseType = "Street Workout"
	Course           ExerciseType = "Course"
	CardioLibre      ExerciseType = "Cardio libre"
	ShadowBoxing     ExerciseType = "Shadow Boxing"
	ReposActif       ExerciseType = "Repos actif"
	Plyometrie       ExerciseType = "Plyometrie"
	RenfoAvecCharges ExerciseType = "Renfo avec charges"
)

// DefaultType is used when an exercise carries no usable type.
const DefaultType = StreetWorkout

var types = []ExerciseType{
	StreetWorkout,
	Course,
	CardioLibre,
	ShadowBoxing,
	ReposActif,
	Plyometrie,
	RenfoAvecCharges,
}

var cardioSubTypes = []string{"Classique", "Avec elastiques", "Avec poids", "Defense / Esquives", "Travail vitesse"}

// vocabulary maps each type to its permitted sub-types. The first entry of
// every list is the canonical default.
var vocabulary = map[ExerciseType][]string{
	StreetWorkout: {
		"Pompes", "Tractions", "Dips", "Abdos", "Squats", "Fentes",
		"Gainage", "Burpees", "Mountain Climbers", "Planche", "Superman", "Jump Squats",
	},
	Plyometrie: {
		"Sauts sur boite", "Sauts lateraux", "Sauts groupes", "Skaters", "Burpees sautes",
	},
	RenfoAvecCharges: {
		"Developpe couche", "Squat barre", "Souleve de terre", "Rowing haltere",
		"Developpe militaire", "Curl biceps", "Extension triceps",
	},
	Course:       {"Sprint", "Endurance", "Fractionne", "Montee de cote", "Descente"},
	CardioLibre:  cardioSubTypes,
	ShadowBoxing: cardioSubTypes,
	ReposActif: {
		"Marche lente", "Etirements", "Respiration", "Mobilite",
		"Roulements d'epaules", "Rotation de hanches",
	},
}

// Types returns every exercise type in canonical order.
func Types() []ExerciseType {
	out := make([]ExerciseType, len(types))
	copy(out, types)
	return out
}

// AllowedSubTypes returns the ordered sub-types permitted for t. Unknown
// types have no sub-type concept and yield nil.
func AllowedSubTypes(t ExerciseType) []string {
	subs, ok := vocabulary[t]
	if !ok {
		return nil
	}
	out := make([]string, len(subs))
	copy(out, subs)
	return out
}

// ParseType matches raw against the known types, ignoring case and
// surrounding or repeated whitespace.
func ParseType(raw string) (ExerciseType, bool) {
	key := strings.Join(strings.Fields(raw), " ")
	if key == "" {
		return "", false
	}
	for _, t := range types {
		if strings.EqualFold(string(t), key) {
			return t, true
		}
	}
	return "", false
}

// VocabularyEntry pairs a type with its permitted sub-types.
type VocabularyEntry struct {
	Type     ExerciseType `json:"type"`
	SubTypes []string     `json:"subTypes"`
}

// Vocabulary returns the full table in canonical type order.
func Vocabulary() []VocabularyEntry {
	out := make([]VocabularyEntry, 0, len(types))
	for _, t := range types {
		out = append(out, VocabularyEntry{Type: t, SubTypes: AllowedSubTypes(t)})
	}
	return out
}
