// Package program holds the workout program model and the pure rules that
// turn untrusted model output into it: the closed exercise vocabulary, field
// normalization, mapping with defaults and deduplication, and the fallback
// program served when generation output cannot be used.
package program

import (
	"fmt"
	"time"
)

// DateLayout is the ISO 8601 calendar date format used on the wire.
const DateLayout = "2006-01-02"

// Intensity is the effort level of an exercise.
type Intensity string

const (
	Faible  Intensity = "Faible"
	Moderee Intensity = "Moderee"
	Elevee  Intensity = "Elevee"
)

// Intensities lists the canonical intensity values in ascending order.
func Intensities() []Intensity {
	return []Intensity{Faible, Moderee, Elevee}
}

// Exercise is one activity entry within a Program. Numeric fields are kept as
// strings holding a decimal number or nothing.
type Exercise struct {
	Type        ExerciseType `json:"type"`
	SubType     string       `json:"subType"`
	Series      string       `json:"series"`
	Distance    string       `json:"distance"`
	Duration    string       `json:"duration"`
	Repetitions string       `json:"repetitions"`
	RestTime    string       `json:"restTime"`
	Intensity   Intensity    `json:"intensity"`
	Accompli    bool         `json:"accompli"`
}

// Program is one day's structured workout plan.
type Program struct {
	Nom         string     `json:"nom"`
	Date        string     `json:"date"`
	Commentaire string     `json:"commentaire"`
	Exercices   []Exercise `json:"exercices"`
}

// DisplayName returns the program name shown for a given day.
func DisplayName(date time.Time) string {
	return fmt.Sprintf("Programme IA – %s", date.Format(DateLayout))
}
