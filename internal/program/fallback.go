package program

import "time"

// FallbackComment marks a program produced by FallbackProgram.
const FallbackComment = "Programme genere automatiquement suite a une erreur de parsing"

// FallbackProgram returns the fixed recovery program for date: push-ups and an
// easy run, both drawn from the vocabulary.
func FallbackProgram(date time.Time) *Program {
	return &Program{
		Nom:         DisplayName(date),
		Date:        date.Format(DateLayout),
		Commentaire: FallbackComment,
		Exercices: []Exercise{
			{
				Type:        StreetWorkout,
				SubType:     "Pompes",
				Series:      "3",
				Repetitions: "10",
				RestTime:    "60",
				Intensity:   Moderee,
			},
			{
				Type:      Course,
				SubType:   "Endurance",
				Series:    "1",
				Distance:  "5",
				Duration:  "1500",
				Intensity: Faible,
			},
		},
	}
}
