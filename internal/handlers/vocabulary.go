package handlers

import (
	"net/http"

	"github.com/carpenike/repcoach/internal/program"
)

type vocabularyResponse struct {
	Types       []program.VocabularyEntry `json:"types"`
	Intensities []program.Intensity       `json:"intensities"`
	DefaultType program.ExerciseType      `json:"defaultType"`
}

// Vocabulary handles GET /vocabulary. It serves the same closed table the
// prompts and the normalizer use.
func (a *API) Vocabulary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, vocabularyResponse{
		Types:       program.Vocabulary(),
		Intensities: program.Intensities(),
		DefaultType: program.DefaultType,
	})
}
