package generator

import (
	"database/sql"

	"github.com/carpenike/repcoach/internal/llm"
	"github.com/carpenike/repcoach/internal/models"
)

// ConfigFromSettings reads the generation settings from the registry.
func ConfigFromSettings(db *sql.DB) Config {
	return Config{
		Goal:         models.GetDefaultGoal(db),
		Options:      llm.OptionsFromSettings(db),
		ChunkMax:     models.GetChunkMax(db),
		Policy:       models.GetBatchFailurePolicy(db),
		ChunkRetries: models.GetChunkRetries(db),
	}
}
