package handlers

import (
	"context"
	"database/sql"
	"io"
	"time"

	"github.com/carpenike/repcoach/internal/llm"
	"github.com/carpenike/repcoach/internal/logger"
	"github.com/carpenike/repcoach/internal/models"
	"github.com/carpenike/repcoach/internal/notify"
	"github.com/carpenike/repcoach/internal/scheduler"
)

// ProviderFactory builds the model provider for one request.
type ProviderFactory func(ctx context.Context, db *sql.DB) (llm.Provider, error)

// MaintenanceReporter exposes the background scheduler's last result.
type MaintenanceReporter interface {
	Status() scheduler.Status
}

// API holds the dependencies shared by every handler. Notifier and
// Maintenance may be nil.
type API struct {
	DB          *sql.DB
	Log         *logger.Logger
	Notifier    *notify.Notifier
	Maintenance MaintenanceReporter
	NewProvider ProviderFactory
	Now         func() time.Time
	Version     string
}

func (a *API) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *API) provider(ctx context.Context) (llm.Provider, error) {
	if a.NewProvider != nil {
		return a.NewProvider(ctx, a.DB)
	}
	return llm.NewProviderFromSettings(ctx, a.DB)
}

// releaseProvider frees clients that hold connections, such as Gemini's.
func (a *API) releaseProvider(p llm.Provider) {
	if c, ok := p.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.Log.Warn("close model provider", "provider", p.Name(), "error", err)
		}
	}
}

// recordRun stores the audit row for a request. Failures are logged only;
// the caller has already produced its answer.
func (a *API) recordRun(run *models.GenerationRun) {
	if err := models.CreateGenerationRun(a.DB, run); err != nil {
		a.Log.Error("record generation run", "uid", run.UID, "kind", run.Kind, "error", err)
	}
}
