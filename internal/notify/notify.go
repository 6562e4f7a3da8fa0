// Package notify broadcasts operational alerts to the Shoutrrr URLs
// configured in the notify.urls setting (ntfy, Discord, Slack, etc.).
//
// Alerts are fire-and-forget: delivery runs in the background and failures
// are logged, never returned to the request that triggered them.
package notify

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/containrrr/shoutrrr"

	"github.com/carpenike/repcoach/internal/logger"
	"github.com/carpenike/repcoach/internal/models"
)

// ErrNoChannels is returned by TestConnection when no URL is configured.
var ErrNoChannels = errors.New("notify: no broadcast URLs configured")

// SendFunc delivers one message to one Shoutrrr URL.
type SendFunc func(url, message string) error

// Notifier dispatches broadcast alerts.
type Notifier struct {
	db   *sql.DB
	log  *logger.Logger
	send SendFunc
	wg   sync.WaitGroup
}

// New creates a Notifier that delivers through Shoutrrr.
func New(db *sql.DB, log *logger.Logger) *Notifier {
	return NewWithSender(db, log, shoutrrr.Send)
}

// NewWithSender creates a Notifier with a custom delivery function.
func NewWithSender(db *sql.DB, log *logger.Logger, send SendFunc) *Notifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Notifier{db: db, log: log, send: send}
}

// Broadcast sends body to every configured URL in the background.
func (n *Notifier) Broadcast(body string) {
	urls := parseURLs(models.GetSetting(n.db, "notify.urls"))
	if len(urls) == 0 {
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for _, u := range urls {
			if err := n.send(u, body); err != nil {
				n.log.Warn("notify: broadcast send failed", "url", maskURL(u), "error", err)
			}
		}
	}()
}

// Wait blocks until every pending broadcast has been attempted.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// FallbackServed reports a daily request answered with the fallback program.
func (n *Notifier) FallbackServed(uid, date string, cause error) {
	n.Broadcast(fmt.Sprintf("repcoach: fallback program served\nuid: %s\ndate: %s\ncause: %v", uid, date, cause))
}

// BatchFailed reports a week or month request that produced nothing.
func (n *Notifier) BatchFailed(uid, rng, start string, err error) {
	n.Broadcast(fmt.Sprintf("repcoach: %s batch failed\nuid: %s\nstart: %s\nerror: %v", rng, uid, start, err))
}

// TestConnection sends a test message to every configured URL synchronously.
func (n *Notifier) TestConnection() error {
	urls := parseURLs(models.GetSetting(n.db, "notify.urls"))
	if len(urls) == 0 {
		return ErrNoChannels
	}

	var errs []string
	for _, u := range urls {
		if err := n.send(u, "repcoach test: if you see this, notifications are working!"); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", maskURL(u), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %s", strings.Join(errs, "; "))
	}
	return nil
}

// parseURLs splits a comma-or-newline-separated URL string and trims whitespace.
func parseURLs(urlsStr string) []string {
	urlsStr = strings.ReplaceAll(urlsStr, "\n", ",")
	parts := strings.Split(urlsStr, ",")
	var urls []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			urls = append(urls, p)
		}
	}
	return urls
}

// maskURL masks credentials in a Shoutrrr URL for safe logging.
func maskURL(u string) string {
	return u[:min(len(u), 15)] + "••••"
}
