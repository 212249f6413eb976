// Package session owns the provider credentials: an API token and the site verification token.
//
// Each credential is fetched at most once per Manager and cached. A single mutex
// serializes population, so concurrent first callers wait on the in-flight fetch
// instead of issuing their own.
package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/nahucai95/GoFile-Direct-Link/internal/logging"
	"github.com/nahucai95/GoFile-Direct-Link/internal/metrics"
)

// Fetcher obtains fresh credentials from the provider.
type Fetcher interface {
	CreateAccount(ctx context.Context) (string, error)
	FetchVerificationToken(ctx context.Context) (string, error)
}

// Credentials is a snapshot of the populated credentials.
type Credentials struct {
	APIToken          string
	VerificationToken string
}

// Manager lazily populates and caches Credentials.
type Manager struct {
	fetcher Fetcher

	mu    sync.Mutex
	creds Credentials
}

// New creates a Manager. Non-empty fields of seed count as already populated.
func New(fetcher Fetcher, seed Credentials) *Manager {
	return &Manager{fetcher: fetcher, creds: seed}
}

// EnsureAPIToken creates an anonymous account if no API token is cached.
func (m *Manager) EnsureAPIToken(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureAPIToken(ctx)
}

// EnsureVerificationToken scrapes the wt token if none is cached.
func (m *Manager) EnsureVerificationToken(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureVerificationToken(ctx)
}

// Ensure populates both credentials and returns them.
func (m *Manager) Ensure(ctx context.Context) (Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureAPIToken(ctx); err != nil {
		return Credentials{}, err
	}
	if err := m.ensureVerificationToken(ctx); err != nil {
		return Credentials{}, err
	}
	return m.creds, nil
}

func (m *Manager) ensureAPIToken(ctx context.Context) error {
	if m.creds.APIToken != "" {
		return nil
	}
	token, err := m.fetcher.CreateAccount(ctx)
	metrics.RecordTokenFetch("api", err == nil)
	if err != nil {
		return err
	}
	m.creds.APIToken = token
	logging.Info("updated token", zap.String("token", redact(token)))
	return nil
}

func (m *Manager) ensureVerificationToken(ctx context.Context) error {
	if m.creds.VerificationToken != "" {
		return nil
	}
	wt, err := m.fetcher.FetchVerificationToken(ctx)
	metrics.RecordTokenFetch("wt", err == nil)
	if err != nil {
		return err
	}
	m.creds.VerificationToken = wt
	logging.Info("updated wt", zap.String("wt", wt))
	return nil
}

func redact(token string) string {
	if len(token) <= 6 {
		return "***"
	}
	return token[:6] + "***"
}
