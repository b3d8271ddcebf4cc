// File: cmd/helpers_test.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/slidejig/api/schemas"
	"github.com/xkilldash9x/slidejig/internal/browser"
	"github.com/xkilldash9x/slidejig/internal/config"
	"github.com/xkilldash9x/slidejig/internal/observability"
	"github.com/xkilldash9x/slidejig/internal/store"
)

// resetForTest silences the logger and keeps viper away from any config.yaml in
// the package directory.
func resetForTest(t *testing.T) {
	t.Helper()
	observability.ResetForTest()
	t.Setenv("SLIDEJIG_LOGGER_LEVEL", "fatal")
	t.Chdir(t.TempDir())
	t.Cleanup(observability.ResetForTest)
}

// executeCommand runs args on a fresh command tree and returns its output.
func executeCommand(t *testing.T, provider storeProvider, drivers driverFactory, args ...string) (string, error) {
	t.Helper()
	if provider == nil {
		provider = &memProvider{}
	}
	if drivers == nil {
		drivers = failingDrivers(errors.New("no browser in tests"), nil)
	}
	root := newRootCmd(provider, drivers)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

// writeConfig writes content to config.yaml in a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// memRecorder keeps attempts in memory, newest first.
type memRecorder struct {
	mu        sync.Mutex
	records   []schemas.AttemptRecord
	recentErr error
	closed    bool
}

func (m *memRecorder) Record(_ context.Context, rec schemas.AttemptRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append([]schemas.AttemptRecord{rec}, m.records...)
	return nil
}

func (m *memRecorder) Recent(_ context.Context, limit int) ([]schemas.AttemptRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recentErr != nil {
		return nil, m.recentErr
	}
	if limit > len(m.records) {
		limit = len(m.records)
	}
	return append([]schemas.AttemptRecord(nil), m.records[:limit]...), nil
}

func (m *memRecorder) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

var _ store.Recorder = (*memRecorder)(nil)

// memProvider hands out one memRecorder and remembers whether it was cleaned up.
type memProvider struct {
	rec       memRecorder
	createErr error
	created   int
	cleaned   int
}

func (p *memProvider) Create(context.Context, config.Interface) (store.Recorder, func(), error) {
	if p.createErr != nil {
		return nil, nil, p.createErr
	}
	p.created++
	return &p.rec, func() { p.cleaned++ }, nil
}

// failingDrivers returns a driverFactory that stores the config it was given
// in *seen and fails with err.
func failingDrivers(err error, seen *config.Interface) driverFactory {
	return func(_ context.Context, cfg config.Interface, _ *zap.Logger) (browser.Driver, error) {
		if seen != nil {
			*seen = cfg
		}
		return nil, err
	}
}
