package daemon

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/stagehand/internal/config"
)

type stubApplier struct {
	mu  sync.Mutex
	got []*config.Config
}

func (s *stubApplier) ReloadConfig(cfg *config.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, cfg)
	return nil
}

func (s *stubApplier) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func (s *stubApplier) last() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.got) == 0 {
		return nil
	}
	return s.got[len(s.got)-1]
}

func writeConfigFile(t *testing.T, path, org string) {
	t.Helper()
	content := "forge:\n  type: local\n  org: " + org + "\n  path: /tmp/clones\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestPerformReloadAppliesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stagehand.yaml")
	writeConfigFile(t, path, "acme")

	applier := &stubApplier{}
	cw, err := NewConfigWatcher(path, applier, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cw.Stop() })

	require.NoError(t, cw.performReload())
	require.Equal(t, 1, applier.count())
	require.Equal(t, "acme", applier.last().Forge.Org)
}

func TestPerformReloadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stagehand.yaml")
	require.NoError(t, os.WriteFile(path, []byte("forge:\n  type: bogus\n"), 0o644))

	applier := &stubApplier{}
	cw, err := NewConfigWatcher(path, applier, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cw.Stop() })

	require.Error(t, cw.performReload())
	require.Zero(t, applier.count())
}

func TestWatcherAppliesChangesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stagehand.yaml")
	writeConfigFile(t, path, "acme")

	applier := &stubApplier{}
	cw, err := NewConfigWatcher(path, applier, testLogger())
	require.NoError(t, err)
	cw.debounceTime = 10 * time.Millisecond

	require.NoError(t, cw.Start())
	t.Cleanup(func() { _ = cw.Stop() })

	writeConfigFile(t, path, "other")

	require.Eventually(t, func() bool {
		return applier.count() >= 1
	}, 3*time.Second, 20*time.Millisecond)
	require.Equal(t, "other", applier.last().Forge.Org)
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stagehand.yaml")
	writeConfigFile(t, path, "acme")

	applier := &stubApplier{}
	cw, err := NewConfigWatcher(path, applier, testLogger())
	require.NoError(t, err)
	cw.debounceTime = 10 * time.Millisecond

	require.NoError(t, cw.Start())
	t.Cleanup(func() { _ = cw.Stop() })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	time.Sleep(100 * time.Millisecond)
	require.Zero(t, applier.count())
}
