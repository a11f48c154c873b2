package app_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/depsgraph/internal/app"
	"github.com/vk/depsgraph/internal/hclscene"
	"github.com/vk/depsgraph/internal/registry"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Output string
	Err    error
	App    *app.App
}

// RunApp writes files into a temporary scene directory and runs the app on
// it. configure may adjust the config before the run; modules replace the
// core modules when given.
func RunApp(t *testing.T, files map[string]string, configure func(*app.Config), modules ...registry.Module) *HarnessResult {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	cfg := app.Config{
		ScenePaths:  []string{dir},
		LogLevel:    "debug",
		LogFormat:   "text",
		WorkerCount: 4,
	}
	if configure != nil {
		configure(&cfg)
	}
	validated, err := app.NewConfig(cfg)
	require.NoError(t, err)

	out := &SafeBuffer{}
	a := app.NewApp(out, validated, hclscene.NewLoader(), modules...)
	runErr := a.Run(context.Background())

	if os.Getenv("DEPSGRAPH_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), out.String())
	}
	return &HarnessResult{Output: out.String(), Err: runErr, App: a}
}
