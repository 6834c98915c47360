package app

import (
	"bytes"
	"os"
	"sync"
	"testing"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// SetupAppTest creates a new app instance with debug logging captured in a
// buffer. Set REPORTFLOW_TEST_LOGS=true to print the log when the test ends.
func SetupAppTest(t *testing.T, cfg Config) (*App, *SafeBuffer) {
	t.Helper()

	cfg.LogLevel = "debug"
	validated, err := NewConfig(cfg)
	if err != nil {
		t.Fatalf("invalid app config: %v", err)
	}

	logBuffer := &SafeBuffer{}
	testApp := NewApp(logBuffer, validated)

	t.Cleanup(func() {
		if os.Getenv("REPORTFLOW_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}
