package app

import (
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

// TestModeEnv, when "1", makes the binaries return before dialing Redis, the
// marketplace or Gotenberg.
const TestModeEnv = "MARKETDESK_TEST_MODE"

var testMode struct {
	once sync.Once
	on   atomic.Bool
}

func detectTestMode() {
	testMode.on.Store(os.Getenv(TestModeEnv) == "1")
}

// InTestMode reports whether the application should skip runtime side effects.
func InTestMode() bool {
	testMode.once.Do(detectTestMode)
	return testMode.on.Load()
}

// RefreshTestMode updates the cached flag after environment changes.
func RefreshTestMode() {
	testMode.once.Do(func() {})
	detectTestMode()
}

// SkipStartup reports whether component should not start, logging why.
func SkipStartup(component string) bool {
	if !InTestMode() {
		return false
	}
	slog.Default().Info("test mode detected, skipping startup", slog.String("component", component))
	return true
}
