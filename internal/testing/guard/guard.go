// Package guard switches the binaries into test mode when imported by a test,
// so constructing the app never dials Redis, Gotenberg or the marketplace.
package guard

import (
	"os"
	"sync"
)

// TestModeEnv is read by app.InTestMode.
const TestModeEnv = "MARKETDESK_TEST_MODE"

var once sync.Once

func init() {
	Enable()
}

// Enable sets the test mode flag unless the environment already chose.
func Enable() {
	once.Do(func() {
		if os.Getenv(TestModeEnv) == "" {
			_ = os.Setenv(TestModeEnv, "1")
		}
		if os.Getenv("GOTENBERG_URL") == "" {
			_ = os.Setenv("GOTENBERG_URL", "http://127.0.0.1:0")
		}
	})
}
