// Package testing puts test binaries into test mode. Import it for side
// effects from any test that may reach code guarded by app.InTestMode.
package testing

import (
	"os"
	stdtesting "testing"
)

// Environment applied before any test runs. Existing values win so a
// developer can still point tests at a real database.
var defaults = map[string]string{
	"DUNVAULT_TEST_MODE": "1",
	"APP_ENV":            "test",
	"LOG_FORMAT":         "json",
	"AUDIT_ASYNC":        "false",
}

func init() {
	apply()
}

func apply() {
	for key, value := range defaults {
		if _, set := os.LookupEnv(key); key == "DUNVAULT_TEST_MODE" || !set {
			_ = os.Setenv(key, value)
		}
	}
}

// TestMain can be delegated to from a package's own TestMain.
func TestMain(m *stdtesting.M) {
	apply()
	os.Exit(m.Run())
}
