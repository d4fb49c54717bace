package app

import (
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

// TestModeEnv is set by the testing package. Binaries started with it return
// before opening databases, queues or listeners.
const TestModeEnv = "DUNVAULT_TEST_MODE"

var testMode atomic.Pointer[bool]

// InTestMode reports whether runtime startup should be skipped. The
// environment is read on first use and cached.
func InTestMode() bool {
	if v := testMode.Load(); v != nil {
		return *v
	}
	return RefreshTestMode()
}

// RefreshTestMode re-reads the environment and returns the new value.
func RefreshTestMode() bool {
	on := parseFlag(os.Getenv(TestModeEnv))
	testMode.Store(&on)
	return on
}

func parseFlag(raw string) bool {
	on, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && on
}
