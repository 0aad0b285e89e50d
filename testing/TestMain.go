// Package testing is blank-imported by tests that start binaries or build a
// Runtime; it forces test mode before any init code reads it.
package testing

import (
	"os"
	stdtesting "testing"
)

func init() {
	if _, set := os.LookupEnv("PERIODCLOSE_TEST_MODE"); !set {
		_ = os.Setenv("PERIODCLOSE_TEST_MODE", "true")
	}
}

// TestMain keeps test mode on for packages that delegate to it.
func TestMain(m *stdtesting.M) {
	_ = os.Setenv("PERIODCLOSE_TEST_MODE", "true")
	os.Exit(m.Run())
}
