package app

import (
	"os"
	"testing"

	"github.com/specialistvlad/clusterpass/internal/config"
	"github.com/specialistvlad/clusterpass/internal/registry"
	"github.com/specialistvlad/clusterpass/internal/testutil"
)

// SetupAppTest creates a new app instance for system testing. Logs are
// captured at debug level and printed when CLUSTERPASS_TEST_LOGS=true.
func SetupAppTest(t *testing.T, cfg *Config, loader config.Loader, formats []config.GraphFormat, modules ...registry.Module) (*App, *testutil.SafeBuffer) {
	t.Helper()

	logBuffer := &testutil.SafeBuffer{}
	cfg.LogLevel = "debug"
	testApp := NewApp(logBuffer, cfg, loader, formats, modules...)

	t.Cleanup(func() {
		if os.Getenv("CLUSTERPASS_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}
