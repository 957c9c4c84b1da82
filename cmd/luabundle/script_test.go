// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

// TestMain lets the scripts run luabundle in-process: testscript re-executes
// the test binary under the command name.
func TestMain(m *testing.M) {
	testscript.Main(m, map[string]func(){
		"luabundle": Execute,
	})
}

// TestScripts runs the CLI scripts in testdata/script.
func TestScripts(t *testing.T) {
	t.Parallel()
	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
		Setup: func(env *testscript.Env) error {
			// Keep the user config directory inside the sandbox.
			env.Setenv("XDG_CONFIG_HOME", env.WorkDir+string(os.PathSeparator)+".config")
			env.Setenv("NO_COLOR", "1")
			return nil
		},
	})
}
