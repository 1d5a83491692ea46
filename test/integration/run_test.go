//go:build integration

package integration_test

import (
	"bytes"
	"os/exec"
	"strings"
	"testing"
)

// runCLI runs the built jobrunner binary and returns combined output.
func runCLI(t *testing.T, bin string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(bin, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.String(), err
}

func TestCLIRunBuiltin(t *testing.T) {
	env := setupTestEnv(t)
	cli := buildBinary(t, env.BinDir, "jobrunner", ".")

	out, err := runCLI(t, cli, "run", "Sort.Array", "[5,2,1,4,3]")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	assertContains(t, out, "[1,2,3,4,5]")

	out, err = runCLI(t, cli, "run", "Sort.Array", "not-json")
	if err == nil {
		t.Fatalf("run not-json succeeded:\n%s", out)
	}
	assertContains(t, out, "Error:")
}

func TestCLIPluginModule(t *testing.T) {
	env := setupTestEnv(t)
	cli := buildBinary(t, env.BinDir, "jobrunner", ".")
	pluginBin := buildBinary(t, env.BinDir, "sortarray-plugin", "./cmd/sortarray-plugin")
	installPlugin(t, env.ModulesDir, pluginBin, "0.0.1")
	t.Setenv("JOBRUNNER_PLUGINS_BUILTINS", "false")

	out, err := runCLI(t, cli, "validate")
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	assertContains(t, out, "plugin")
	assertContains(t, out, "accepted")

	out, err = runCLI(t, cli, "--log-level", "error", "run", "Sort.Array", "[2,1]")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	assertContains(t, out, "[1,2]")

	out, err = runCLI(t, cli, "list")
	if err != nil {
		t.Fatalf("list: %v\n%s", err, out)
	}
	if !strings.Contains(out, env.ModulesDir) {
		t.Errorf("list does not show the plugin module source:\n%s", out)
	}
}

func TestCLICreateAndRun(t *testing.T) {
	env := setupTestEnv(t)
	cli := buildBinary(t, env.BinDir, "jobrunner", ".")

	out, err := runCLI(t, cli, "create", "Reports.Daily.Summary", "--output-dir", env.ModulesDir+"/summary")
	if err != nil {
		t.Fatalf("create: %v\n%s", err, out)
	}

	out, err = runCLI(t, cli, "run", "Reports.Daily.Summary", "payload", "--json")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	assertContains(t, out, `"status": "success"`)
}
