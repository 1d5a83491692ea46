//go:build integration

package integration_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/DevelApp-ai/PluginJobRunner/internal/security"
)

// repoRoot is the module root relative to this package.
const repoRoot = "../.."

// testEnv holds paths to isolated test directories.
type testEnv struct {
	HomeDir    string // HOME, so ~/.jobrunner resolves inside the sandbox
	ModulesDir string // JOBRUNNER_PLUGINS_LOCATION
	BinDir     string // built binaries
}

// setupTestEnv creates isolated temp directories and sets environment variables
// so every config and module lookup is sandboxed. The env vars are restored after the test.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("integration tests use unix executables")
	}

	env := &testEnv{
		HomeDir:    t.TempDir(),
		ModulesDir: t.TempDir(),
		BinDir:     t.TempDir(),
	}

	t.Setenv("HOME", env.HomeDir)
	t.Setenv("JOBRUNNER_PLUGINS_LOCATION", env.ModulesDir)
	t.Setenv("JOBRUNNER_CONFIG", filepath.Join(env.HomeDir, "config.yaml"))
	return env
}

// buildBinary compiles the package at pkg (relative to the repo root) into dir.
func buildBinary(t *testing.T, dir, name, pkg string) string {
	t.Helper()
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go toolchain not available, skipping")
	}

	out := filepath.Join(dir, name)
	cmd := exec.Command(goBin, "build", "-o", out, pkg)
	cmd.Dir = repoRoot
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("go build %s: %v\n%s", pkg, err, output)
	}
	return out
}

// installPlugin copies the sortarray plugin binary into a module directory
// and writes a manifest that pins its checksum.
func installPlugin(t *testing.T, modulesDir, pluginBin, version string) string {
	t.Helper()
	moduleDir := filepath.Join(modulesDir, "sort-plugin-"+version)
	entry := filepath.Join(moduleDir, "bin", "sortarray-plugin")

	data, err := os.ReadFile(pluginBin)
	if err != nil {
		t.Fatalf("reading plugin binary: %v", err)
	}
	writeFile(t, entry, string(data))
	if err := os.Chmod(entry, 0o755); err != nil {
		t.Fatalf("chmod plugin: %v", err)
	}

	sum, err := security.FileChecksum(entry)
	if err != nil {
		t.Fatalf("checksum plugin: %v", err)
	}
	writeManifest(t, moduleDir, `module: sort-plugin
description: Sort.Array served over go-plugin
executors:
  - namespace: Sort
    name: Array
    version: "0.0.1"
    runtime: plugin
    entry: bin/sortarray-plugin
    checksum: sha256:`+sum+`
`)
	return moduleDir
}

// writeManifest writes module.yaml into moduleDir.
func writeManifest(t *testing.T, moduleDir, content string) {
	t.Helper()
	writeFile(t, filepath.Join(moduleDir, "module.yaml"), content)
}

// writeFile creates a file with the given content, creating parent dirs as needed.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func assertContains(t *testing.T, content, substr string) {
	t.Helper()
	if !strings.Contains(content, substr) {
		t.Errorf("output does not contain %q\n--- output ---\n%s", substr, content)
	}
}
