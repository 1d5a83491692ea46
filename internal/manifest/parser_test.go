package manifest

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

const testdataDir = "testdata"

func testPath(name string) string {
	return filepath.Join(testdataDir, name)
}

func TestParseFile_Modules(t *testing.T) {
	tests := []struct {
		file      string
		module    string
		executors int
		runtime   string
	}{
		{"valid-builtin.yaml", "sample", 1, RuntimeBuiltin},
		{"valid-exec.yaml", "reports", 1, RuntimeExec},
		{"valid-plugin.json", "sorting", 2, RuntimePlugin},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			m, err := ParseFile(testPath(tt.file))
			if err != nil {
				t.Fatalf("ParseFile(%s) error: %v", tt.file, err)
			}
			if m.Module != tt.module {
				t.Errorf("Module = %q, want %q", m.Module, tt.module)
			}
			if len(m.Executors) != tt.executors {
				t.Fatalf("len(Executors) = %d, want %d", len(m.Executors), tt.executors)
			}
			if m.Executors[0].Runtime != tt.runtime {
				t.Errorf("Runtime = %q, want %q", m.Executors[0].Runtime, tt.runtime)
			}
		})
	}
}

func TestParseFile_ExecFields(t *testing.T) {
	m, err := ParseFile(testPath("valid-exec.yaml"))
	if err != nil {
		t.Fatalf("ParseFile error: %v", err)
	}
	spec := m.Executors[0]
	if spec.FullName() != "Reports.Daily.Summary" {
		t.Errorf("FullName() = %q", spec.FullName())
	}
	if spec.Entry != "bin/summary" {
		t.Errorf("Entry = %q", spec.Entry)
	}
	if !strings.HasPrefix(spec.Checksum, "sha256:") {
		t.Errorf("Checksum = %q", spec.Checksum)
	}
	if len(spec.Capabilities) != 2 || spec.Capabilities[1] != "network" {
		t.Errorf("Capabilities = %v", spec.Capabilities)
	}
}

func TestParseFile_NotFound(t *testing.T) {
	if _, err := ParseFile(testPath("nonexistent.yaml")); err == nil {
		t.Fatal("expected error for nonexistent file, got nil")
	}
}

func TestParse_NoExecutors(t *testing.T) {
	_, err := Parse([]byte("module: x\n"), "inline")
	if err == nil {
		t.Fatal("expected error for manifest without executors")
	}
}

func TestParseFile_Malformed(t *testing.T) {
	if _, err := ParseFile(testPath("malformed.yaml")); err == nil {
		t.Fatal("expected YAML error, got nil")
	}
}

func TestLoadFile_Valid(t *testing.T) {
	m, err := LoadFile(testPath("valid-builtin.yaml"))
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if m.Executors[0].Entry != "sortarray.New" {
		t.Errorf("Entry = %q", m.Executors[0].Entry)
	}
}

func TestLoadFile_SchemaError(t *testing.T) {
	_, err := LoadFile(testPath("invalid-runtime.yaml"))
	if err == nil {
		t.Fatal("expected schema error, got nil")
	}
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("error type = %T, want *SchemaError", err)
	}
	if len(se.Issues) < 2 {
		t.Errorf("expected runtime and checksum issues, got %v", se.Issues)
	}
	if !strings.Contains(err.Error(), "invalid-runtime.yaml") {
		t.Errorf("error should name the file: %v", err)
	}
}

func TestIsManifestFile(t *testing.T) {
	tests := map[string]bool{
		"module.yaml":     true,
		"module.YML":      true,
		"module.json":     true,
		"module.toml":     false,
		"sortarray":       false,
		"archive.yaml.gz": false,
	}
	for name, want := range tests {
		if got := IsManifestFile(name); got != want {
			t.Errorf("IsManifestFile(%q) = %v, want %v", name, got, want)
		}
	}
}
