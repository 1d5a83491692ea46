package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.yaml.in/yaml/v3"
)

// ParseFile reads a manifest file and returns the parsed module.
// JSON manifests are accepted since JSON is a subset of YAML.
func ParseFile(path string) (*Module, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, path)
}

// Parse unmarshals manifest bytes. path is used for error messages only.
func Parse(data []byte, path string) (*Module, error) {
	var m Module
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if len(m.Executors) == 0 {
		return nil, fmt.Errorf("manifest %s declares no executors", path)
	}
	return &m, nil
}

// LoadFile validates the file against the schema and parses it. Schema
// issues are folded into the returned error.
func LoadFile(path string) (*Module, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	result, err := Validate(data)
	if err != nil {
		return nil, fmt.Errorf("validating manifest %s: %w", path, err)
	}
	if !result.Valid {
		return nil, &SchemaError{Path: path, Issues: result.Issues}
	}

	return Parse(data, path)
}

// IsManifestFile returns true if the filename has a manifest extension.
func IsManifestFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return slices.Contains(FileExtensions, ext)
}

// SchemaError reports a manifest that failed schema validation.
type SchemaError struct {
	Path   string
	Issues []ValidationIssue
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "manifest %s failed schema validation", e.Path)
	for i, issue := range e.Issues {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		if issue.Path != "" {
			b.WriteString(issue.Path + ": ")
		}
		b.WriteString(issue.Message)
	}
	return b.String()
}

// readFile reads the contents of a file at the given path.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return data, nil
}
