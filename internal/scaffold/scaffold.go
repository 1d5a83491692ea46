package scaffold

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"text/template"
	"unicode"

	"github.com/DevelApp-ai/PluginJobRunner/internal/branding"
	"github.com/DevelApp-ai/PluginJobRunner/internal/executor"
	"github.com/DevelApp-ai/PluginJobRunner/internal/manifest"
	"github.com/DevelApp-ai/PluginJobRunner/internal/security"
)

const (
	// manifestFile is the name of the generated manifest.
	manifestFile   = "module.yaml"
	defaultVersion = "0.1.0"
)

// Identifier rules mirror the module schema.
var (
	namePattern      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	namespacePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)
)

// ScaffoldData holds all template variables available to scaffold templates.
type ScaffoldData struct {
	Namespace   string // e.g., "Reports.Daily"
	Name        string // e.g., "Summary"
	Version     string // Semver, e.g., "0.1.0"
	Runtime     string // builtin, exec or plugin
	Description string
	Author      string
	FullName    string // Derived: <namespace>.<name>
	Module      string // Derived: reports-daily-summary
	PackageName string // Derived: Go package name, e.g. "summary"
	Entry       string // Derived: catalog symbol or path relative to the module
	GoModule    string // Derived: import path of this repository
	Checksum    string // Set by Generate for exec entries
}

// Result holds the outcome of a scaffold generation.
type Result struct {
	OutputDir string
	Files     []string
	Warnings  []string
}

// NewScaffoldData creates a ScaffoldData for "<namespace>.<name>" with
// derived fields populated.
func NewScaffoldData(fullName, runtime string) (*ScaffoldData, error) {
	namespace, name, ok := executor.SplitFullName(fullName)
	if !ok {
		return nil, fmt.Errorf("executor name %q must be <namespace>.<name>", fullName)
	}
	if !slices.Contains(manifest.ValidRuntimes, runtime) {
		return nil, fmt.Errorf("unknown runtime %q (want one of %s)", runtime, strings.Join(manifest.ValidRuntimes, ", "))
	}
	if !namespacePattern.MatchString(namespace) || !namePattern.MatchString(name) {
		return nil, fmt.Errorf("executor name %q: segments must be identifiers", fullName)
	}
	id, err := executor.NewIdentity(namespace, name, defaultVersion)
	if err != nil {
		return nil, err
	}

	d := &ScaffoldData{
		Namespace:   id.Namespace,
		Name:        id.Name,
		Version:     id.Version.Original(),
		Runtime:     runtime,
		FullName:    id.FullName(),
		Module:      slug(id.FullName()),
		PackageName: packageName(id.Name),
		GoModule:    branding.GoModule(),
	}
	d.Description = fmt.Sprintf("%s executor: %s", branding.DisplayName(), d.FullName)

	switch runtime {
	case manifest.RuntimeBuiltin:
		d.Entry = strings.ToLower(d.FullName)
	case manifest.RuntimeExec:
		d.Entry = "run.sh"
	case manifest.RuntimePlugin:
		d.Entry = "bin/" + d.Module + "-plugin"
	}
	return d, nil
}

// Generate creates a new module from scaffolding templates in outputDir.
// Exec entries are written before the manifest so their checksum can be
// recorded in it.
func Generate(data *ScaffoldData, outputDir string) (*Result, error) {
	templatesDir := path.Join("scaffolds", data.Runtime)

	entries, err := fs.ReadDir(scaffoldFS, templatesDir)
	if err != nil {
		return nil, fmt.Errorf("template set %q not found: %w", data.Runtime, err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	// Check for existing files to prevent accidental overwrites.
	existingEntries, err := os.ReadDir(outputDir)
	if err == nil && len(existingEntries) > 0 {
		return nil, fmt.Errorf("output directory %s is not empty; remove existing files first", outputDir)
	}

	result := &Result{OutputDir: outputDir}

	// The manifest goes last.
	slices.SortStableFunc(entries, func(a, b fs.DirEntry) int {
		am := strings.HasPrefix(a.Name(), manifestFile)
		bm := strings.HasPrefix(b.Name(), manifestFile)
		switch {
		case am == bm:
			return strings.Compare(a.Name(), b.Name())
		case am:
			return 1
		default:
			return -1
		}
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		outName := strings.TrimSuffix(entry.Name(), ".tmpl")
		if outName == manifestFile && data.Runtime == manifest.RuntimeExec {
			sum, err := security.FileChecksum(filepath.Join(outputDir, data.Entry))
			if err != nil {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("Could not checksum %s: %v", data.Entry, err))
			} else {
				data.Checksum = "sha256:" + sum
			}
		}
		if err := render(path.Join(templatesDir, entry.Name()), filepath.Join(outputDir, outName), data); err != nil {
			return nil, err
		}
		result.Files = append(result.Files, outName)
	}

	// Validate the generated manifest against the module schema.
	valResult, valErr := manifest.ValidateFile(filepath.Join(outputDir, manifestFile))
	if valErr != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Could not validate manifest: %v", valErr))
	} else if !valResult.Valid {
		for _, issue := range valResult.Issues {
			msg := issue.Message
			if issue.Path != "" {
				msg = issue.Path + ": " + msg
			}
			result.Warnings = append(result.Warnings, msg)
		}
	}

	slices.Sort(result.Files)
	return result, nil
}

var funcs = template.FuncMap{
	// quote emits a JSON string, which is valid in both YAML and Go source.
	"quote": func(s string) (string, error) {
		b, err := json.Marshal(s)
		return string(b), err
	},
}

func render(tmplPath, outPath string, data *ScaffoldData) error {
	tmplBytes, err := fs.ReadFile(scaffoldFS, tmplPath)
	if err != nil {
		return fmt.Errorf("reading template %s: %w", tmplPath, err)
	}
	tmpl, err := template.New(path.Base(tmplPath)).Funcs(funcs).Parse(string(tmplBytes))
	if err != nil {
		return fmt.Errorf("parsing template %s: %w", tmplPath, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("executing template %s: %w", tmplPath, err)
	}

	mode := os.FileMode(0o644)
	if strings.HasSuffix(outPath, ".sh") {
		mode = 0o755
	}
	if err := os.WriteFile(outPath, buf.Bytes(), mode); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	return nil
}

// slug lowercases s and replaces runs of non-alphanumerics with "-".
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func packageName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || (unicode.IsDigit(r) && b.Len() > 0)) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "executor"
	}
	return b.String()
}
