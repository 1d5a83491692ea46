package security

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/DevelApp-ai/PluginJobRunner/internal/manifest"
)

// Check inspects a subject and reports findings.
type Check interface {
	Name() string
	Inspect(s Subject) Findings
}

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

func isBinaryRuntime(runtime string) bool {
	return runtime == manifest.RuntimeExec || runtime == manifest.RuntimePlugin
}

// Capability names an API surface an executor declares it uses.
type Capability string

const (
	CapabilityFileRead  Capability = "filesystem.read"
	CapabilityFileWrite Capability = "filesystem.write"
	CapabilityNetwork   Capability = "network"
	CapabilityProcess   Capability = "process.spawn"
	CapabilityShell     Capability = "shell"
	CapabilityUnsafe    Capability = "unsafe"
)

// capabilityRisk is the risk each known capability carries.
var capabilityRisk = map[Capability]RiskLevel{
	CapabilityFileRead:  RiskLow,
	CapabilityFileWrite: RiskMedium,
	CapabilityNetwork:   RiskHigh,
	CapabilityProcess:   RiskHigh,
	CapabilityShell:     RiskCritical,
	CapabilityUnsafe:    RiskCritical,
}

// CapabilityRisk returns the risk of a capability and whether it is known.
func CapabilityRisk(c Capability) (RiskLevel, bool) {
	r, ok := capabilityRisk[c]
	return r, ok
}

// CapabilityCheck scores the capabilities an executor declares.
// Unknown capabilities are Medium; denied ones are Critical.
type CapabilityCheck struct {
	Denied []string
}

func (CapabilityCheck) Name() string { return "capabilities" }

func (c CapabilityCheck) Inspect(s Subject) Findings {
	var f Findings
	for _, raw := range s.Capabilities {
		name := strings.ToLower(strings.TrimSpace(raw))
		if c.denied(name) {
			f.issue(c.Name(), RiskCritical, "capability %q is denied by policy", name)
			continue
		}
		risk, ok := CapabilityRisk(Capability(name))
		if !ok {
			f.issue(c.Name(), RiskMedium, "unknown capability %q", name)
			continue
		}
		if risk > RiskNone {
			f.issue(c.Name(), risk, "requests capability %q", name)
		}
	}
	return f
}

func (c CapabilityCheck) denied(name string) bool {
	for _, d := range c.Denied {
		if strings.EqualFold(strings.TrimSpace(d), name) {
			return true
		}
	}
	return false
}

// SignatureCheck verifies the declared sha256 checksum of binary entries.
type SignatureCheck struct {
	// RequireChecksum turns a missing checksum from a warning into a High issue.
	RequireChecksum bool
}

const checksumPrefix = "sha256:"

func (SignatureCheck) Name() string { return "signature" }

func (c SignatureCheck) Inspect(s Subject) Findings {
	var f Findings
	if !isBinaryRuntime(s.Runtime) {
		return f
	}

	if s.Checksum == "" {
		if c.RequireChecksum {
			f.issue(c.Name(), RiskHigh, "binary entry %s has no checksum", filepath.Base(s.Entry))
		} else {
			f.warn(c.Name(), "binary entry %s has no checksum", filepath.Base(s.Entry))
		}
		return f
	}

	want, ok := strings.CutPrefix(strings.ToLower(s.Checksum), checksumPrefix)
	if !ok {
		f.issue(c.Name(), RiskHigh, "unsupported checksum format %q", s.Checksum)
		return f
	}
	got, err := FileChecksum(s.Entry)
	if err != nil {
		f.issue(c.Name(), RiskHigh, "cannot read entry for verification: %v", err)
		return f
	}
	if got != want {
		f.issue(c.Name(), RiskCritical, "checksum mismatch for %s", filepath.Base(s.Entry))
	}
	return f
}

// FileChecksum returns the hex sha256 of the file at path.
func FileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// ResourceCheck inspects where a binary entry lives and how it is exposed.
type ResourceCheck struct{}

func (ResourceCheck) Name() string { return "resources" }

func (c ResourceCheck) Inspect(s Subject) Findings {
	var f Findings
	if !isBinaryRuntime(s.Runtime) {
		return f
	}

	if s.Dir != "" && escapes(s.Dir, s.Entry) {
		f.issue(c.Name(), RiskCritical, "entry %s is outside the module directory", s.Entry)
	}

	info, err := os.Lstat(s.Entry)
	if err != nil {
		f.issue(c.Name(), RiskHigh, "entry is not accessible: %v", err)
		return f
	}
	if info.Mode()&os.ModeSymlink != 0 {
		f.warn(c.Name(), "entry %s is a symlink", filepath.Base(s.Entry))
		target, err := filepath.EvalSymlinks(s.Entry)
		if err != nil {
			f.issue(c.Name(), RiskHigh, "entry symlink cannot be resolved: %v", err)
			return f
		}
		if s.Dir != "" && escapes(s.Dir, target) {
			f.issue(c.Name(), RiskCritical, "entry symlink points outside the module directory")
		}
		if info, err = os.Stat(target); err != nil {
			f.issue(c.Name(), RiskHigh, "entry symlink target is not accessible: %v", err)
			return f
		}
	}

	if info.Mode().Perm()&0o002 != 0 {
		f.issue(c.Name(), RiskHigh, "entry %s is world-writable", filepath.Base(s.Entry))
	}
	if info.Mode().Perm()&0o111 == 0 {
		f.issue(c.Name(), RiskMedium, "entry %s is not executable", filepath.Base(s.Entry))
	}
	return f
}

func escapes(dir, path string) bool {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return true
	}
	if resolved, err := filepath.EvalSymlinks(absDir); err == nil {
		absDir = resolved
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return true
	}
	if resolvedParent, err := filepath.EvalSymlinks(filepath.Dir(absPath)); err == nil {
		absPath = filepath.Join(resolvedParent, filepath.Base(absPath))
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return true
	}
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
