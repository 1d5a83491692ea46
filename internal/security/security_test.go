package security

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevelApp-ai/PluginJobRunner/internal/executor"
	"github.com/DevelApp-ai/PluginJobRunner/internal/manifest"
)

func builtinSubject(caps ...string) Subject {
	return Subject{
		Identity:     executor.MustIdentity("Sort", "Array", "1.0.0"),
		Runtime:      manifest.RuntimeBuiltin,
		Entry:        "sortarray.New",
		Capabilities: caps,
	}
}

func binarySubject(t *testing.T, mode os.FileMode) Subject {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on windows")
	}
	dir := t.TempDir()
	entry := filepath.Join(dir, "bin")
	require.NoError(t, os.WriteFile(entry, []byte("#!/bin/sh\n"), 0o600))
	require.NoError(t, os.Chmod(entry, mode))
	return Subject{
		Identity: executor.MustIdentity("Bin", "Tool", "1.0.0"),
		Runtime:  manifest.RuntimeExec,
		Entry:    entry,
		Dir:      dir,
	}
}

func TestRiskLevel_Order(t *testing.T) {
	assert.True(t, RiskNone < RiskLow)
	assert.True(t, RiskLow < RiskMedium)
	assert.True(t, RiskMedium < RiskHigh)
	assert.True(t, RiskHigh < RiskCritical)
}

func TestParseRiskLevel(t *testing.T) {
	lvl, err := ParseRiskLevel(" Critical ")
	require.NoError(t, err)
	assert.Equal(t, RiskCritical, lvl)

	_, err = ParseRiskLevel("severe")
	assert.Error(t, err)

	var r RiskLevel
	require.NoError(t, r.UnmarshalText([]byte("medium")))
	assert.Equal(t, RiskMedium, r)
}

func TestGate_CleanBuiltin(t *testing.T) {
	res := NewGate().Validate(builtinSubject())
	assert.True(t, res.Valid)
	assert.Equal(t, RiskNone, res.RiskLevel)
	assert.False(t, res.HasFindings())
}

func TestGate_RiskIsHighestSeverity(t *testing.T) {
	res := NewGate().Validate(builtinSubject("filesystem.read", "filesystem.write"))
	assert.True(t, res.Valid)
	assert.Equal(t, RiskMedium, res.RiskLevel)
	assert.Len(t, res.Issues, 2)
}

func TestGate_ThresholdRejects(t *testing.T) {
	tests := []struct {
		name      string
		caps      []string
		threshold RiskLevel
		valid     bool
		risk      RiskLevel
	}{
		{"network at default threshold", []string{"network"}, RiskHigh, false, RiskHigh},
		{"network with critical threshold", []string{"network"}, RiskCritical, true, RiskHigh},
		{"shell is critical", []string{"shell"}, RiskCritical, false, RiskCritical},
		{"unknown capability is medium", []string{"gpu"}, RiskHigh, true, RiskMedium},
		{"low threshold rejects file read", []string{"filesystem.read"}, RiskLow, false, RiskLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewGate(WithThreshold(tt.threshold)).Validate(builtinSubject(tt.caps...))
			assert.Equal(t, tt.valid, res.Valid)
			assert.Equal(t, tt.risk, res.RiskLevel)
		})
	}
}

func TestCapabilityCheck_Denied(t *testing.T) {
	res := NewGate(WithDeniedCapabilities("Filesystem.Read")).Validate(builtinSubject("filesystem.read"))
	assert.False(t, res.Valid)
	assert.Equal(t, RiskCritical, res.RiskLevel)
}

func TestSignatureCheck(t *testing.T) {
	s := binarySubject(t, 0o755)
	sum, err := FileChecksum(s.Entry)
	require.NoError(t, err)

	t.Run("missing checksum warns", func(t *testing.T) {
		res := NewGate().Validate(s)
		assert.True(t, res.Valid)
		assert.Len(t, res.Warnings, 1)
		assert.Empty(t, res.Issues)
	})

	t.Run("missing checksum required", func(t *testing.T) {
		res := NewGate(WithRequireChecksum(true)).Validate(s)
		assert.False(t, res.Valid)
		assert.Equal(t, RiskHigh, res.RiskLevel)
	})

	t.Run("matching checksum", func(t *testing.T) {
		s := s
		s.Checksum = "sha256:" + sum
		res := NewGate(WithRequireChecksum(true)).Validate(s)
		assert.True(t, res.Valid)
		assert.False(t, res.HasFindings())
	})

	t.Run("mismatch is critical", func(t *testing.T) {
		s := s
		s.Checksum = "sha256:" + sum[:62] + "00"
		if s.Checksum == "sha256:"+sum {
			s.Checksum = "sha256:" + sum[:62] + "11"
		}
		res := NewGate().Validate(s)
		assert.False(t, res.Valid)
		assert.Equal(t, RiskCritical, res.RiskLevel)
	})

	t.Run("builtins are skipped", func(t *testing.T) {
		f := SignatureCheck{RequireChecksum: true}.Inspect(builtinSubject())
		assert.Empty(t, f.Issues)
		assert.Empty(t, f.Warnings)
	})
}

func TestResourceCheck(t *testing.T) {
	t.Run("non-executable", func(t *testing.T) {
		f := ResourceCheck{}.Inspect(binarySubject(t, 0o644))
		require.Len(t, f.Issues, 1)
		assert.Equal(t, RiskMedium, f.Issues[0].Severity)
	})

	t.Run("world-writable", func(t *testing.T) {
		f := ResourceCheck{}.Inspect(binarySubject(t, 0o777))
		require.Len(t, f.Issues, 1)
		assert.Equal(t, RiskHigh, f.Issues[0].Severity)
	})

	t.Run("escapes module dir", func(t *testing.T) {
		s := binarySubject(t, 0o755)
		s.Dir = t.TempDir()
		f := ResourceCheck{}.Inspect(s)
		require.NotEmpty(t, f.Issues)
		assert.Equal(t, RiskCritical, f.Issues[0].Severity)
	})

	t.Run("symlink warns", func(t *testing.T) {
		s := binarySubject(t, 0o755)
		link := filepath.Join(s.Dir, "link")
		require.NoError(t, os.Symlink(s.Entry, link))
		s.Entry = link
		f := ResourceCheck{}.Inspect(s)
		assert.Empty(t, f.Issues)
		assert.Len(t, f.Warnings, 1)
	})

	t.Run("missing entry", func(t *testing.T) {
		s := binarySubject(t, 0o755)
		s.Entry = filepath.Join(s.Dir, "gone")
		f := ResourceCheck{}.Inspect(s)
		require.Len(t, f.Issues, 1)
		assert.Equal(t, RiskHigh, f.Issues[0].Severity)
	})
}

type alwaysCritical struct{}

func (alwaysCritical) Name() string { return "always" }
func (alwaysCritical) Inspect(Subject) Findings {
	return Findings{Issues: []Issue{{Check: "always", Severity: RiskCritical, Description: "no"}}}
}

func TestGate_CustomChecks(t *testing.T) {
	res := NewGate(WithCheck(alwaysCritical{})).Validate(builtinSubject())
	assert.False(t, res.Valid)

	res = NewGate(WithChecks()).Validate(builtinSubject("shell"))
	assert.True(t, res.Valid, "empty check list accepts everything")
}

type panicking struct{}

func (panicking) Name() string { return "panicking" }
func (panicking) Inspect(Subject) Findings {
	panic("boom")
}

func TestGate_PanickingCheckIsCritical(t *testing.T) {
	var res ValidationResult
	require.NotPanics(t, func() {
		res = NewGate(WithChecks(panicking{}, alwaysCritical{})).Validate(builtinSubject())
	})
	assert.False(t, res.Valid)
	assert.Equal(t, RiskCritical, res.RiskLevel)
	require.Len(t, res.Issues, 2, "later checks still run")
	assert.Equal(t, "panicking", res.Issues[0].Check)
	assert.Contains(t, res.Issues[0].Description, "boom")
	assert.Equal(t, "always", res.Issues[1].Check)
}
