package manifest

import (
	"testing"
)

func TestValidate_ValidFiles(t *testing.T) {
	for _, file := range []string{"valid-builtin.yaml", "valid-exec.yaml", "valid-plugin.json"} {
		t.Run(file, func(t *testing.T) {
			result, err := ValidateFile(testPath(file))
			if err != nil {
				t.Fatalf("ValidateFile error: %v", err)
			}
			if !result.Valid {
				t.Errorf("expected valid, got issues: %v", result.Issues)
			}
		})
	}
}

func TestValidate_NoExecutors(t *testing.T) {
	result, err := ValidateFile(testPath("invalid-no-executors.yaml"))
	if err != nil {
		t.Fatalf("ValidateFile error: %v", err)
	}
	if result.Valid {
		t.Fatal("expected invalid result")
	}
	if !hasIssue(result, "/executors", "minItems") {
		t.Errorf("missing minItems issue on /executors: %v", result.Issues)
	}
}

func TestValidate_BadRuntimeAndChecksum(t *testing.T) {
	result, err := ValidateFile(testPath("invalid-runtime.yaml"))
	if err != nil {
		t.Fatalf("ValidateFile error: %v", err)
	}
	if result.Valid {
		t.Fatal("expected invalid result")
	}
	if !hasIssue(result, "/executors/0/runtime", "enum") {
		t.Errorf("missing enum issue: %v", result.Issues)
	}
	if !hasIssue(result, "/executors/0/checksum", "pattern") {
		t.Errorf("missing pattern issue: %v", result.Issues)
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	data := []byte(`
module: partial
executors:
  - namespace: Sort
    runtime: builtin
`)
	result, err := Validate(data)
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if result.Valid {
		t.Fatal("expected invalid result")
	}
	if !hasIssue(result, "/executors/0", "required") {
		t.Errorf("missing required issue: %v", result.Issues)
	}
}

func TestValidate_UnknownField(t *testing.T) {
	result, err := Validate([]byte("module: x\nkind: plugin\nexecutors:\n  - {namespace: A, name: B, version: 1.0.0, runtime: exec, entry: b}\n"))
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if result.Valid {
		t.Fatal("expected additionalProperties violation")
	}
}

func TestValidate_Malformed(t *testing.T) {
	if _, err := ValidateFile(testPath("malformed.yaml")); err == nil {
		t.Fatal("expected decode error")
	}
}

func hasIssue(r *ValidationResult, path, keyword string) bool {
	for _, issue := range r.Issues {
		if issue.Path == path && issue.Keyword == keyword {
			return true
		}
	}
	return false
}
