package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitFullName_Valid(t *testing.T) {
	cases := []struct {
		input     string
		namespace string
		name      string
	}{
		{"Namespace.ClassName", "Namespace", "ClassName"},
		{"Very.Long.Namespace.Path.ClassName", "Very.Long.Namespace.Path", "ClassName"},
		{"Simple.Class", "Simple", "Class"},
		{"Sort.Array", "Sort", "Array"},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			ns, name, ok := SplitFullName(tc.input)
			assert.True(t, ok)
			assert.Equal(t, tc.namespace, ns)
			assert.Equal(t, tc.name, name)
		})
	}
}

func TestSplitFullName_Invalid(t *testing.T) {
	cases := []string{"", "NoNamespace", ".StartsWithDot", "EndsWithDot.", ".", " .X", "X. "}

	for _, input := range cases {
		t.Run(input, func(t *testing.T) {
			ns, name, ok := SplitFullName(input)
			assert.False(t, ok)
			assert.Empty(t, ns)
			assert.Empty(t, name)
		})
	}
}
