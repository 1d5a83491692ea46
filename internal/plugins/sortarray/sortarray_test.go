package sortarray

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/DevelApp-ai/PluginJobRunner/internal/executor"
	"github.com/DevelApp-ai/PluginJobRunner/internal/runtime"
)

func run(t *testing.T, data string) executor.Result {
	t.Helper()
	e, err := New()
	require.NoError(t, err)
	return e.Execute(context.Background(), &executor.ExecutionContext{JobID: "test"}, data)
}

func TestIdentity(t *testing.T) {
	e, _ := New()
	assert.Equal(t, "Sort.Array@0.0.1", e.Identity().String())
	assert.NotEmpty(t, e.Description())
}

func TestExecute(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		success bool
		want    string
	}{
		{"normal", "[5,2,1,4,3]", true, "[1,2,3,4,5]"},
		{"already sorted", "[1,2,3,4,5]", true, "[1,2,3,4,5]"},
		{"duplicates", "[5,2,4,1,4,3,2]", true, "[1,2,2,3,4,4,5]"},
		{"long", "[20,19,18,17,16,15,14,13,12,11,10,9,8,7,6,5,4,3,2,1]", true, "[1,2,3,4,5,6,7,8,9,10,11,12,13,14,15,16,17,18,19,20]"},
		{"negatives and spaces", "[ 3, -1 , 0 ]", true, "[-1,0,3]"},
		{"empty array", "[]", true, "[]"},
		{"single element echoed", "[1]", true, "[1]"},
		{"missing", "", false, ""},
		{"blank", "   ", false, ""},
		{"not json", "not-json", false, ""},
		{"object", `{"rubbish": "banana peel"}`, false, ""},
		{"non integer", "[2,3,A,5]", false, ""},
		{"float", "[2,3.5]", false, ""},
		{"string element", `[2,"3"]`, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, tt.data)
			assert.Equal(t, tt.success, res.Success)
			assert.Equal(t, tt.want, res.JobData)
			if tt.success {
				assert.Empty(t, res.Error)
			} else {
				assert.NotEmpty(t, res.Error)
			}
		})
	}
}

func TestExecute_MissingMessage(t *testing.T) {
	assert.Equal(t, "Missing jobData", run(t, "").Error)
}

func TestRegister(t *testing.T) {
	c := runtime.NewCatalog()
	Register(c)
	_, ok := c.Lookup(Symbol)
	assert.True(t, ok)
}

func TestMergeSortMatchesSlicesSort(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in := rapid.SliceOf(rapid.IntRange(-1000, 1000)).Draw(t, "in")
		orig := slices.Clone(in)

		got := MergeSort(in)
		want := slices.Clone(in)
		slices.Sort(want)

		if !slices.Equal(got, want) {
			t.Fatalf("MergeSort(%v) = %v, want %v", in, got, want)
		}
		if !slices.Equal(in, orig) {
			t.Fatalf("input was modified")
		}
	})
}
