// Package sortarray provides the Sort.Array executor, which merge sorts a JSON
// array of integers.
package sortarray

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/DevelApp-ai/PluginJobRunner/internal/executor"
	"github.com/DevelApp-ai/PluginJobRunner/internal/runtime"
)

// Symbol is the catalog entry Sort.Array is registered under.
const Symbol = "sort.array"

// Version is the version the executor reports.
const Version = "0.0.1"

var identity = executor.MustIdentity("Sort", "Array", Version)

// Executor sorts integer arrays.
type Executor struct{}

// New is the executor.Constructor for Sort.Array.
func New() (executor.Executor, error) {
	return &Executor{}, nil
}

// Register adds Sort.Array to a builtin catalog.
func Register(c *runtime.Catalog) {
	c.Register(Symbol, New)
}

func (*Executor) Identity() executor.Identity { return identity }

func (*Executor) Description() string {
	return "Sorts a JSON array of integers supplied in the job data"
}

func (*Executor) Execute(_ context.Context, _ *executor.ExecutionContext, jobData string) executor.Result {
	trimmed := strings.TrimSpace(jobData)
	if trimmed == "" {
		return executor.Failed("Missing jobData")
	}
	if !strings.HasPrefix(trimmed, "[") {
		return executor.Failed("Input is not a JSON array")
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return executor.Failed("Input is not a JSON array: " + err.Error())
	}
	if len(raw) == 0 {
		return executor.Succeeded("[]")
	}

	values := make([]int, len(raw))
	for i, r := range raw {
		n, err := strconv.Atoi(string(bytes.TrimSpace(r)))
		if err != nil {
			return executor.Failed("Input is not a JSON array of integers")
		}
		values[i] = n
	}
	if len(values) == 1 {
		return executor.Succeeded(jobData)
	}

	out, err := json.Marshal(MergeSort(values))
	if err != nil {
		return executor.Failed("Sorting failed: " + err.Error())
	}
	return executor.Succeeded(string(out))
}

// MergeSort returns a sorted copy of values. The sort is stable.
func MergeSort(values []int) []int {
	out := make([]int, len(values))
	copy(out, values)
	if len(out) < 2 {
		return out
	}
	buf := make([]int, len(out))
	mergeSort(out, buf)
	return out
}

func mergeSort(a, buf []int) {
	if len(a) < 2 {
		return
	}
	mid := len(a) / 2
	mergeSort(a[:mid], buf[:mid])
	mergeSort(a[mid:], buf[mid:])

	copy(buf, a)
	left, right := buf[:mid], buf[mid:len(a)]
	i, j, k := 0, 0, 0
	for i < len(left) && j < len(right) {
		if left[i] <= right[j] {
			a[k] = left[i]
			i++
		} else {
			a[k] = right[j]
			j++
		}
		k++
	}
	k += copy(a[k:], left[i:])
	copy(a[k:], right[j:])
}
