package executor

import "strings"

// SplitFullName splits "<namespace>.<name>" at the last dot. The namespace
// may itself contain dots. ok is false for an empty string, a string
// without a dot, or one whose namespace or name part is empty.
func SplitFullName(fullName string) (namespace, name string, ok bool) {
	idx := strings.LastIndex(fullName, ".")
	if idx <= 0 || idx == len(fullName)-1 {
		return "", "", false
	}
	namespace, name = fullName[:idx], fullName[idx+1:]
	if strings.TrimSpace(namespace) == "" || strings.TrimSpace(name) == "" {
		return "", "", false
	}
	return namespace, name, true
}
