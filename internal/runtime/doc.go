// Package runtime binds executors declared in module manifests to code that
// can construct them: compiled-in constructors, standalone executables, or
// out-of-process go-plugin servers.
package runtime
