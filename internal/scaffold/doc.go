// Package scaffold generates new executor modules from embedded templates. It
// powers the "jobrunner create" command, producing a module manifest and a
// starting implementation for the chosen runtime (a shell entry point for
// exec, a Go executor package for builtin, a go-plugin server for plugin).
package scaffold
