// Package executor defines the contract every job executor implements: an
// identity made of namespace, name and semantic version, a description, and
// an Execute operation over an opaque job payload. It also provides the
// helpers shared by the registry and factory for parsing versions and
// splitting dotted full names.
package executor
