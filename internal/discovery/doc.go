// Package discovery finds executor modules and binds the executors they declare.
package discovery
