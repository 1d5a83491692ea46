// Package events carries per-module failures out of the executor factory.
//
// Discovery, the security gate and executor construction never abort a load
// batch or a lookup because of a single bad module. They publish one of the
// Event variants below on a Notifier instead, and carry on. Listeners decide
// what to do with them; LogListener writes them to a zap logger.
package events
