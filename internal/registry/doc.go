// Package registry keeps accepted executors indexed by namespace and name,
// ordered newest version first. Each address retains the newest version plus
// a configurable number of older ones; everything older is evicted.
package registry
