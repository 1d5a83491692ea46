// Package factory builds the executor registry from a module source and hands
// out executor instances by full name.
//
// Construction runs discovery, security validation and registration once, in
// discovery order. Per-module problems are published as events and never
// fail construction; only an unusable location does. After Close every
// operation returns ErrClosed.
package factory
