package executor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/text/cases"
)

// ErrInvalidIdentity is returned when an identity is missing a part.
var ErrInvalidIdentity = errors.New("invalid executor identity")

// Identity names an executor: namespace and name address it, Version
// orders the executors registered under the same address.
type Identity struct {
	Namespace string
	Name      string
	Version   *semver.Version
}

// NewIdentity builds an Identity, parsing version with ParseVersion.
func NewIdentity(namespace, name, version string) (Identity, error) {
	v, err := ParseVersion(version)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %s.%s: %w", ErrInvalidIdentity, namespace, name, err)
	}
	id := Identity{
		Namespace: strings.TrimSpace(namespace),
		Name:      strings.TrimSpace(name),
		Version:   v,
	}
	if err := id.Validate(); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// MustIdentity is like NewIdentity but panics on error. Intended for
// compiled-in executors whose identity is a constant.
func MustIdentity(namespace, name, version string) Identity {
	id, err := NewIdentity(namespace, name, version)
	if err != nil {
		panic(err)
	}
	return id
}

// Validate reports whether all three parts are present.
func (i Identity) Validate() error {
	switch {
	case i.Namespace == "":
		return fmt.Errorf("%w: empty namespace", ErrInvalidIdentity)
	case i.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidIdentity)
	case i.Version == nil:
		return fmt.Errorf("%w: %s.%s has no version", ErrInvalidIdentity, i.Namespace, i.Name)
	case strings.Contains(i.Name, "."):
		return fmt.Errorf("%w: name %q contains a dot", ErrInvalidIdentity, i.Name)
	case strings.HasPrefix(i.Namespace, ".") || strings.HasSuffix(i.Namespace, "."):
		return fmt.Errorf("%w: namespace %q has an empty segment", ErrInvalidIdentity, i.Namespace)
	}
	return nil
}

// FullName returns "<namespace>.<name>".
func (i Identity) FullName() string {
	return i.Namespace + "." + i.Name
}

// Key returns the case-folded lookup key for the identity's address.
func (i Identity) Key() Key {
	return NewKey(i.Namespace, i.Name)
}

// SameAddress reports whether both identities address the same executor,
// ignoring the version.
func (i Identity) SameAddress(o Identity) bool {
	return i.Key() == o.Key()
}

// Equal reports whether both identities have the same address and version.
func (i Identity) Equal(o Identity) bool {
	if !i.SameAddress(o) {
		return false
	}
	if i.Version == nil || o.Version == nil {
		return i.Version == o.Version
	}
	return i.Version.Equal(o.Version)
}

func (i Identity) String() string {
	if i.Version == nil {
		return i.FullName()
	}
	return i.FullName() + "@" + i.Version.String()
}

// Key is the normalized (namespace, name) pair identities are registered under.
type Key struct {
	Namespace string
	Name      string
}

// NewKey folds namespace and name so lookups are case-insensitive.
func NewKey(namespace, name string) Key {
	fold := cases.Fold()
	return Key{
		Namespace: fold.String(strings.TrimSpace(namespace)),
		Name:      fold.String(strings.TrimSpace(name)),
	}
}

func (k Key) String() string {
	return k.Namespace + "." + k.Name
}

// ParseVersion strips a leading "v" and parses the version string.
func ParseVersion(version string) (*semver.Version, error) {
	version = strings.TrimPrefix(strings.TrimSpace(version), "v")
	if version == "" {
		return nil, errors.New("empty version")
	}
	return semver.NewVersion(version)
}
