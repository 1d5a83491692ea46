package discovery

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/DevelApp-ai/PluginJobRunner/internal/events"
	"github.com/DevelApp-ai/PluginJobRunner/internal/executor"
	"github.com/DevelApp-ai/PluginJobRunner/internal/manifest"
	"github.com/DevelApp-ai/PluginJobRunner/internal/runtime"
)

// ErrInvalidLocation is returned when a module location cannot be scanned at all.
var ErrInvalidLocation = errors.New("invalid module location")

// moduleFileNames are the manifest names looked for inside module directories.
var moduleFileNames = []string{"module.yaml", "module.yml", "module.json"}

// FileSystem discovers module manifests in a directory.
//
// A manifest is either a file with a manifest extension directly in the
// directory, or a module.{yaml,yml,json} file one level down. Anything else is
// ignored.
type FileSystem struct {
	location   string
	dispatcher *runtime.Dispatcher
	logger     *zap.Logger
}

// Option configures a FileSystem source.
type Option func(*FileSystem)

// WithLogger sets the logger used for scan diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(fs *FileSystem) { fs.logger = l }
}

// NewFileSystem returns a source for location, a directory path or a file:// URI.
func NewFileSystem(location string, dispatcher *runtime.Dispatcher, opts ...Option) *FileSystem {
	fs := &FileSystem{
		location:   location,
		dispatcher: dispatcher,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(fs)
	}
	return fs
}

// Location returns the location the source was created with.
func (fs *FileSystem) Location() string { return fs.location }

// ResolveLocation turns a path or file:// URI into an absolute directory path.
func ResolveLocation(location string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", fmt.Errorf("%w: empty location", ErrInvalidLocation)
	}

	path := location
	if strings.Contains(location, "://") {
		u, err := url.Parse(location)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidLocation, err)
		}
		if u.Scheme != "file" {
			return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLocation, u.Scheme)
		}
		path = filepath.FromSlash(u.Path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrInvalidLocation, abs)
	}
	return abs, nil
}

// ManifestPaths lists the manifests under root in lexical order.
func ManifestPaths(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		full := filepath.Join(root, e.Name())
		if e.IsDir() {
			for _, name := range moduleFileNames {
				candidate := filepath.Join(full, name)
				if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
					paths = append(paths, candidate)
					break
				}
			}
			continue
		}
		if e.Type().IsRegular() && manifest.IsManifestFile(e.Name()) {
			paths = append(paths, full)
		}
	}
	slices.Sort(paths)
	return paths, nil
}

func (fs *FileSystem) Discover(ctx context.Context, pub Publisher) (iter.Seq[*Descriptor], error) {
	pub = orDiscard(pub)
	root, err := ResolveLocation(fs.location)
	if err != nil {
		return nil, err
	}
	paths, err := ManifestPaths(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}
	fs.logger.Debug("scanning module location", zap.String("root", root), zap.Int("manifests", len(paths)))

	return once(func(yield func(*Descriptor) bool) {
		for _, path := range paths {
			if ctx.Err() != nil {
				return
			}
			if !fs.loadModule(ctx, path, pub, yield) {
				return
			}
		}
	}), nil
}

// loadModule yields every bindable executor in one manifest. It returns
// false when the consumer stopped ranging.
func (fs *FileSystem) loadModule(ctx context.Context, path string, pub Publisher, yield func(*Descriptor) bool) bool {
	m, err := manifest.LoadFile(path)
	if err != nil {
		pub.Publish(events.LoadFailure{Source: path, Err: err})
		return true
	}

	dir := filepath.Dir(path)
	for _, spec := range m.Executors {
		d, err := fs.bind(ctx, path, dir, spec)
		if err != nil {
			ev := events.LoadFailure{Source: path, Err: err}
			if d != nil {
				ev.Identity = d.Identity
			}
			pub.Publish(ev)
			continue
		}
		if !yield(d) {
			return false
		}
	}
	return true
}

// bind returns a partially filled descriptor alongside the error once the
// identity is known, so the failure can name it.
func (fs *FileSystem) bind(ctx context.Context, path, dir string, spec manifest.ExecutorSpec) (*Descriptor, error) {
	id, err := executor.NewIdentity(spec.Namespace, spec.Name, spec.Version)
	if err != nil {
		return nil, err
	}

	entry := spec.Entry
	if spec.Runtime != manifest.RuntimeBuiltin && !filepath.IsAbs(entry) {
		entry = filepath.Join(dir, filepath.FromSlash(entry))
	}

	d := &Descriptor{
		Identity:     id,
		Description:  spec.Description,
		Source:       path,
		Runtime:      spec.Runtime,
		Entry:        entry,
		Dir:          dir,
		Capabilities: spec.Capabilities,
		Checksum:     spec.Checksum,
	}

	binding, err := fs.dispatcher.Bind(ctx, runtime.Target{
		Identity:    id,
		Description: spec.Description,
		Runtime:     spec.Runtime,
		Entry:       entry,
		Dir:         dir,
	})
	if err != nil {
		return d, fmt.Errorf("binding %s: %w", id, err)
	}
	d.Binding = binding
	return d, nil
}
