package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	"github.com/DevelApp-ai/PluginJobRunner/internal/executor"
)

// PluginRuntime binds executors served by go-plugin binaries. The plugin
// process is started on the first New call, not at bind time, so nothing runs
// before the security gate accepted the executor. Executors that share an
// entry share one process; it is killed when the last binding using it is
// closed.
type PluginRuntime struct {
	logger hclog.Logger

	mu      sync.Mutex
	clients map[string]*pluginProcess
}

type pluginProcess struct {
	client *plugin.Client
	rpc    *ExecutorRPCClient
	refs   int
}

// NewPluginRuntime returns a plugin runtime. A nil logger discards plugin output.
func NewPluginRuntime(logger hclog.Logger) *PluginRuntime {
	if logger == nil {
		logger = NewPluginLogger(false)
	}
	return &PluginRuntime{
		logger:  logger,
		clients: make(map[string]*pluginProcess),
	}
}

// NewPluginLogger returns the hclog logger handed to go-plugin clients.
func NewPluginLogger(debug bool) hclog.Logger {
	level := hclog.Error
	var output io.Writer = io.Discard
	if debug {
		level = hclog.Debug
		output = os.Stderr
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "jobrunner-plugin",
		Level:  level,
		Output: output,
	})
}

func (r *PluginRuntime) Bind(_ context.Context, t Target) (Binding, error) {
	info, err := os.Stat(t.Entry)
	if err != nil {
		return nil, fmt.Errorf("plugin file check failed: %w", err)
	}
	if !info.Mode().IsRegular() || info.Mode()&0o111 == 0 {
		return nil, fmt.Errorf("plugin %s is not executable", t.Entry)
	}

	return &pluginBinding{runtime: r, target: t}, nil
}

// Running returns the number of live plugin processes.
func (r *PluginRuntime) Running() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

func (r *PluginRuntime) acquire(entry string) (*pluginProcess, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if proc, ok := r.clients[entry]; ok && !proc.client.Exited() {
		proc.refs++
		return proc, nil
	}

	cmd := exec.Command(entry)
	cmd.Dir = filepath.Dir(entry)
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  Handshake,
		Plugins:          PluginMap(),
		Cmd:              cmd,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolNetRPC},
		Logger:           r.logger.Named(filepath.Base(entry)),
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to connect to plugin %s: %w", entry, err)
	}
	raw, err := rpcClient.Dispense(PluginKey)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to dispense plugin %s: %w", entry, err)
	}
	execClient, ok := raw.(*ExecutorRPCClient)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("plugin %s dispensed %T", entry, raw)
	}

	proc := &pluginProcess{client: client, rpc: execClient, refs: 1}
	r.clients[entry] = proc
	return proc, nil
}

// release drops one reference to proc and kills it once unreferenced. An
// exited process may already have been replaced in the pool by a fresh one.
func (r *PluginRuntime) release(entry string, proc *pluginProcess) {
	r.mu.Lock()
	defer r.mu.Unlock()

	proc.refs--
	if proc.refs > 0 {
		return
	}
	proc.client.Kill()
	if r.clients[entry] == proc {
		delete(r.clients, entry)
	}
}

var errBindingClosed = errors.New("plugin binding closed")

type pluginBinding struct {
	runtime *PluginRuntime
	target  Target

	mu     sync.Mutex
	proc   *pluginProcess
	closed bool
}

func (b *pluginBinding) New() (executor.Executor, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, errBindingClosed
	}
	if b.proc == nil || b.proc.client.Exited() {
		if b.proc != nil {
			b.runtime.release(b.target.Entry, b.proc)
			b.proc = nil
		}
		proc, err := b.runtime.acquire(b.target.Entry)
		if err != nil {
			b.mu.Unlock()
			return nil, err
		}
		b.proc = proc
	}
	rpc := b.proc.rpc
	b.mu.Unlock()

	return rpc.Executor(b.target.Identity)
}

func (b *pluginBinding) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if b.proc != nil {
		b.runtime.release(b.target.Entry, b.proc)
		b.proc = nil
	}
	return nil
}

// Serve runs the calling binary as a plugin serving executors. It blocks
// until the runner disconnects.
func Serve(executors ...executor.Executor) {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins:         PluginMap(executors...),
		Logger: hclog.New(&hclog.LoggerOptions{
			Name:       "jobrunner-plugin-server",
			Level:      hclog.Info,
			Output:     os.Stderr,
			JSONFormat: true,
		}),
	})
}
