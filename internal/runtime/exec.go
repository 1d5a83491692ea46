package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/DevelApp-ai/PluginJobRunner/internal/executor"
)

// Environment variables set for exec executors.
const (
	EnvExecutor = "JOBRUNNER_EXECUTOR"
	EnvVersion  = "JOBRUNNER_EXECUTOR_VERSION"
	EnvJobID    = "JOBRUNNER_JOB_ID"
	EnvAttempt  = "JOBRUNNER_ATTEMPT"
	EnvModule   = "JOBRUNNER_MODULE_DIR"
)

// maxStderr caps how much stderr is folded into a failure message.
const maxStderr = 2048

// ExecRuntime binds executors implemented as standalone executables. Each
// execution starts the binary with the job data on stdin and reads a single
// JSON result from stdout.
type ExecRuntime struct {
	// Stderr, if set, also receives the child's stderr.
	Stderr io.Writer
}

func (r *ExecRuntime) Bind(_ context.Context, t Target) (Binding, error) {
	info, err := os.Stat(t.Entry)
	if err != nil {
		return nil, fmt.Errorf("executor entry point not found at %s: %w", t.Entry, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("executor entry point %s is not a regular file", t.Entry)
	}
	return ConstructorBinding(func() (executor.Executor, error) {
		return &execExecutor{target: t, stderr: r.Stderr}, nil
	}), nil
}

type execExecutor struct {
	target Target
	stderr io.Writer
}

func (e *execExecutor) Identity() executor.Identity { return e.target.Identity }

func (e *execExecutor) Description() string { return e.target.Description }

func (e *execExecutor) Execute(ctx context.Context, ec *executor.ExecutionContext, jobData string) executor.Result {
	cmd := exec.CommandContext(ctx, e.target.Entry)
	cmd.Dir = e.target.Dir
	cmd.Env = e.env(ec)
	cmd.Stdin = strings.NewReader(jobData)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	if e.stderr != nil {
		cmd.Stderr = io.MultiWriter(e.stderr, &stderrBuf)
	} else {
		cmd.Stderr = &stderrBuf
	}

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return executor.Failed(fmt.Sprintf("executor %s interrupted: %v", e.target.Identity, ctxErr))
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return executor.Failed(fmt.Sprintf("executor %s exited with code %d: %s",
				e.target.Identity, exitErr.ExitCode(), tail(stderrBuf.String(), maxStderr)))
		}
		return executor.Failed(fmt.Sprintf("starting executor %s: %v", e.target.Identity, err))
	}

	var result executor.Result
	if err := json.Unmarshal(bytes.TrimSpace(stdoutBuf.Bytes()), &result); err != nil {
		return executor.Failed(fmt.Sprintf("executor %s wrote an unreadable result: %v", e.target.Identity, err))
	}
	return result
}

func (e *execExecutor) env(ec *executor.ExecutionContext) []string {
	env := os.Environ()
	env = setEnv(env, EnvExecutor, e.target.Identity.FullName())
	env = setEnv(env, EnvVersion, e.target.Identity.Version.String())
	env = setEnv(env, EnvModule, e.target.Dir)
	if ec != nil {
		env = setEnv(env, EnvJobID, ec.JobID)
		env = setEnv(env, EnvAttempt, strconv.Itoa(ec.Attempt))
	}
	return env
}

// setEnv sets or replaces an environment variable in the env slice.
func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
