package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/DevelApp-ai/PluginJobRunner/internal/executor"
	"github.com/DevelApp-ai/PluginJobRunner/internal/factory"
	"github.com/DevelApp-ai/PluginJobRunner/internal/jobs"
	"github.com/spf13/cobra"
)

var (
	runVersion  string
	runDataFile string
	runTimeout  time.Duration
	runJSON     bool
)

var runCmd = &cobra.Command{
	Use:   "run <namespace.name> [job-data]",
	Short: "Run a job against an executor",
	Long: `Enqueue a single job for an executor and run it to completion.

Job data is taken from the second argument, from --data-file, or from stdin
when --data-file is "-". The newest registered version runs unless --version
pins one.

Examples:
  jobrunner run Sort.Array '[5,2,1,4,3]'
  echo '[3,1,2]' | jobrunner run Sort.Array --data-file -
  jobrunner run Reports.Daily.Summary --version 1.2.0 --json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runVersion, "version", "", "Run this exact version instead of the newest")
	runCmd.Flags().StringVarP(&runDataFile, "data-file", "f", "", `Read job data from a file ("-" for stdin)`)
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Per-job timeout (overrides jobs.timeout)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the finished job as JSON")
	rootCmd.AddCommand(runCmd)
}

// lookupFunc adapts a function to jobs.Lookup.
type lookupFunc func(fullName string) (executor.Executor, error)

func (f lookupFunc) GetExecutor(fullName string) (executor.Executor, error) { return f(fullName) }

func runRun(cmd *cobra.Command, args []string) error {
	name := args[0]
	data, err := jobData(cmd, args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	f, err := openFactory(ctx)
	if err != nil {
		return err
	}
	defer f.Close()

	var lookup jobs.Lookup = f
	if runVersion != "" {
		lookup = lookupFunc(func(fullName string) (executor.Executor, error) {
			return f.GetExecutorVersion(fullName, runVersion)
		})
	}

	timeout := cfg.Jobs.Timeout
	if runTimeout > 0 {
		timeout = runTimeout
	}
	runner := jobs.NewRunner(jobs.NewMemoryStore(), lookup,
		jobs.WithTimeout(timeout),
		jobs.WithLogger(logger),
	)

	job, err := runner.Enqueue(ctx, name, data)
	if err != nil {
		if errors.Is(err, jobs.ErrUnknownExecutor) {
			return unknownExecutorError(f, name)
		}
		return err
	}
	job, err = runner.Run(ctx, job.ID)
	if err != nil {
		return err
	}

	if err := printJob(cmd.OutOrStdout(), job); err != nil {
		return err
	}
	if job.Status != jobs.StatusSuccess {
		return fmt.Errorf("job %s failed: %s", job.ID, job.Message)
	}
	return nil
}

func jobData(cmd *cobra.Command, args []string) (string, error) {
	switch {
	case len(args) == 2 && runDataFile != "":
		return "", errors.New("job data given both as an argument and with --data-file")
	case len(args) == 2:
		return args[1], nil
	case runDataFile == "-":
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading job data from stdin: %w", err)
		}
		return string(b), nil
	case runDataFile != "":
		b, err := os.ReadFile(runDataFile)
		if err != nil {
			return "", fmt.Errorf("reading job data: %w", err)
		}
		return string(b), nil
	}
	return "", nil
}

func unknownExecutorError(f *factory.Factory, name string) error {
	if runVersion == "" {
		return fmt.Errorf("executor %q is not registered (see '%s list')", name, rootCmd.Name())
	}
	versions, _ := f.Versions(name)
	if len(versions) == 0 {
		return fmt.Errorf("executor %q is not registered (see '%s list')", name, rootCmd.Name())
	}
	return fmt.Errorf("executor %q has no version %s (registered: %s)", name, runVersion, strings.Join(versions, ", "))
}

func printJob(w io.Writer, job *jobs.Job) error {
	if runJSON {
		data, err := json.MarshalIndent(job, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	fmt.Fprintf(w, "Job %s %s in %s\n", job.ID, job.Status, job.Duration.Round(time.Millisecond))
	if job.Message != "" {
		fmt.Fprintf(w, "  message: %s\n", job.Message)
	}
	if job.Status == jobs.StatusSuccess && job.Data != "" {
		fmt.Fprintln(w, job.Data)
	}
	return nil
}
