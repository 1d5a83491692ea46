package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/DevelApp-ai/PluginJobRunner/internal/discovery"
	"github.com/DevelApp-ai/PluginJobRunner/internal/events"
	"github.com/DevelApp-ai/PluginJobRunner/internal/manifest"
	"github.com/DevelApp-ai/PluginJobRunner/internal/security"
	"github.com/spf13/cobra"
)

var validateJSON bool

var validateCmd = &cobra.Command{
	Use:   "validate [location|manifest]",
	Short: "Check modules against the schema and the security gate",
	Long: `Validate a single module manifest against the module schema, or scan a
module location and print the security gate's verdict for every declared
executor. Nothing is registered and no plugin process is started.

Without an argument the configured plugins.location is scanned.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(validateCmd)
}

// verdict is one executor's gate outcome.
type verdict struct {
	Name     string             `json:"name"`
	Version  string             `json:"version"`
	Source   string             `json:"source"`
	Runtime  string             `json:"runtime"`
	Valid    bool               `json:"valid"`
	Risk     security.RiskLevel `json:"risk"`
	Issues   []string           `json:"issues,omitempty"`
	Warnings []string           `json:"warnings,omitempty"`

	result security.ValidationResult
}

// loadError is a module that never reached the gate.
type loadError struct {
	Source string `json:"source"`
	Name   string `json:"name,omitempty"`
	Error  string `json:"error"`
}

type validateReport struct {
	Executors []verdict   `json:"executors"`
	Errors    []loadError `json:"errors,omitempty"`
}

// collector gathers load failures published during a scan.
type collector []loadError

func (c *collector) Publish(e events.Event) {
	if lf, ok := e.(events.LoadFailure); ok {
		le := loadError{Source: lf.Source, Error: lf.Err.Error()}
		if lf.Identity.Version != nil {
			le.Name = lf.Identity.String()
		}
		*c = append(*c, le)
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	target := cfg.Plugins.Location
	if len(args) == 1 {
		target = args[0]
	}

	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		return validateManifest(cmd.OutOrStdout(), target)
	}

	c := catalog()
	src := discovery.NewFileSystem(target, newDispatcher(cfg.Plugins, c), discovery.WithLogger(logger))
	var failures collector
	seq, err := src.Discover(cmd.Context(), &failures)
	if err != nil {
		return err
	}

	gate := newGate(cfg.Plugins)
	var report validateReport
	for d := range seq {
		res := gate.Validate(d.Subject())
		report.Executors = append(report.Executors, verdict{
			Name:     d.Identity.FullName(),
			Version:  d.Identity.Version.String(),
			Source:   d.Source,
			Runtime:  d.Runtime,
			Valid:    res.Valid,
			Risk:     res.RiskLevel,
			Issues:   res.IssueDescriptions(),
			Warnings: res.WarningDescriptions(),
			result:   res,
		})
		if d.Binding != nil {
			_ = d.Binding.Close()
		}
	}
	report.Errors = failures

	if validateJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	} else if err := printValidateReport(cmd.OutOrStdout(), report); err != nil {
		return err
	}

	rejected := 0
	for _, v := range report.Executors {
		if !v.Valid {
			rejected++
		}
	}
	if rejected > 0 || len(report.Errors) > 0 {
		return fmt.Errorf("%d executor(s) rejected, %d load error(s)", rejected, len(report.Errors))
	}
	return nil
}

func validateManifest(w io.Writer, path string) error {
	res, err := manifest.ValidateFile(path)
	if err != nil {
		return err
	}
	if res.Valid {
		fmt.Fprintf(w, "%s: valid\n", path)
		return nil
	}
	fmt.Fprintf(w, "%s: invalid\n", path)
	for _, issue := range res.Issues {
		msg := issue.Message
		if issue.Path != "" {
			msg = issue.Path + ": " + msg
		}
		fmt.Fprintf(w, "  - %s\n", msg)
	}
	return fmt.Errorf("%s has %d schema issue(s)", path, len(res.Issues))
}

func printValidateReport(w io.Writer, r validateReport) error {
	if len(r.Executors) == 0 && len(r.Errors) == 0 {
		fmt.Fprintln(w, "No executors found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVERSION\tRUNTIME\tRISK\tVERDICT")
	for _, v := range r.Executors {
		status := "accepted"
		if !v.Valid {
			status = "rejected"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", v.Name, v.Version, v.Runtime, v.Risk, status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, v := range r.Executors {
		for _, issue := range v.result.Issues {
			fmt.Fprintf(w, "  %s@%s [%s] %s: %s\n", v.Name, v.Version, issue.Severity, issue.Check, issue.Description)
		}
		for _, warn := range v.result.Warnings {
			fmt.Fprintf(w, "  %s@%s [warning] %s: %s\n", v.Name, v.Version, warn.Check, warn.Description)
		}
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  load error in %s: %s\n", e.Source, e.Error)
	}
	return nil
}
