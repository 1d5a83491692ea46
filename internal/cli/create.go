package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/DevelApp-ai/PluginJobRunner/internal/manifest"
	"github.com/DevelApp-ai/PluginJobRunner/internal/scaffold"
	"github.com/spf13/cobra"
)

var (
	createOutputDir   string
	createRuntime     string
	createVersion     string
	createAuthor      string
	createDescription string
)

func init() {
	createCmd.Flags().StringVar(&createOutputDir, "output-dir", "", "Output directory (default: ./<module>)")
	createCmd.Flags().StringVar(&createRuntime, "runtime", manifest.RuntimeExec, "Executor runtime: builtin, exec or plugin")
	createCmd.Flags().StringVar(&createVersion, "version", "", "Initial executor version (default 0.1.0)")
	createCmd.Flags().StringVar(&createAuthor, "author", "", "Module author")
	createCmd.Flags().StringVar(&createDescription, "description", "", "Executor description")
	rootCmd.AddCommand(createCmd)
}

var createCmd = &cobra.Command{
	Use:   "create <namespace.name>",
	Short: "Scaffold a new executor module",
	Long: `Create a module manifest and a starting implementation for a new executor.

Examples:
  jobrunner create Reports.Daily.Summary
  jobrunner create Sort.Strings --runtime builtin --output-dir internal/plugins/sortstrings
  jobrunner create Image.Resize --runtime plugin --author ops`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := scaffold.NewScaffoldData(args[0], createRuntime)
		if err != nil {
			return err
		}
		if createVersion != "" {
			data.Version = createVersion
		}
		if createAuthor != "" {
			data.Author = createAuthor
		}
		if createDescription != "" {
			data.Description = createDescription
		}

		outDir := createOutputDir
		if outDir == "" {
			outDir = filepath.Join(".", data.Module)
		}

		result, err := scaffold.Generate(data, outDir)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		printResult(out, data, result)

		// Next steps guidance.
		fmt.Fprintln(out, "\nNext steps:")
		switch data.Runtime {
		case manifest.RuntimeExec:
			fmt.Fprintf(out, "  1. Edit %s to add your executor logic\n", data.Entry)
			fmt.Fprintf(out, "  2. Refresh the checksum in module.yaml after every change (sha256sum %s)\n", data.Entry)
		case manifest.RuntimeBuiltin:
			fmt.Fprintln(out, "  1. Edit executor.go to add your executor logic")
			fmt.Fprintln(out, "  2. Call Register from the CLI's builtin catalog and rebuild")
		case manifest.RuntimePlugin:
			fmt.Fprintln(out, "  1. Edit main.go to add your executor logic")
			fmt.Fprintf(out, "  2. Build it to %s and record its checksum in module.yaml\n", data.Entry)
		}
		fmt.Fprintf(out, "  3. Check it with '%s validate %s'\n", rootCmd.Name(), outDir)
		return nil
	},
}

func printResult(w io.Writer, data *scaffold.ScaffoldData, result *scaffold.Result) {
	fmt.Fprintf(w, "Created %s (%s) at %s/\n", data.FullName, data.Runtime, result.OutputDir)
	for _, f := range result.Files {
		fmt.Fprintf(w, "  %s\n", f)
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintln(w, "\nWarnings:")
		for _, warn := range result.Warnings {
			fmt.Fprintf(w, "  - %s\n", warn)
		}
	}
}
