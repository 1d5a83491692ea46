package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/DevelApp-ai/PluginJobRunner/internal/executor"
	"github.com/spf13/cobra"
)

var (
	listFilter string
	listJSON   bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered executors",
	Long: `List every executor version that passed the security gate, newest first
within each executor.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listFilter, "name", "", "Only list versions of this <namespace>.<name>")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(listCmd)
}

// listEntry represents a registered executor version for display.
type listEntry struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Source      string `json:"source"`
	Description string `json:"description,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	f, err := openFactory(cmd.Context())
	if err != nil {
		return err
	}
	defer f.Close()

	registered, err := f.Executors()
	if err != nil {
		return err
	}

	var entries []listEntry
	for _, e := range registered {
		if listFilter != "" && e.Identity.Key() != keyOf(listFilter) {
			continue
		}
		entries = append(entries, listEntry{
			Name:        e.Identity.FullName(),
			Version:     e.Identity.Version.String(),
			Source:      e.Source,
			Description: e.Description,
		})
	}

	if len(entries) == 0 {
		if listFilter != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "No executors matching --name=%s\n", listFilter)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "No executors registered.")
		}
		return nil
	}

	if listJSON {
		return printListJSON(cmd, entries)
	}
	return printListTable(cmd, entries)
}

func printListTable(cmd *cobra.Command, entries []listEntry) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tSOURCE\tDESCRIPTION")
	for _, e := range entries {
		desc := e.Description
		if desc == "" {
			desc = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Name, e.Version, e.Source, desc)
	}
	return w.Flush()
}

func printListJSON(cmd *cobra.Command, entries []listEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

// keyOf returns the lookup key for a full name, or the zero key when the
// name is malformed.
func keyOf(fullName string) executor.Key {
	ns, name, ok := executor.SplitFullName(fullName)
	if !ok {
		return executor.Key{}
	}
	return executor.NewKey(ns, name)
}
