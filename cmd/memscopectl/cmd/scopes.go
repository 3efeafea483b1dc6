package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/memscopetrack/memscopetrack/trace"
)

func newScopesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scopes <tracefile>",
		Short: "print the final record's scope table",
		Args:  wrapUsageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := trace.ReadAll(args[0])
			if err != nil {
				return usageErrorf("memscopectl: %w", err)
			}
			if len(records) == 0 {
				return usageErrorf("memscopectl: %s contains no records", args[0])
			}
			printScopes(os.Stdout, records[len(records)-1].Extents)
			return nil
		},
	}
	return cmd
}

func printScopes(w io.Writer, extents map[string]uint64) {
	scopes := make([]string, 0, len(extents))
	for s := range extents {
		scopes = append(scopes, s)
	}
	sort.Strings(scopes)

	t := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(t, "scope\tbytes")
	for _, s := range scopes {
		fmt.Fprintf(t, "%s\t%d\n", s, extents[s])
	}
	t.Flush()
}
