package commands

import (
	"strings"

	"github.com/spf13/cobra"
)

// DumpOptions holds options for the dump command.
type DumpOptions struct {
	Prefix string
}

// NewDumpCommand creates the dump command.
func NewDumpCommand() *cobra.Command {
	opts := &DumpOptions{}

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Show all stored entries",
		Long: `Show every entry in the store with its kind and literal value.

The store is recovered from the snapshot and WAL, so the output reflects
all committed statements.`,
		Example: `  configx dump
  configx dump --prefix server.
  configx dump -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDump(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Prefix, "prefix", "", "Only show keys with this prefix")

	return cmd
}

func runDump(cmd *cobra.Command, opts *DumpOptions) (err error) {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := cleanup(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	entries := sortedEntries(cmdCtx.Engine.Tree().Snapshot())
	if opts.Prefix != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if strings.HasPrefix(e.Key, opts.Prefix) {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	return renderEntries(cmdCtx.Renderer, entries)
}
