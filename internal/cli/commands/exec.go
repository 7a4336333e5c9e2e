package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/configx/internal/cli/output"
)

// ExecOptions holds options for the exec command.
type ExecOptions struct {
	Input string
}

// NewExecCommand creates the exec command.
func NewExecCommand() *cobra.Command {
	opts := &ExecOptions{}

	cmd := &cobra.Command{
		Use:   "exec [statement...]",
		Short: "Execute ConfigXQL statements",
		Long: `Execute ConfigXQL statements against the store.

Each argument is one statement. With --input, or when statements are piped
on stdin, each non-blank line is one statement and lines starting with #
are ignored. Statements run in order and execution stops at the first
error; statements that already ran stay committed.

When invoked without statements on a terminal, enters the interactive REPL.`,
		Example: `  # Assign and read back
  configx exec 'items=[1,2,3]' 'items'

  # Safe retrieval returns null for missing keys
  configx exec 'missing!'

  # Run a file of statements
  configx exec -i settings.xql

  # Pipe statements, print tagged JSON
  echo 'ratio=0.75' | configx exec -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read statements from file")

	return cmd
}

func runExec(cmd *cobra.Command, args []string, opts *ExecOptions) (err error) {
	var stmts []string

	switch {
	case len(args) > 0:
		stmts = args
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		stmts = splitStatements(string(content))
	case !output.IsTerminal(cmd.InOrStdin()):
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		stmts = splitStatements(string(content))
	default:
		// No input, TTY detected - enter REPL mode
		return runREPL(cmd)
	}

	if len(stmts) == 0 {
		return errors.New("no statements to execute")
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := cleanup(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	results, execErr := executeStatements(cmdCtx, stmts)

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(results); err != nil {
			return err
		}
	} else {
		for _, res := range results {
			r.Println(res.Value.String())
		}
	}
	return execErr
}

// executeStatements runs stmts in order and stops at the first failure.
func executeStatements(cmdCtx *CommandContext, stmts []string) ([]statementResult, error) {
	results := make([]statementResult, 0, len(stmts))
	for i, stmt := range stmts {
		stmt = strings.TrimSpace(stmt)
		v, err := cmdCtx.Engine.Exec(stmt)
		if err != nil {
			cmdCtx.Logger.Debug("statement failed", "index", i+1, "statement", stmt, "error", err)
			return results, fmt.Errorf("statement %d (%s): %w", i+1, stmt, err)
		}
		results = append(results, statementResult{Statement: stmt, Kind: v.Kind().String(), Value: v})
	}
	return results, nil
}
