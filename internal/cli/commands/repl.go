package commands

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

const replPrompt = "configx> "

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive ConfigXQL session",
		Long: `Start an interactive session against the store.

Each line is one ConfigXQL statement. Lines starting with a dot are REPL
commands; type .help for the list. Tab completes stored keys.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd)
		},
	}
}

func runREPL(cmd *cobra.Command) (err error) {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := cleanup(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	// Setup history file (next to the snapshot unless configured)
	historyFile := cmdCtx.Cfg.HistoryFile
	if historyFile == "" {
		historyFile = filepath.Join(filepath.Dir(cmdCtx.Cfg.SnapshotPath), "history")
	}

	session := &replSession{ctx: cmdCtx}
	styles := cmdCtx.Renderer.Styles()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          styles.Prompt.Render(replPrompt),
		HistoryFile:     historyFile,
		AutoComplete:    session.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := cmdCtx.Renderer.Out()
	_, _ = fmt.Fprintf(out, "configx REPL (snapshot: %s)\n", cmdCtx.Cfg.SnapshotPath)
	_, _ = fmt.Fprintln(out, styles.Muted.Render("Type .help for commands, .quit to exit"))
	_, _ = fmt.Fprintln(out)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		if quit := session.handleLine(line); quit {
			break
		}
	}
	return nil
}

// replSession executes REPL input against an open engine.
type replSession struct {
	ctx *CommandContext
}

// handleLine runs one line of input and reports whether the session should
// end.
func (s *replSession) handleLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, ".") {
		return s.handleDotCommand(line)
	}

	r := s.ctx.Renderer
	v, err := s.ctx.Engine.Exec(line)
	if err != nil {
		r.Error(err)
		return false
	}
	r.Println(v.String() + " " + r.Styles().Kind.Render("("+v.Kind().String()+")"))
	return false
}

func (s *replSession) handleDotCommand(line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	r := s.ctx.Renderer
	eng := s.ctx.Engine

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(r.Out())

	case ".keys":
		prefix := ""
		if len(parts) > 1 {
			prefix = parts[1]
		}
		for _, k := range eng.Tree().Keys() {
			if strings.HasPrefix(k, prefix) {
				r.Println(r.Styles().Key.Render(k))
			}
		}

	case ".dump":
		entries := sortedEntries(eng.Tree().Snapshot())
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{e.Key, e.Kind, e.Value.String()})
		}
		r.Table([]string{"KEY", "KIND", "VALUE"}, rows)

	case ".stats":
		st := eng.Runtime().Stats()
		r.Println(fmt.Sprintf("state=%s entries=%d last_seq=%d snapshot_seq=%d wal_records=%d",
			st.State, eng.Tree().Len(), st.LastSeq, st.SnapshotSeq, st.PendingRecords))

	case ".checkpoint":
		if err := eng.Checkpoint(); err != nil {
			r.Error(err)
			break
		}
		r.Success("checkpoint complete")

	case ".clear":
		_, _ = fmt.Fprint(r.Out(), "\033[H\033[2J")

	default:
		r.Error(fmt.Errorf("unknown command: %s (type .help for commands)", command))
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help             Show this help message
  .keys [prefix]    List stored keys
  .dump             Show all entries
  .stats            Show storage counters
  .checkpoint       Write a snapshot and empty the WAL
  .clear            Clear the screen
  .quit / .exit     Exit the REPL

Statements:
  key = literal     Assign (null, true, false, 42, 3.14, "text", [1,[2]])
  key               Read, failing if absent
  key!              Read, null if absent
  delete key        Remove a key
`
	_, _ = fmt.Fprintln(w, help)
}

// completer completes dot-commands and, for statements, the keys currently
// stored in the tree.
func (s *replSession) completer() *readline.PrefixCompleter {
	keys := func(string) []string {
		return s.ctx.Engine.Tree().Keys()
	}
	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".keys", readline.PcItemDynamic(keys)),
		readline.PcItem(".dump"),
		readline.PcItem(".stats"),
		readline.PcItem(".checkpoint"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
		readline.PcItem("delete", readline.PcItemDynamic(keys)),
		readline.PcItemDynamic(keys),
	)
}
