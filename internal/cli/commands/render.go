package commands

import (
	"bufio"
	"slices"
	"strings"

	"github.com/leapstack-labs/configx/internal/cli/output"
	"github.com/leapstack-labs/configx/pkg/value"
)

// statementResult is the JSON form of one executed statement. Value uses
// the tagged encoding so ints, floats and nulls stay distinguishable.
type statementResult struct {
	Statement string      `json:"statement"`
	Kind      string      `json:"kind"`
	Value     value.Value `json:"value"`
}

// entryResult is the JSON form of one stored entry.
type entryResult struct {
	Key   string      `json:"key"`
	Kind  string      `json:"kind"`
	Value value.Value `json:"value"`
}

// sortedEntries returns entries ordered by key.
func sortedEntries(entries map[string]value.Value) []entryResult {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]entryResult, 0, len(keys))
	for _, k := range keys {
		v := entries[k]
		out = append(out, entryResult{Key: k, Kind: v.Kind().String(), Value: v})
	}
	return out
}

func renderEntries(r *output.Renderer, entries []entryResult) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(entries)
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Key, e.Kind, e.Value.String()})
	}
	r.Table([]string{"KEY", "KIND", "VALUE"}, rows)
	return nil
}

// splitStatements returns the non-blank lines of text that are not
// comments. Each line is one statement.
func splitStatements(text string) []string {
	var stmts []string
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		stmts = append(stmts, line)
	}
	return stmts
}
