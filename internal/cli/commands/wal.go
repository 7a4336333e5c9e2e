package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/configx/internal/cli/output"
	"github.com/leapstack-labs/configx/pkg/storage"
	"github.com/leapstack-labs/configx/pkg/value"
)

// walRecord is the JSON form of one WAL record.
type walRecord struct {
	Seq    uint64       `json:"seq"`
	Op     storage.Op   `json:"op"`
	Key    string       `json:"key"`
	Value  *value.Value `json:"value,omitempty"`
	Offset int64        `json:"offset"`
}

// walReport is the JSON form of the wal command's output.
type walReport struct {
	Path      string      `json:"path"`
	Records   []walRecord `json:"records"`
	ValidSize int64       `json:"valid_size"`
	FileSize  int64       `json:"file_size"`
	Tail      string      `json:"tail,omitempty"`
}

// NewWALCommand creates the wal command.
func NewWALCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "wal",
		Short: "Inspect the write-ahead log",
		Long: `List the records in the write-ahead log without opening the store.

Reading stops at the first incomplete, corrupt or out-of-sequence frame;
the reason is reported as the tail. The file is not modified.`,
		Args: cobra.NoArgs,
		RunE: runWAL,
	}
}

func runWAL(cmd *cobra.Command, _ []string) error {
	cmdCtx, err := NewCommandContextWithoutEngine(cmd)
	if err != nil {
		return err
	}

	path := cmdCtx.Cfg.WALPath
	scan, err := storage.ReadWAL(path)
	if err != nil {
		return err
	}

	report := walReport{
		Path:      path,
		Records:   make([]walRecord, 0, len(scan.Records)),
		ValidSize: scan.ValidSize,
		FileSize:  scan.FileSize,
	}
	if scan.TailErr != nil {
		report.Tail = scan.TailErr.Error()
	}
	for _, rec := range scan.Records {
		report.Records = append(report.Records, walRecord{
			Seq:    rec.Seq,
			Op:     rec.Op,
			Key:    rec.Key,
			Value:  rec.Value,
			Offset: rec.Offset,
		})
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(report)
	}

	rows := make([][]string, 0, len(report.Records))
	for _, rec := range report.Records {
		val := ""
		if rec.Value != nil {
			val = rec.Value.String()
		}
		rows = append(rows, []string{
			strconv.FormatUint(rec.Seq, 10),
			string(rec.Op),
			rec.Key,
			val,
			strconv.FormatInt(rec.Offset, 10),
		})
	}
	r.Table([]string{"SEQ", "OP", "KEY", "VALUE", "OFFSET"}, rows)

	if scan.Torn() {
		r.Warning(fmt.Sprintf("torn tail: %d of %d bytes valid (%s)", scan.ValidSize, scan.FileSize, report.Tail))
	}
	return nil
}
