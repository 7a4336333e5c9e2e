package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/configx/internal/cli/config"
	"github.com/leapstack-labs/configx/internal/cli/output"
)

// BuildInfo identifies a configx build.
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(version, gitCommit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display the configx version, the commit and date it was built from,
and the Go toolchain and platform of the binary.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := BuildInfo{
				Version:   version,
				GitCommit: gitCommit,
				BuildDate: buildDate,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			}

			// Runs without a loaded config when invoked on its own.
			mode := output.ModeText
			if cfg := config.GetConfig(cmd.Context()); cfg != nil && cfg.OutputFormat == string(output.ModeJSON) {
				mode = output.ModeJSON
			}
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)
			if mode == output.ModeJSON {
				return r.JSON(info)
			}

			r.Println(fmt.Sprintf("configx v%s", info.Version))
			r.Println(fmt.Sprintf("  commit:   %s", info.GitCommit))
			r.Println(fmt.Sprintf("  built:    %s", info.BuildDate))
			r.Println(fmt.Sprintf("  go:       %s %s", info.GoVersion, info.Platform))
			return nil
		},
	}
}
