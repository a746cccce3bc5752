package cmd

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/pocketdash/internal/model"
	"github.com/derickschaefer/pocketdash/internal/render"
)

// Version is the release string. Release builds overwrite it via:
//
//	go build -ldflags "-X github.com/derickschaefer/pocketdash/cmd.Version=v0.3.0"
var Version = "v0.3.0-dev"

// BuildTime is optionally injected alongside Version:
//
//	-ldflags "-X github.com/derickschaefer/pocketdash/cmd.BuildTime=2026-03-10T12:00:00Z"
var BuildTime = ""

// versionInfo is the structured payload for --format json/yaml.
type versionInfo struct {
	Version   string `json:"version" yaml:"version"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	GOOS      string `json:"goos" yaml:"goos"`
	GOARCH    string `json:"goarch" yaml:"goarch"`
	BuildTime string `json:"build_time,omitempty" yaml:"build_time,omitempty"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the pocketdash version and build information",
	Long: `Print the version string and build metadata.

Default output is plain text, one value per line. Use --format json or
--format yaml for structured output.`,
	Example: `  pocketdash version
  pocketdash version --format json | jq .data.version`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := versionInfo{
			Version:   Version,
			GoVersion: runtime.Version(),
			GOOS:      runtime.GOOS,
			GOARCH:    runtime.GOARCH,
			BuildTime: BuildTime,
		}

		out := cmd.OutOrStdout()
		switch globalFlags.Format {
		case render.FormatJSON, render.FormatYAML:
			return render.Render(out, &model.Result{
				Kind:        model.KindTable,
				GeneratedAt: time.Now(),
				Command:     "version",
				Data:        info,
			}, globalFlags.Format)
		default:
			fmt.Fprintf(out, "pocketdash %s\n", info.Version)
			fmt.Fprintf(out, "go         %s\n", info.GoVersion)
			fmt.Fprintf(out, "os         %s/%s\n", info.GOOS, info.GOARCH)
			if info.BuildTime != "" {
				fmt.Fprintf(out, "built      %s\n", info.BuildTime)
			}
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
