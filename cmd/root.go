package cmd

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

//go:embed version.json
var versionFile []byte

type VersionInfo struct {
	Version string `json:"version"`
}

func getVersion() string {
	var versionInfo VersionInfo
	if err := json.Unmarshal(versionFile, &versionInfo); err != nil {
		return "unknown"
	}
	return versionInfo.Version
}

var rootCmd = &cobra.Command{
	Use:     "migrate",
	Short:   "Plan and run workspace migrations",
	Long:    `migrate computes and replays the code-modifying migrations needed to move a workspace from its currently installed package versions to a target version.`,
	Version: getVersion(),
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
