// Package version prints build metadata.
package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plantcare-go/plantcare/internal/buildinfo"
)

// Command creates the version command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := buildinfo.Current()
			fmt.Fprintf(cmd.OutOrStdout(), "plantcare %s (commit %s, built %s, %s)\n",
				info.GetVersion(), info.GetCommit(), info.GetBuildDate(), info.GoVersion)
		},
	}
}
