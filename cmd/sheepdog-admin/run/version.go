package run

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carina-io/sheepdog"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and git commit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "sheepdog-admin %s (%s)\n", sheepdog.Version, config.gitCommit)
		return nil
	},
}
