package cmd

import (
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "wander",
	Short: "collaborative trip planning backend",
	Long:  `wander is the backend for collaborative trip planning: nested trips, shared destinations and collaborator roles.`,
}

func init() {
	RootCmd.AddCommand(serverCommand())
	RootCmd.AddCommand(migrateCommand())
	RootCmd.AddCommand(sweepCommand())
}
