package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"wander/config"
)

func sweepCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "purge expired soft-deletes once and exit",
		Long:  `This command runs one reaper sweep over every soft-deletable table, without starting the web server.`,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.Load()
			cfg.Store, _ = cmd.Flags().GetString("store")

			ctx := context.Background()
			_, sweeper, err := bootstrap(ctx, cfg)
			if err != nil {
				log.Fatalf("Failed to bootstrap: %v", err)
			}

			purged := sweeper.SweepOnce(ctx)
			log.Printf("Sweep finished, purged %d rows.", purged)
		},
	}

	cmd.Flags().String("store", "pg", "Store backend (pg, mem)")

	return cmd
}
