package cmd

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"wander/config"
	"wander/web"
)

func serverCommand() *cobra.Command {
	cfg := config.Load()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long:  `This command starts the web server, the trip service and the background reaper.`,
		Run: func(cmd *cobra.Command, args []string) {
			cfg.Dev, _ = cmd.Flags().GetBool("dev")
			cfg.Port, _ = cmd.Flags().GetString("port")
			cfg.MQMode, _ = cmd.Flags().GetString("mq")
			cfg.Store, _ = cmd.Flags().GetString("store")

			if !cfg.Dev {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			service, sweeper, err := bootstrap(ctx, cfg)
			if err != nil {
				log.Fatalf("Failed to bootstrap: %v", err)
			}

			go sweeper.Run(ctx)

			if err := web.Serve(cfg.Port, service); err != nil {
				log.Fatalf("Web server stopped: %v", err)
			}
		},
	}

	cmd.Flags().Bool("dev", cfg.Dev, "Run in development mode")
	cmd.Flags().String("port", cfg.Port, "Port to run the web server on")
	cmd.Flags().String("mq", cfg.MQMode, "Message queue mode (go_chan, rabbitmq, gcp_pub_sub)")
	cmd.Flags().String("store", cfg.Store, "Store backend (pg, mem)")

	return cmd
}
