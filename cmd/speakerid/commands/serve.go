package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kbukum/speakerid/api"
	"github.com/kbukum/speakerid/app"
	"github.com/kbukum/speakerid/logger"
	"github.com/kbukum/speakerid/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API until SIGINT or SIGTERM.

Routes are served under /api/v1 next to /health, /ready and /info.

Examples:
  speakerid serve
  speakerid serve --config /etc/speakerid/config.yml
  SPEAKERID_SERVER_PORT=9090 speakerid serve`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := app.New(cfg)
		if err != nil {
			return err
		}

		srv := server.New(cfg.Server, a.Logger)
		a.Domain.OnStarted(func(d *app.Domain) error {
			srv.ApplyMiddleware(d.Counters)
			srv.RegisterDefaultEndpoints(cfg.Name, a.Components.HealthAll)
			api.NewHandler(d.Service, d.Resolver, d.Suggester).Register(srv.GinEngine())
			return nil
		})
		if err := a.RegisterComponent(server.NewComponent(srv)); err != nil {
			return err
		}
		a.OnReady(func(context.Context) error {
			a.Logger.Info("Speaker API ready", logger.Fields(
				"addr", srv.Addr(),
				"routes", len(srv.GinEngine().Routes()),
			))
			return nil
		})
		return a.Run(cmd.Context())
	},
}
