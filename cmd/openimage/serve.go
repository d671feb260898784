package main

import (
	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go-openimage"
	"github.com/anatolykoptev/go-openimage/internal/app"
	"github.com/anatolykoptev/go-openimage/internal/server"
)

func (c *cli) serveCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON search API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen == "" {
				listen = c.settings.Server.Listen
			}
			return c.withApp(func(a *app.App) error {
				srv := server.New(a.Finder,
					server.WithVersion(version),
					server.WithMetrics(a.Metrics.Handler()),
					server.WithStatusHook(func(st openimage.Status) {
						if st.Cache != nil {
							a.Metrics.ObserveCache(*st.Cache)
						}
					}),
				)
				return srv.Run(cmd.Context(), listen)
			})
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Listen address (default from server.listen)")
	return cmd
}
