package main

import (
	"log/slog"

	"github.com/chainid-fr/fcrelay/pkg/relay"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
)

var (
	serveAddr       string
	serveConfigFile string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the relay HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		resolve := relay.ConfigResolver(relay.EnvConfig)
		if serveConfigFile != "" {
			var err error
			resolve, err = relay.LoadConfigFile(serveConfigFile)
			if err != nil {
				return err
			}
		}

		server, err := relay.NewServer(relay.WithConfig(resolve))
		if err != nil {
			return err
		}

		e := echo.New()
		e.HideBanner = true

		api := e.Group("/api")
		server.MountRoutes(api.Group("/auth"))
		server.MountIdentityRoutes(api.Group("/identity"))

		addr := serveAddr
		if addr == "" {
			addr = resolve().ListenAddr
		}

		slog.Info("starting relay", "addr", addr, "issuer", resolve().Provider.Issuer)
		return e.Start(addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (defaults to LISTEN_ADDR)")
	serveCmd.Flags().StringVar(&serveConfigFile, "config", "", "path to a yaml config file")
	rootCmd.AddCommand(serveCmd)
}
