package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pageforge/pageforge/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the page composition server",
	Long: `Start the HTTP host serving composed pages.

Endpoints:
  GET /pages/{slug}        Composed page as JSON
  GET /pages/{slug}/html   Composed page rendered to HTML
  GET /pages               Available page slugs
  GET /ws                  Live-reload websocket

Examples:
  pageforge serve
  pageforge serve --port 3000 --pages ./content/pages`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().String("pages", "./pages", "Directory holding page documents")
	serveCmd.Flags().Bool("no-watch", false, "Disable page watching and live reload")

	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("pages.dir", serveCmd.Flags().Lookup("pages"))
}

func runServe(cmd *cobra.Command, args []string) error {
	if noWatch, _ := cmd.Flags().GetBool("no-watch"); noWatch {
		viper.Set("pages.watch", false)
	}

	container, err := buildContainer()
	if err != nil {
		return err
	}
	defer container.Dispose()

	cfg, logger, pages, reg := resolveDeps(container)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, logger, pages, reg)
	return srv.Start(ctx)
}
