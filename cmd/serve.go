package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-scorer/internal/logger"
	"github.com/spigell/resume-scorer/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis over HTTP",
	RunE: func(_ *cobra.Command, _ []string) error {
		return serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "address to listen on (default is :5000)")

	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func serve() error {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		return fmt.Errorf("getting a config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting the resume-scorer server", zap.String("version", version))

	analyzer, err := newAnalyzer(ctx, config, logger)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Listen:       config.Server.Listen,
		BodyLimit:    config.Server.BodyLimit,
		AllowOrigins: config.Server.AllowOrigins,
		UploadDir:    config.Server.UploadDir,
	}, analyzer, logger)
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}
