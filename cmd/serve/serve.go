// Package serve runs the plant-care HTTP API.
package serve

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/plantcare-go/plantcare/internal/api"
	"github.com/plantcare-go/plantcare/internal/conf"
	"github.com/plantcare-go/plantcare/internal/datastore"
	"github.com/plantcare-go/plantcare/internal/disease"
	"github.com/plantcare-go/plantcare/internal/httpserver"
	"github.com/plantcare-go/plantcare/internal/inference"
	"github.com/plantcare-go/plantcare/internal/logger"
	"github.com/plantcare-go/plantcare/internal/observability"
	"github.com/plantcare-go/plantcare/internal/telemetry"
	"github.com/plantcare-go/plantcare/internal/uploads"
)

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  "Open the database, seed disease types, load the models and serve the v2 API until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context(), settings)
		},
	}

	if err := setupFlags(cmd); err != nil {
		panic(err)
	}
	return cmd
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("host", "", "Listen address, empty for all interfaces")
	cmd.Flags().String("port", "8080", "Listen port")
	cmd.Flags().String("upload-folder", "uploads", "Directory for disease check images")
	cmd.Flags().Int("threads", 0, "Inference threads, 0 for all cores")

	bindings := map[string]string{
		"webserver.host": "host",
		"webserver.port": "port",
		"uploads.dir":    "upload-folder",
		"models.threads": "threads",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}

// Run wires every component and blocks until the server stops.
func Run(ctx context.Context, settings *conf.Settings) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.Global().Module("main")

	if err := telemetry.InitSentry(settings); err != nil {
		log.Warn("telemetry disabled", logger.Error(err))
	}
	defer telemetry.Flush(telemetry.DefaultFlushTimeout)

	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	store, err := datastore.Open(ctx, &settings.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("error closing database", logger.Error(err))
		}
	}()

	if settings.Seed.DiseaseTypesCSV != "" {
		inserted, err := datastore.SeedDiseaseTypes(ctx, store.Repos.DiseaseTypes, settings.Seed.DiseaseTypesCSV)
		if err != nil {
			return err
		}
		metrics.Datastore.RecordImport("disease_types", inserted, 0)
	}

	models := inference.Load(&settings.Models, metrics.Inference)
	defer func() {
		if err := models.Close(); err != nil {
			log.Error("error releasing models", logger.Error(err))
		}
	}()

	files, err := uploads.New(settings.Uploads.Dir)
	if err != nil {
		return err
	}
	defer func() { _ = files.Close() }()

	policy := disease.NewPolicy(store.Repos.DiseaseTypes, settings.Cache.DiseaseTypesTTL)

	var server httpserver.Server
	server, err = api.New(settings,
		api.WithDataStore(store),
		api.WithModels(models),
		api.WithPolicy(policy),
		api.WithUploads(files),
		api.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}

	log.Info("starting PlantCare",
		logger.String("address", settings.WebServer.Address()),
		logger.String("database", settings.Database.Type))
	return server.StartWithGracefulShutdown()
}
