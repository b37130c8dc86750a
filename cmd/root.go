package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/plantcare-go/plantcare/cmd/configcmd"
	"github.com/plantcare-go/plantcare/cmd/importgrowth"
	"github.com/plantcare-go/plantcare/cmd/seed"
	"github.com/plantcare-go/plantcare/cmd/serve"
	"github.com/plantcare-go/plantcare/cmd/version"
	"github.com/plantcare-go/plantcare/internal/conf"
	"github.com/plantcare-go/plantcare/internal/logger"
)

// RootCommand creates and returns the root command. settings is filled in
// before any subcommand runs.
func RootCommand(settings *conf.Settings) *cobra.Command {
	var (
		envFile   string
		debug     bool
		logCloser *logger.CentralLogger
	)

	rootCmd := &cobra.Command{
		Use:           "plantcare",
		Short:         "PlantCare growth and disease prediction service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if err := setupFlags(rootCmd, &envFile, &debug); err != nil {
		panic(err)
	}

	versionCmd := version.Command()
	rootCmd.AddCommand(
		serve.Command(settings),
		seed.Command(settings),
		importgrowth.Command(settings),
		configcmd.Command(settings),
		versionCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// version needs no configuration
		if cmd.Name() == versionCmd.Name() {
			return nil
		}

		if err := conf.LoadDotEnv(envFile); err != nil {
			return err
		}

		loaded, err := conf.Load()
		if err != nil {
			return err
		}
		*settings = *loaded
		if debug {
			settings.Debug = true
			settings.Logging.DefaultLevel = "debug"
		}

		cl, err := logger.NewCentralLogger(&settings.Logging)
		if err != nil {
			return fmt.Errorf("error initializing logger: %w", err)
		}
		logger.SetGlobal(cl)
		logCloser = cl
		return nil
	}

	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if logCloser == nil {
			return nil
		}
		return logCloser.Close()
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface.
func setupFlags(rootCmd *cobra.Command, envFile *string, debug *bool) error {
	rootCmd.PersistentFlags().StringVarP(&conf.ConfigFile, "config", "c", "", "Path to config.yaml (default: search ., ~/.config/plantcare, /etc/plantcare)")
	rootCmd.PersistentFlags().StringVar(envFile, "env-file", ".env", "Path to a .env file loaded before the configuration")
	rootCmd.PersistentFlags().BoolVarP(debug, "debug", "d", false, "Enable debug output")

	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
