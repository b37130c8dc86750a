// Package importgrowth imports historical growth logs from CSV.
package importgrowth

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/plantcare-go/plantcare/internal/conf"
	"github.com/plantcare-go/plantcare/internal/datastore"
)

// Command creates the import-growth command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "import-growth [file.csv]",
		Short: "Import growth logs from CSV",
		Long:  "Import growth logs for existing plants. Rows with bad values or unknown plants are skipped and counted.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("error opening %s: %w", args[0], err)
			}
			defer f.Close()

			store, err := datastore.Open(cmd.Context(), &settings.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			result, err := datastore.ImportGrowthLogs(cmd.Context(), store.Repos, f)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d growth logs, skipped %d rows\n", result.Imported, result.Skipped)
			return nil
		},
	}
}
