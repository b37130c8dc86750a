// Package seed loads disease types into an empty database.
package seed

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plantcare-go/plantcare/internal/conf"
	"github.com/plantcare-go/plantcare/internal/datastore"
)

// Command creates the seed command.
func Command(settings *conf.Settings) *cobra.Command {
	var csvPath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed disease types from CSV",
		Long:  "Insert the disease types listed in a CSV with a \"name\" column. Tables that already hold rows are left untouched.",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := csvPath
			if path == "" {
				path = settings.Seed.DiseaseTypesCSV
			}

			store, err := datastore.Open(cmd.Context(), &settings.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			inserted, err := datastore.SeedDiseaseTypes(cmd.Context(), store.Repos.DiseaseTypes, path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Inserted %d disease types from %s\n", inserted, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "Disease types CSV (default: seed.diseasetypescsv)")
	return cmd
}
