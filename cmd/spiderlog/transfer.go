package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/spiderlog/internal/collection"
)

func exportCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write the whole collection as JSON (stdout when no file)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			data, err := app.Store.Export(cmd.Context())
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if len(args) == 1 {
				f, err := os.Create(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if err := enc.Encode(data); err != nil {
				return fmt.Errorf("writing export: %w", err)
			}
			if len(args) == 1 {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d spiders and %d species to %s.\n",
					len(data.Spiders), len(data.Species), args[0])
			}
			return nil
		},
	}
}

func importCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Merge a JSON export into the collection",
		Long: `Merge a JSON export into the collection. Spiders whose id already
exists are skipped; species are matched by name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var data collection.ExportData
			if err := json.Unmarshal(raw, &data); err != nil {
				return fmt.Errorf("parsing %s: %w", args[0], err)
			}

			app, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := app.Store.Import(cmd.Context(), &data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"Imported %d spiders (%d skipped), %d species, %d feedings, %d molts, %d documents.\n",
				res.SpidersImported, res.SpidersSkipped, res.SpeciesImported,
				res.FeedingsImported, res.MoltsImported, res.DocumentsImported)
			return nil
		},
	}
}
