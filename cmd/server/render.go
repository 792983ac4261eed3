package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/rpattn/catalog-export/internal/domain"
	"github.com/rpattn/catalog-export/internal/export"
)

var (
	renderHash     string
	renderProfile  string
	renderCurrency string
	renderOut      string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render an export profile to a file",
	Long: "Runs a stored profile (--hash) or an unsaved YAML profile (--profile) and writes the file to --out. " +
		"Rendering never updates the profile's last download time.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if (renderHash == "") == (renderProfile == "") {
			return eris.New("render: pass exactly one of --hash or --profile")
		}
		ctx := cmd.Context()

		a, err := openApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()

		var profile domain.ExportProfile
		if renderHash != "" {
			profile, err = a.service.ActiveProfile(ctx, renderHash)
		} else {
			profile, err = export.LoadProfileFile(renderProfile)
		}
		if err != nil {
			return err
		}

		download, err := a.service.OpenProfile(ctx, profile, renderCurrency)
		if err != nil {
			return err
		}
		path, stats, err := export.SaveToFile(ctx, download, renderOut)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows\n", path, stats.Emitted)
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderHash, "hash", "", "download hash of a stored profile")
	renderCmd.Flags().StringVar(&renderProfile, "profile", "", "YAML profile file")
	renderCmd.Flags().StringVar(&renderCurrency, "currency", "", "currency code overriding the profile currency")
	renderCmd.Flags().StringVar(&renderOut, "out", "", "output file or directory (default: profile file name in the working directory)")
	rootCmd.AddCommand(renderCmd)
}
