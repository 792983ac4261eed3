package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rpattn/catalog-export/internal/export"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage stored export profiles",
}

var profileImportHash string

var profileImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Validate a YAML profile and store it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		profile, err := export.LoadProfileFile(args[0])
		if err != nil {
			return err
		}
		profile.Hash = profileImportHash

		a, err := openApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()

		// Preparing a run validates filters, fields, format and currency.
		if _, err := a.service.OpenProfile(ctx, profile, ""); err != nil {
			return err
		}
		stored, err := a.profiles.Create(ctx, profile)
		if err != nil {
			return eris.Wrap(err, "profile import")
		}
		zap.L().Info("export profile stored", zap.Int64("profile_id", stored.ID), zap.String("hash", stored.Hash))
		fmt.Fprintf(cmd.OutOrStdout(), "/export/%s\n", stored.Hash)
		return nil
	},
}

func init() {
	profileImportCmd.Flags().StringVar(&profileImportHash, "hash", "", "download hash to use (default: generated)")
	profileCmd.AddCommand(profileImportCmd)
	rootCmd.AddCommand(profileCmd)
}
