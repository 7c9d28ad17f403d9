package main

import (
	"context"
	"fmt"

	"github.com/harunnryd/foodiebot/internal/formatter"

	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the restaurant database",
}

var dbSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the sample restaurants",
	Long:  `Insert the bundled sample restaurants and menus. Without --force an already seeded database is left alone; with it, samples missing from the database are added.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		ctx := context.Background()
		rt, err := openDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		n, err := rt.db.Seed(ctx, force)
		if err != nil {
			return fmt.Errorf("failed to seed database: %w", err)
		}

		out := cmd.OutOrStdout()
		if n == 0 && force {
			fmt.Fprintf(out, "Database %s has every sample restaurant already.\n", rt.db.Path())
			return nil
		}
		if n == 0 {
			fmt.Fprintf(out, "Database %s already has restaurants; use --force to add missing samples.\n", rt.db.Path())
			return nil
		}
		fmt.Fprintf(out, "✓ Seeded %d restaurants into %s\n", n, rt.db.Path())
		return nil
	},
}

var dbRestaurantsCmd = &cobra.Command{
	Use:   "restaurants",
	Short: "List restaurants",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}

		ctx := context.Background()
		rt, err := openDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		restaurants, err := rt.db.ListRestaurants(ctx)
		if err != nil {
			return fmt.Errorf("failed to list restaurants: %w", err)
		}

		f, err := formatter.NewFormatterFactory().Create(format)
		if err != nil {
			return err
		}
		rendered, err := f.FormatRestaurants(restaurants)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), rendered)
		return nil
	},
}

func init() {
	dbSeedCmd.Flags().Bool("force", false, "add sample restaurants missing from a non-empty database")
	dbRestaurantsCmd.Flags().StringP("output", "o", "table", "output format (table, json, yaml)")
	dbCmd.AddCommand(dbSeedCmd)
	dbCmd.AddCommand(dbRestaurantsCmd)
	rootCmd.AddCommand(dbCmd)
}
