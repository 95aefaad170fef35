package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newPackagesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "packages",
		Short: "Inspect and seed token packages",
	}
	cmd.AddCommand(
		newPackagesListCmd(opts),
		newPackagesSeedCmd(opts),
	)
	return cmd
}

func newPackagesListCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List token packages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := parseOutputFormat(output)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.shutdown()

			pkgs, err := a.services.Packages.List(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(pkgs))
			for _, p := range pkgs {
				rows = append(rows, []string{p.ID, p.Name, strconv.Itoa(p.Tokens), strconv.Itoa(p.Price), strconv.FormatBool(p.IsPopular)})
			}
			return printOutput(cmd.OutOrStdout(), format, pkgs, []string{"id", "name", "tokens", "price", "popular"}, rows)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, json or yaml")
	return cmd
}

func newPackagesSeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Upsert the built-in package catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.shutdown()

			if err := a.services.Packages.Seed(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "package catalog seeded")
			return nil
		},
	}
}
