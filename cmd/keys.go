package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"oneclick/internal/services"
)

func newKeysCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage generator provider API keys",
	}
	cmd.AddCommand(
		newKeysSetCmd(opts),
		newKeysListCmd(opts),
		newKeysDeleteCmd(opts),
	)
	return cmd
}

func openKeys(opts *rootOptions) (*services.KeyringService, error) {
	ring, err := services.OpenKeyring(services.KeyringConfig{
		Backend:  opts.cfg.Keyring.Backend,
		Dir:      opts.cfg.Keyring.Dir,
		Password: opts.cfg.Keyring.Password,
	})
	if err != nil {
		return nil, err
	}
	return services.NewKeyringService(ring), nil
}

func newKeysSetCmd(opts *rootOptions) *cobra.Command {
	var value string
	cmd := &cobra.Command{
		Use:   "set <provider>",
		Short: "Store the API key for a provider (read from stdin unless --value is given)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if value == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no API key on stdin")
				}
				value = line
			}
			value = strings.TrimSpace(value)
			keys, err := openKeys(opts)
			if err != nil {
				return err
			}
			if err := keys.StoreApiKey(args[0], []byte(value)); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "stored API key for %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&value, "value", "", "API key value")
	return cmd
}

func newKeysListCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List providers with a stored key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := parseOutputFormat(output)
			if err != nil {
				return err
			}
			keys, err := openKeys(opts)
			if err != nil {
				return err
			}
			entries, err := keys.ListApiKeys()
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{e["provider"], e["label"]})
			}
			return printOutput(cmd.OutOrStdout(), format, entries, []string{"provider", "label"}, rows)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, json or yaml")
	return cmd
}

func newKeysDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <provider>",
		Short: "Remove the stored key for a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := openKeys(opts)
			if err != nil {
				return err
			}
			if err := keys.DeleteApiKey(args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted API key for %s\n", args[0])
			return nil
		},
	}
}
