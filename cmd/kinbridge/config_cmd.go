package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"kinbridge/internal/auth"
	"kinbridge/internal/config"
)

const maskedValue = "********"

func newConfigCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Get or set configuration",
	}

	cmd.AddCommand(newConfigGetCmd(cfg))
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigHashTokenCmd())
	return cmd
}

func newConfigGetCmd(cfg *config.Config) *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Get a config value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if !config.IsAllowedKey(key) {
				return fmt.Errorf("unknown key: %s (allowed: %v)", key, config.AllowedKeys())
			}
			value, err := cfg.Get(key)
			if err != nil {
				return err
			}
			return writePlain("%s\n", displayValue(key, value, reveal))
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "print secret values unmasked")
	return cmd
}

func displayValue(key, value string, reveal bool) string {
	if reveal || value == "" || !config.IsSecretKey(key) {
		return value
	}
	return maskedValue
}

func newConfigSetCmd() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			var path string
			var err error
			if global {
				path, err = config.GlobalPath()
			} else {
				path, err = config.ProjectPath()
			}
			if err != nil {
				return err
			}

			return config.SetKey(path, key, value)
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "write to global config (~/.kinbridge.toml)")
	return cmd
}

func newConfigHashTokenCmd() *cobra.Command {
	var generate bool

	cmd := &cobra.Command{
		Use:   "hash-token [token]",
		Short: "Print the api_token_hash for a bearer token",
		Long: "Print the bcrypt hash to store as api_token_hash. The token is read from the " +
			"argument, from stdin, or generated with --generate.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := tokenInput(cmd.InOrStdin(), args, generate)
			if err != nil {
				return err
			}
			hash, err := auth.HashToken(token)
			if err != nil {
				return err
			}
			if generate {
				if err := writePlain("token: %s\n", token); err != nil {
					return err
				}
				return writePlain("api_token_hash: %s\n", hash)
			}
			return writePlain("%s\n", hash)
		},
	}

	cmd.Flags().BoolVar(&generate, "generate", false, "generate a random token and print it with its hash")
	return cmd
}

func tokenInput(stdin io.Reader, args []string, generate bool) (string, error) {
	switch {
	case generate && len(args) > 0:
		return "", fmt.Errorf("--generate cannot be combined with a token argument")
	case generate:
		return auth.GenerateToken()
	case len(args) == 1:
		return args[0], nil
	}

	raw, err := io.ReadAll(io.LimitReader(stdin, 1024))
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	token := strings.TrimRight(string(raw), "\r\n")
	if token == "" {
		return "", fmt.Errorf("token is required")
	}
	return token, nil
}
