package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobfeed/internal/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Mint a client access token",
	Long:  "Signs a token for subject with auth.jwt_secret. Clients send it as \"Authorization: Bearer <token>\" or ?token=<token>.",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	cfg := mustLoadConfig(logger)

	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is not set; authentication is disabled")
	}
	token, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL).Issue(args[0])
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
