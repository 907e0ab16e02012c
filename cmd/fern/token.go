package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fernledger/fern/internal/auth"
	"github.com/fernledger/fern/internal/config"
)

var (
	tokenUserID string
	tokenTTL    time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for a user",
	Long:  "Issue a signed bearer token for the given user ID, for development and device provisioning.",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUserID, "user", "", "User ID to issue the token for (required)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (defaults to the configured TTL)")
}

func runToken(cmd *cobra.Command, args []string) error {
	if tokenUserID == "" {
		return errors.New("--user is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("FERN_JWT_SECRET must be set to mint tokens")
	}

	ttl := time.Duration(cfg.Auth.TokenTTL)
	if tokenTTL > 0 {
		ttl = tokenTTL
	}

	token, err := auth.New(cfg.Auth.JWTSecret, ttl).Issue(tokenUserID)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
