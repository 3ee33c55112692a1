package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/auth"
	"fintrack/internal/config"
	"fintrack/internal/core"
)

type tokenFlags struct {
	Owner string
	New   bool
}

func newTokenCmd() *cobra.Command {
	flags := &tokenFlags{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for an owner",
		Long: `Issue a bearer token signed with JWT_SECRET.
Pass --owner with an existing owner id, or --new to generate one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := flags.owner()
			if err != nil {
				return err
			}
			cfg := config.Load()
			tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
			if err != nil {
				return err
			}
			token, err := tokens.Issue(owner)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			if flags.New {
				fmt.Fprintln(cmd.ErrOrStderr(), "owner:", owner)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.Owner, "owner", "", "Owner id (UUID)")
	cmd.Flags().BoolVar(&flags.New, "new", false, "Generate a fresh owner id")
	return cmd
}

func (f *tokenFlags) owner() (core.OwnerID, error) {
	switch {
	case f.New && f.Owner != "":
		return "", errors.New("--owner and --new are mutually exclusive")
	case f.New:
		return core.NewOwnerID(), nil
	case f.Owner == "":
		return "", errors.New("--owner is required")
	default:
		return core.ParseOwnerID(f.Owner)
	}
}
