package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/tournament-auth/internal/clock"
	"github.com/FACorreiaa/tournament-auth/internal/password"
	"github.com/FACorreiaa/tournament-auth/internal/token"
	"github.com/FACorreiaa/tournament-auth/internal/types"
)

func tokenManager() (*token.Manager, error) {
	return token.NewManager(token.Config{
		Secret: cfg.JWT.Secret,
		TTL:    cfg.TokenTTL(),
		Issuer: cfg.JWT.Issuer,
	}, clock.New())
}

func newHashPasswordCmd() *cobra.Command {
	var (
		username   string
		externalID string
		role       string
	)

	cmd := &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Check a password against the policy and print its bcrypt digest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, ok := types.ParseRole(role)
			if !ok {
				return fmt.Errorf("unknown role %q", role)
			}
			hasher := password.NewBcryptHasher(cfg.Password.BcryptCost)

			user := &types.User{Username: username, ExternalID: externalID, Role: r}
			if err := password.NewPolicy(hasher, clock.New()).Validate(args[0], user, nil).Err(); err != nil {
				return err
			}

			digest, err := hasher.Hash(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), digest)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Username the password must not contain")
	cmd.Flags().StringVar(&externalID, "external-id", "", "External ID the password must not contain")
	cmd.Flags().StringVar(&role, "role", string(types.RolePlayer), "Role whose minimum length applies")
	return cmd
}

func newIssueTokenCmd() *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "issue-token <username>",
		Short: "Issue a signed bearer token with the configured secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, ok := types.ParseRole(role)
			if !ok {
				return fmt.Errorf("unknown role %q", role)
			}
			tm, err := tokenManager()
			if err != nil {
				return err
			}
			signed, err := tm.Issue(strings.TrimSpace(args[0]), r)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", string(types.RolePlayer), "Role carried by the token")
	return cmd
}

func newVerifyTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-token <token>",
		Short: "Verify a bearer token and print its claims as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tm, err := tokenManager()
			if err != nil {
				return err
			}
			claims, err := tm.Verify(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(claims)
		},
	}
}
