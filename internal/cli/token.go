package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"agent_gateway/internal/auth"
	"agent_gateway/internal/config"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		roles   string
		ttl     time.Duration
		secret  string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the dashboard or an integration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("JWT_SECRET")
			}
			if secret == "" {
				return errors.New("a signing secret is required: set JWT_SECRET or pass --secret")
			}
			parsed, err := auth.ParseRoles(roles)
			if err != nil {
				return err
			}

			token, expires, err := auth.GenerateAdminJWT(subject, parsed, ttl, &config.Config{JWTSecret: []byte(secret)})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	cmd.Flags().StringVar(&roles, "roles", string(auth.RoleAdmin), "comma-separated roles (admin, viewer, integration)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	cmd.Flags().StringVar(&secret, "secret", "", "signing secret (defaults to JWT_SECRET)")
	return cmd
}
