package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/saltastro/saltapi/internal/shared"
	"github.com/saltastro/saltapi/internal/token"
)

type keyFlags struct {
	secret     string
	privateKey string
	publicKey  string
	algorithm  string
}

func (f *keyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.secret, "secret", os.Getenv("SECRET_TOKEN_KEY"), "HS256 secret (defaults to $SECRET_TOKEN_KEY)")
	cmd.Flags().StringVar(&f.privateKey, "private-key", os.Getenv("TOKEN_PRIVATE_KEY_PATH"), "PEM file with the RS256 private key")
	cmd.Flags().StringVar(&f.publicKey, "public-key", os.Getenv("TOKEN_PUBLIC_KEY_PATH"), "PEM file with the RS256 public key")
	cmd.Flags().StringVarP(&f.algorithm, "algorithm", "a", string(token.HS256), "signing algorithm (HS256 or RS256)")
}

func (f *keyFlags) codec() (*token.Codec, token.Algorithm, error) {
	alg, err := token.ParseAlgorithm(f.algorithm)
	if err != nil {
		return nil, "", err
	}
	keys, err := token.LoadKeyMaterial(token.KeyConfig{
		Secret:         f.secret,
		PrivateKeyPath: f.privateKey,
		PublicKeyPath:  f.publicKey,
	})
	if err != nil {
		return nil, "", err
	}
	return token.NewCodec(keys, nil), alg, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "salttoken",
		Short:        "Issue and inspect SALT API tokens.",
		SilenceUsage: true,
	}
	root.AddCommand(newIssueCmd(), newParseCmd())
	return root
}

func newIssueCmd() *cobra.Command {
	var (
		keys   keyFlags
		userID int64
		expiry time.Duration
		roles  []string
	)
	cmd := &cobra.Command{
		Use:     "issue",
		Short:   "Sign a token for a user id.",
		Example: "salttoken issue --user 42 --expiry 24h\nsalttoken issue --user -1 -a RS256 --private-key key.pem --expiry 5m",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("user") {
				return fmt.Errorf("--user is required")
			}
			for _, r := range roles {
				if _, ok := shared.ParseRole(r); !ok {
					return fmt.Errorf("unknown role %q", r)
				}
			}
			codec, alg, err := keys.codec()
			if err != nil {
				return err
			}
			raw, err := codec.Issue(userID, roles, expiry, alg)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), raw)
			return err
		},
	}
	keys.register(cmd)
	cmd.Flags().Int64VarP(&userID, "user", "u", 0, "user id the token is issued for")
	cmd.Flags().DurationVarP(&expiry, "expiry", "e", 0, "token lifetime, 0 for unlimited")
	cmd.Flags().StringSliceVar(&roles, "roles", nil, "informational role claims")
	return cmd
}

type parsedToken struct {
	UserID    int64      `json:"user_id"`
	Roles     []string   `json:"roles,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func newParseCmd() *cobra.Command {
	var keys keyFlags
	cmd := &cobra.Command{
		Use:   "parse [token]",
		Short: "Verify a token and print its payload.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, alg, err := keys.codec()
			if err != nil {
				return err
			}
			payload, err := codec.Parse(strings.TrimPrefix(strings.TrimSpace(args[0]), "Bearer "), alg)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(parsedToken{UserID: payload.UserID, Roles: payload.Roles, ExpiresAt: payload.ExpiresAt})
		},
	}
	keys.register(cmd)
	return cmd
}
