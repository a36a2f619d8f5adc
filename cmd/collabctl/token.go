package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/collabtext/core/internal/config"
	"github.com/collabtext/core/pkg/auth"
)

var (
	tokenUserID string
	tokenTTL    time.Duration
)

// tokenCmd mints a development credential so operators can exercise
// handleSocket/restapi locally without standing up a real identity
// provider. Grounded on the teacher's pkg/server/secret.go GenerateOTP
// (now pkg/auth.GenerateOpaqueToken) for anonymous-mode tokens, and on
// pkg/auth's own JWTVerifier for the signed-JWT path.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a development bearer token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		if cfg.AnonymousAuth {
			fmt.Println(auth.GenerateOpaqueToken())
			return nil
		}

		if tokenUserID == "" {
			return fmt.Errorf("token: --user-id is required when ANONYMOUS_AUTH is not set")
		}
		signed, err := auth.GenerateDevJWT([]byte(cfg.JWTSecret), tokenUserID, tokenTTL)
		if err != nil {
			return fmt.Errorf("token: %w", err)
		}
		fmt.Println(signed)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUserID, "user-id", "", "subject claim for a signed JWT (ignored with ANONYMOUS_AUTH=true)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
}
