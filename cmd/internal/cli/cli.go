// Package cli implements the playgate command tree: the server plus helpers
// client developers use to produce canonical messages and signatures.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"playgate/cmd/internal/app"
	"playgate/cmd/security/wallet"
	v1 "playgate/contracts/play/v1"
)

// SigningKeyEnv supplies the signing secret when --key is not given.
const SigningKeyEnv = "PLAYGATE_SIGNING_KEY"

// ServeFunc runs the server until ctx is done.
type ServeFunc func(ctx context.Context) error

// NewRootCommand builds the command tree. serve defaults to app.Run.
func NewRootCommand(serve ServeFunc) *cobra.Command {
	if serve == nil {
		serve = app.Run
	}
	registry := wallet.DefaultRegistry()

	root := &cobra.Command{
		Use:           "playgate",
		Short:         "Wallet-authenticated game-run session server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCommand(serve),
		newKeygenCommand(registry),
		newSignCommand(registry),
		newVerifyCommand(registry),
		newCanonicalCommand(),
	)
	return root
}

// Execute runs the root command against os.Args.
func Execute(ctx context.Context) error {
	return NewRootCommand(nil).ExecuteContext(ctx)
}

func newServeCommand(serve ServeFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (configured via PLAYGATE_* environment variables)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

type keyPair struct {
	Scheme   string `json:"scheme"`
	Identity string `json:"identity"`
	Secret   string `json:"secret"`
}

func newKeygenCommand(registry *wallet.Registry) *cobra.Command {
	var scheme string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a wallet key pair for testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := registry.Scheme(scheme)
			if err != nil {
				return err
			}
			signer, err := s.Generate()
			if err != nil {
				return fmt.Errorf("keygen: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), keyPair{
				Scheme:   s.Name(),
				Identity: signer.Identity(),
				Secret:   signer.ExportSecret(),
			})
		},
	}
	cmd.Flags().StringVar(&scheme, "scheme", "ed25519", "signature scheme: ed25519 or secp256k1")
	return cmd
}

func newSignCommand(registry *wallet.Registry) *cobra.Command {
	var scheme, key, message string

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a canonical message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if key == "" {
				key = strings.TrimSpace(os.Getenv(SigningKeyEnv))
			}
			if key == "" {
				return fmt.Errorf("sign: --key or %s is required", SigningKeyEnv)
			}
			if message == "" {
				return errors.New("sign: --message is required")
			}

			s, err := registry.Scheme(scheme)
			if err != nil {
				return err
			}
			signer, err := s.ParseSigner(key)
			if err != nil {
				return err
			}
			sig, err := signer.Sign(message)
			if err != nil {
				return fmt.Errorf("sign: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), sig)
			return err
		},
	}
	cmd.Flags().StringVar(&scheme, "scheme", "ed25519", "signature scheme of --key")
	cmd.Flags().StringVar(&key, "key", "", "secret as printed by keygen (default $"+SigningKeyEnv+")")
	cmd.Flags().StringVar(&message, "message", "", "exact message to sign")
	return cmd
}

func newVerifyCommand(registry *wallet.Registry) *cobra.Command {
	var identity, message, signature string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a signature the way the server does",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !registry.Verify(identity, message, signature) {
				return errors.New("verify: signature invalid")
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return err
		},
	}
	cmd.Flags().StringVar(&identity, "identity", "", "wallet identity")
	cmd.Flags().StringVar(&message, "message", "", "signed message")
	cmd.Flags().StringVar(&signature, "signature", "", "signature to check")
	_ = cmd.MarkFlagRequired("identity")
	_ = cmd.MarkFlagRequired("message")
	_ = cmd.MarkFlagRequired("signature")
	return cmd
}

func newCanonicalCommand() *cobra.Command {
	var identity, entropy string
	var nfts []string

	cmd := &cobra.Command{
		Use:       "canonical {start|complete|cancel}",
		Short:     "Print the canonical message a client must sign",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"start", "complete", "cancel"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if identity == "" || entropy == "" {
				return errors.New("canonical: --identity and --entropy are required")
			}
			identity = wallet.CanonicalIdentity(identity)
			var msg string
			switch args[0] {
			case "start":
				msg = v1.StartMessage(identity, entropy)
			case "complete":
				msg = v1.CompleteMessage(identity, entropy, nfts)
			case "cancel":
				msg = v1.CancelMessage(identity, entropy)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), msg)
			return err
		},
	}
	cmd.Flags().StringVar(&identity, "identity", "", "wallet identity")
	cmd.Flags().StringVar(&entropy, "entropy", "", "entropy issued by session_init")
	cmd.Flags().StringSliceVar(&nfts, "nft", nil, "NFT id (repeatable, order matters)")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
