package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/warden/pkg/cli"
	"mercator-hq/warden/pkg/ledger"
	"mercator-hq/warden/pkg/security/auth"
)

var keysFlags struct {
	output string
	keyID  string
	force  bool
	name   string
	roles  []string
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage ledger signing keys",
	Long: `Generate Ed25519 keypairs for signing audit records and API keys for the
decision API.

After a key rotation keep the old public key in ledger.public_keys so that
records signed before the rotation still verify.`,
}

var keysAPIKeyCmd = &cobra.Command{
	Use:   "api-key",
	Short: "Generate an API key",
	Long: `Generate a random API key and print the configuration entry holding its
SHA-256 digest. The key itself is shown once and never stored.

Examples:
  warden keys api-key --name clinic-gateway --role evaluate --role read
  warden keys api-key --name ops --role admin`,
	RunE: generateAPIKey,
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate new keypair",
	Long: `Generate a new Ed25519 keypair for ledger signing.

The generated keys are saved to PEM files:
  - Public key:  0644 (readable by all)
  - Private key: 0600 (readable only by owner)

Examples:
  # Generate keypair with auto-generated ID
  warden keys generate

  # Generate with custom ID into a directory
  warden keys generate --key-id prod-2026-03 --output-dir /etc/warden/keys`,
	RunE: generateKeys,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysGenerateCmd, keysAPIKeyCmd)

	keysGenerateCmd.Flags().StringVar(&keysFlags.output, "output-dir", "./keys", "output directory")
	keysGenerateCmd.Flags().StringVar(&keysFlags.keyID, "key-id", "", "key ID (auto-generated if empty)")
	keysGenerateCmd.Flags().BoolVar(&keysFlags.force, "force", false, "overwrite existing key files")

	keysAPIKeyCmd.Flags().StringVar(&keysFlags.name, "name", "", "key name shown in logs")
	keysAPIKeyCmd.Flags().StringSliceVar(&keysFlags.roles, "role", nil, "granted role: evaluate, read, admin (repeatable)")
	_ = keysAPIKeyCmd.MarkFlagRequired("name")
	_ = keysAPIKeyCmd.MarkFlagRequired("role")
}

func generateKeys(cmd *cobra.Command, args []string) error {
	keyID := keysFlags.keyID
	if keyID == "" {
		keyID = fmt.Sprintf("key-%d", time.Now().Unix())
	}

	signer, err := ledger.GenerateSigner(keyID)
	if err != nil {
		return fmt.Errorf("failed to generate keypair: %w", err)
	}

	if err := os.MkdirAll(keysFlags.output, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	publicKeyPath := filepath.Join(keysFlags.output, keyID+"_public.pem")
	privateKeyPath := filepath.Join(keysFlags.output, keyID+"_private.pem")
	if !keysFlags.force {
		for _, path := range []string{publicKeyPath, privateKeyPath} {
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
		}
	}

	if err := ledger.SavePublicKey(publicKeyPath, signer.PublicKey()); err != nil {
		return fmt.Errorf("failed to save public key: %w", err)
	}
	if err := ledger.SavePrivateKey(privateKeyPath, signer.PrivateKey()); err != nil {
		return fmt.Errorf("failed to save private key: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Key ID:      %s\n", keyID)
	fmt.Fprintf(out, "Public Key:  %s\n", publicKeyPath)
	fmt.Fprintf(out, "Private Key: %s\n", privateKeyPath)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "⚠️  Store the private key securely and never commit it to version control")
	cli.Success(out, "Keys generated")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration snippet:")
	fmt.Fprintln(out, "ledger:")
	fmt.Fprintf(out, "  key_id: %q\n", keyID)
	fmt.Fprintf(out, "  signing_key_path: %q\n", privateKeyPath)
	return nil
}

func generateAPIKey(cmd *cobra.Command, args []string) error {
	for _, r := range keysFlags.roles {
		if _, err := auth.ParseRole(r); err != nil {
			return err
		}
	}

	key, err := auth.GenerateKey()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "API Key: %s\n", key)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "⚠️  The key is shown once. Hand it to the caller; only its digest goes into configuration")
	cli.Success(out, "API key generated")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration snippet:")
	fmt.Fprintln(out, "server:")
	fmt.Fprintln(out, "  auth:")
	fmt.Fprintln(out, "    enabled: true")
	fmt.Fprintln(out, "    keys:")
	fmt.Fprintf(out, "      - name: %q\n", keysFlags.name)
	fmt.Fprintf(out, "        sha256: %s\n", auth.HashKey(key))
	fmt.Fprintf(out, "        roles: [%s]\n", strings.Join(keysFlags.roles, ", "))
	return nil
}
