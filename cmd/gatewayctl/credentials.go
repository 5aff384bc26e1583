package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/upb/llm-gateway/services/crypto"
)

func newEncryptCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt <plaintext>",
		Short: "Encrypt a credential into the stored iv:ciphertext form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cipher, err := opts.cipher()
			if err != nil {
				return err
			}
			encoded, err := cipher.Encrypt(args[0])
			if err != nil {
				return fmt.Errorf("encrypting: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), encoded)
			return nil
		},
	}
}

func newDecryptCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt <iv:ciphertext>",
		Short: "Decrypt a stored credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cipher, err := opts.cipher()
			if err != nil {
				return err
			}
			plaintext, err := cipher.Decrypt(args[0])
			if err != nil {
				return fmt.Errorf("decrypting: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), plaintext)
			return nil
		},
	}
}

func newHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <text>",
		Short: "Print the SHA-256 digest used to deduplicate stored keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), crypto.Hash(args[0]))
			return nil
		},
	}
}

func (o *options) cipher() (*crypto.Cipher, error) {
	logger, err := o.logger()
	if err != nil {
		return nil, err
	}
	security := o.security()
	if !security.HasPassphrase() {
		logger.Warn("no passphrase set, using insecure default")
	}
	return crypto.NewCipher(security.Passphrase(), logger)
}
