package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"

	authService "github.com/allisson/sessions/internal/auth/service"
)

const signingKeySize = 64

// RunCreateSigningKey generates a random 64-byte token signing key.
// Without kmsKeyURI the key is printed as JWT_SIGNING_KEY in plain base64. With kmsKeyURI the
// key is encrypted by the KMS keeper and printed together with KMS_KEY_URI.
//
// For local development, use kmsKeyURI="base64key://<32-byte-base64-key>".
func RunCreateSigningKey(
	ctx context.Context,
	signingKeyService authService.SigningKeyService,
	logger *slog.Logger,
	io IOTuple,
	kmsKeyURI string,
) error {
	raw := make([]byte, signingKeySize)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("failed to generate signing key: %w", err)
	}
	signingKey := []byte(base64.StdEncoding.EncodeToString(raw))

	defer func() {
		for i := range raw {
			raw[i] = 0
		}
		for i := range signingKey {
			signingKey[i] = 0
		}
	}()

	writer := io.Writer

	if kmsKeyURI == "" {
		_, _ = fmt.Fprintln(writer, "# Token signing key")
		_, _ = fmt.Fprintln(writer, "# Copy this environment variable to your .env file or secrets manager")
		_, _ = fmt.Fprintln(writer)
		_, _ = fmt.Fprintf(writer, "JWT_SIGNING_KEY=\"%s\"\n", signingKey)

		logger.Info("signing key generated")
		return nil
	}

	encrypted, err := signingKeyService.EncryptSigningKey(ctx, signingKey, kmsKeyURI)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(writer, "# Token signing key (KMS mode)")
	_, _ = fmt.Fprintln(writer, "# Copy these environment variables to your .env file or secrets manager")
	_, _ = fmt.Fprintln(writer)
	_, _ = fmt.Fprintf(writer, "KMS_KEY_URI=\"%s\"\n", kmsKeyURI)
	_, _ = fmt.Fprintf(writer, "JWT_SIGNING_KEY=\"%s\"\n", encrypted)

	logger.Info("signing key generated", slog.Bool("kms", true))
	return nil
}
