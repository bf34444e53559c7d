package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"gocloud.dev/secrets"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// signingKeyService implements SigningKeyService using gocloud.dev/secrets.
type signingKeyService struct{}

// NewSigningKeyService creates a new SigningKeyService instance.
func NewSigningKeyService() SigningKeyService {
	return &signingKeyService{}
}

// LoadSigningKey decrypts rawKey with the keeper behind kmsKeyURI.
// Supports: gcpkms://, awskms://, azurekeyvault://, hashivault://, base64key://
func (s *signingKeyService) LoadSigningKey(ctx context.Context, rawKey, kmsKeyURI string) (string, error) {
	if kmsKeyURI == "" {
		return rawKey, nil
	}

	ciphertext, err := base64.StdEncoding.DecodeString(strings.TrimSpace(rawKey))
	if err != nil {
		return "", fmt.Errorf("failed to decode encrypted signing key: %w", err)
	}

	keeper, err := s.openKeeper(ctx, kmsKeyURI)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = keeper.Close()
	}()

	plaintext, err := keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt signing key: %w", err)
	}

	return string(plaintext), nil
}

// EncryptSigningKey encrypts plainKey with the keeper behind kmsKeyURI.
func (s *signingKeyService) EncryptSigningKey(
	ctx context.Context,
	plainKey []byte,
	kmsKeyURI string,
) (string, error) {
	keeper, err := s.openKeeper(ctx, kmsKeyURI)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = keeper.Close()
	}()

	ciphertext, err := keeper.Encrypt(ctx, plainKey)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt signing key: %w", err)
	}

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (s *signingKeyService) openKeeper(ctx context.Context, kmsKeyURI string) (*secrets.Keeper, error) {
	keeper, err := secrets.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}
