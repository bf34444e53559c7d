package commands

import (
	"context"
	"fmt"
	"log/slog"

	authUseCase "github.com/allisson/sessions/internal/auth/usecase"
)

// RunRevokeUserTokens revokes every live token pair of a user, signing them out everywhere.
// Outputs the number of revoked pairs in text or JSON format.
//
// Requirements: the configured token store must be reachable.
func RunRevokeUserTokens(
	ctx context.Context,
	tokenUseCase authUseCase.TokenUseCase,
	logger *slog.Logger,
	io IOTuple,
	userID int64,
	format string,
) error {
	if userID <= 0 {
		return fmt.Errorf("user-id must be a positive number, got: %d", userID)
	}
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("revoking user tokens", slog.Int64("user_id", userID))

	count, err := tokenUseCase.RevokeAllByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke user tokens: %w", err)
	}

	if format == "json" {
		if err := writeJSON(io.Writer, map[string]any{
			"user_id": userID,
			"count":   count,
		}); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintf(io.Writer, "Successfully revoked %d token pair(s) of user %d\n", count, userID)
	}

	logger.Info("user tokens revoked",
		slog.Int64("user_id", userID),
		slog.Int64("count", count),
	)

	return nil
}
