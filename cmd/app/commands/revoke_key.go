package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	authkeyUseCase "github.com/allisson/authkeys/internal/authkey/usecase"
)

// RunRevokeKey deactivates a key. Revoking an inactive key is a no-op.
func RunRevokeKey(
	ctx context.Context,
	keyUseCase authkeyUseCase.KeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	rawKeyID string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	keyID, err := parseKeyID(rawKeyID)
	if err != nil {
		return err
	}

	if err := keyUseCase.Revoke(ctx, keyID); err != nil {
		return fmt.Errorf("failed to revoke authorization key: %w", err)
	}

	logger.Info("authorization key revoked", slog.String("key_id", keyID.String()))

	if format == "json" {
		return writeJSON(writer, map[string]any{"id": keyID.String(), "revoked": true})
	}
	_, _ = fmt.Fprintf(writer, "Authorization key %s revoked.\n", keyID.String())
	return nil
}

// RunDeleteKey removes a key. Its ledger entries remain with the key reference cleared.
func RunDeleteKey(
	ctx context.Context,
	keyUseCase authkeyUseCase.KeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	rawKeyID string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	keyID, err := parseKeyID(rawKeyID)
	if err != nil {
		return err
	}

	if err := keyUseCase.Delete(ctx, keyID); err != nil {
		return fmt.Errorf("failed to delete authorization key: %w", err)
	}

	logger.Info("authorization key deleted", slog.String("key_id", keyID.String()))

	if format == "json" {
		return writeJSON(writer, map[string]any{"id": keyID.String(), "deleted": true})
	}
	_, _ = fmt.Fprintf(writer, "Authorization key %s deleted.\n", keyID.String())
	return nil
}
