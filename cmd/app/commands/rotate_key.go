package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/allisson/authkeys/internal/authkey/domain"
	"github.com/allisson/authkeys/internal/authkey/http/dto"
	authkeyUseCase "github.com/allisson/authkeys/internal/authkey/usecase"
)

// RunRotateKey issues a replacement for an existing key, optionally revoking the old one.
func RunRotateKey(
	ctx context.Context,
	keyUseCase authkeyUseCase.KeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	rawKeyID string,
	revokeOld bool,
	issuedBy string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	keyID, err := parseKeyID(rawKeyID)
	if err != nil {
		return err
	}

	output, err := keyUseCase.Rotate(ctx, &domain.RotateKeyInput{
		KeyID:     keyID,
		RevokeOld: revokeOld,
		IssuedBy:  issuedBy,
	})
	if err != nil {
		return fmt.Errorf("failed to rotate authorization key: %w", err)
	}

	logger.Info("authorization key rotated",
		slog.String("old_key_id", keyID.String()),
		slog.String("new_key_id", output.Key.ID.String()),
		slog.Bool("revoke_old", revokeOld),
	)

	if format == "json" {
		return writeJSON(writer, dto.MapIssueKeyOutputToResponse(output))
	}
	outputIssuedKeyText(writer, "Authorization key rotated successfully!", output)
	if revokeOld {
		_, _ = fmt.Fprintf(writer, "Previous key %s has been revoked.\n", keyID.String())
	}
	return nil
}
