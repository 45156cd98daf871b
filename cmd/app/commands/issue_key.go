package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/allisson/authkeys/internal/authkey/domain"
	"github.com/allisson/authkeys/internal/authkey/http/dto"
	authkeyUseCase "github.com/allisson/authkeys/internal/authkey/usecase"
)

// IssueKeyParams are the flag values of the issue-key command.
type IssueKeyParams struct {
	Label    string
	Level    string
	Actions  []string
	MaxUses  int // negative means unlimited
	Expires  string
	Note     string
	IssuedBy string
}

// RunIssueKey issues an authorization key and prints its plaintext token once.
//
// Requirements: Database must be migrated and accessible.
func RunIssueKey(
	ctx context.Context,
	keyUseCase authkeyUseCase.KeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	params IssueKeyParams,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	level, err := domain.ParseLevel(params.Level)
	if err != nil {
		return fmt.Errorf("invalid level: %s (valid options: low, medium, high, critical)", params.Level)
	}

	expiresAt, err := parseOptionalTime(params.Expires)
	if err != nil {
		return err
	}

	var maxUses *int
	if params.MaxUses >= 0 {
		maxUses = &params.MaxUses
	}

	actions := make([]string, 0, len(params.Actions))
	for _, action := range params.Actions {
		if action = strings.TrimSpace(action); action != "" {
			actions = append(actions, action)
		}
	}

	output, err := keyUseCase.Issue(ctx, &domain.IssueKeyInput{
		Label:          strings.TrimSpace(params.Label),
		Level:          level,
		AllowedActions: actions,
		MaxUses:        maxUses,
		ExpiresAt:      expiresAt,
		Note:           params.Note,
		IssuedBy:       params.IssuedBy,
	})
	if err != nil {
		return fmt.Errorf("failed to issue authorization key: %w", err)
	}

	logger.Info("authorization key issued",
		slog.String("key_id", output.Key.ID.String()),
		slog.String("prefix", output.Key.TokenPrefix),
		slog.String("level", output.Key.Level.String()),
	)

	if format == "json" {
		return writeJSON(writer, dto.MapIssueKeyOutputToResponse(output))
	}
	outputIssuedKeyText(writer, "Authorization key issued successfully!", output)
	return nil
}

// outputIssuedKeyText prints a freshly issued key in human-readable form.
func outputIssuedKeyText(writer io.Writer, title string, output *domain.IssueKeyOutput) {
	key := output.Key
	actions := "*"
	if !domain.IsWildcard(key.AllowedActions) {
		actions = strings.Join(key.AllowedActions, ", ")
	}

	_, _ = fmt.Fprintln(writer, title)
	_, _ = fmt.Fprintf(writer, "Key ID:   %s\n", key.ID.String())
	_, _ = fmt.Fprintf(writer, "Label:    %s\n", key.Label)
	_, _ = fmt.Fprintf(writer, "Level:    %s\n", key.Level)
	_, _ = fmt.Fprintf(writer, "Actions:  %s\n", actions)
	_, _ = fmt.Fprintf(writer, "Max uses: %s\n", formatOptionalInt(key.MaxUses))
	_, _ = fmt.Fprintf(writer, "Expires:  %s\n", formatOptionalTime(key.ExpiresAt))
	_, _ = fmt.Fprintf(writer, "Token:    %s\n", output.PlainToken)
	_, _ = fmt.Fprintln(writer, "\nIMPORTANT: The token is shown only once. Store it securely.")
}
