package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/allisson/authkeys/internal/authkey/domain"
	"github.com/allisson/authkeys/internal/authkey/http/dto"
	authkeyUseCase "github.com/allisson/authkeys/internal/authkey/usecase"
)

// RunListKeys prints keys newest first. active is "", "true" or "false"; level is "" or a
// level name or ordinal.
func RunListKeys(
	ctx context.Context,
	keyUseCase authkeyUseCase.KeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	offset, limit int,
	active, level string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	filter := domain.KeyFilter{}
	if active != "" {
		v, err := strconv.ParseBool(active)
		if err != nil {
			return fmt.Errorf("invalid active filter: %s (valid options: true, false)", active)
		}
		filter.IsActive = &v
	}
	if level != "" {
		l, err := domain.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("invalid level: %s (valid options: low, medium, high, critical)", level)
		}
		filter.Level = &l
	}

	keys, err := keyUseCase.List(ctx, offset, limit, filter)
	if err != nil {
		return fmt.Errorf("failed to list authorization keys: %w", err)
	}

	logger.Debug("authorization keys listed", slog.Int("count", len(keys)))

	if format == "json" {
		return writeJSON(writer, dto.MapKeysToListResponse(keys))
	}

	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tPREFIX\tLABEL\tLEVEL\tUSES\tEXPIRES\tACTIVE\tCREATED BY")
	for _, key := range keys {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%s\t%s\t%t\t%s\n",
			key.ID.String(),
			key.TokenPrefix,
			key.Label,
			key.Level,
			key.UsesCount,
			formatOptionalInt(key.MaxUses),
			formatOptionalTime(key.ExpiresAt),
			key.IsActive,
			key.CreatedBy,
		)
	}
	return tw.Flush()
}

// ListKeyUsesParams are the flag values of the list-key-uses command.
type ListKeyUsesParams struct {
	Offset  int
	Limit   int
	Action  string
	Actor   string
	Success string
	KeyID   string
	From    string
	To      string
}

// RunListKeyUses prints ledger entries newest first.
func RunListKeyUses(
	ctx context.Context,
	keyUseUseCase authkeyUseCase.KeyUseUseCase,
	logger *slog.Logger,
	writer io.Writer,
	params ListKeyUsesParams,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	filter, err := params.filter()
	if err != nil {
		return err
	}

	uses, err := keyUseUseCase.List(ctx, params.Offset, params.Limit, filter)
	if err != nil {
		return fmt.Errorf("failed to list key uses: %w", err)
	}

	logger.Debug("key uses listed", slog.Int("count", len(uses)))

	if format == "json" {
		return writeJSON(writer, dto.MapKeyUsesToListResponse(uses))
	}

	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "USED AT\tACTION\tACTOR\tKEY\tRESULT\tTARGET")
	for _, use := range uses {
		actor := "-"
		if use.UsedBy != nil {
			actor = *use.UsedBy
		}
		keyID := "-"
		if use.KeyID != nil {
			keyID = use.KeyID.String()
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			use.UsedAt.UTC().Format(time.RFC3339),
			use.Action,
			actor,
			keyID,
			useResult(use),
			strings.TrimSpace(use.Target.Kind+" "+use.Target.ID),
		)
	}
	return tw.Flush()
}

func (p ListKeyUsesParams) filter() (domain.KeyUseFilter, error) {
	filter := domain.KeyUseFilter{
		Action: strings.TrimSpace(p.Action),
		UsedBy: strings.TrimSpace(p.Actor),
	}

	if p.Success != "" {
		v, err := strconv.ParseBool(p.Success)
		if err != nil {
			return filter, fmt.Errorf("invalid success filter: %s (valid options: true, false)", p.Success)
		}
		filter.Success = &v
	}

	if p.KeyID != "" {
		id, err := parseKeyID(p.KeyID)
		if err != nil {
			return filter, err
		}
		filter.KeyID = &id
	}

	from, err := parseOptionalTime(p.From)
	if err != nil {
		return filter, err
	}
	to, err := parseOptionalTime(p.To)
	if err != nil {
		return filter, err
	}
	if from != nil && to != nil && from.After(*to) {
		return filter, fmt.Errorf("from must not be after to")
	}
	filter.UsedAtFrom = from
	filter.UsedAtTo = to

	return filter, nil
}

// useResult summarizes an entry as "granted", "bypass" or the denial reason.
func useResult(use *domain.KeyUse) string {
	switch {
	case use.IsBypass():
		return "bypass"
	case use.Success:
		return "granted"
	default:
		return string(use.Reason())
	}
}
