// Package google exports charges and closures to a Google spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"homesplit/internal/core"
	"homesplit/internal/log"
	"homesplit/internal/ports"
	"homesplit/internal/sheets"
)

// Config selects the spreadsheet and the service account used to write it.
type Config struct {
	SpreadsheetID string
	// Base sheet names without year; the record's year is prefixed.
	ChargesSheet  string
	ClosuresSheet string
	// At most one of these is used, JSON first.
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	chargesSheet  string
	closuresSheet string
	logger        *log.Logger
}

var _ ports.Exporter = (*Client)(nil)

// New builds a client. Without credentials in cfg it relies on opts or on
// application default credentials.
func New(ctx context.Context, cfg Config, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	id := strings.TrimSpace(cfg.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if logger == nil {
		logger = log.Discard()
	}
	charges := strings.TrimSpace(cfg.ChargesSheet)
	if charges == "" {
		charges = "Charges"
	}
	closures := strings.TrimSpace(cfg.ClosuresSheet)
	if closures == "" {
		closures = "Closures"
	}

	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	if creds != nil {
		logger.InfoContext(ctx, "Using service account credentials", "credentials_size", len(creds))
		opts = append([]goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}, opts...)
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: id,
		chargesSheet:  charges,
		closuresSheet: closures,
		logger:        logger.WithComponent(log.ComponentSheets),
	}, nil
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	}
	return nil, nil
}

// ExportCharge appends one row to "<year> <ChargesSheet>".
func (c *Client) ExportCharge(ctx context.Context, ch core.Charge) (string, error) {
	sheet := sheets.YearPrefixedName(c.chargesSheet, ch.Date.Year())
	ref, err := c.append(ctx, sheet, "A:I", [][]any{sheets.ChargeRow(ch)})
	if err != nil {
		return "", fmt.Errorf("export charge %d: %w", ch.ID, err)
	}
	c.logger.DebugContext(ctx, "Exported charge", "charge_id", ch.ID, "range", ref)
	return ref, nil
}

// ExportClosure appends the closure's transfers to "<year> <ClosuresSheet>".
func (c *Client) ExportClosure(ctx context.Context, cl core.Closure) (string, error) {
	sheet := sheets.YearPrefixedName(c.closuresSheet, cl.Period.Year)
	ref, err := c.append(ctx, sheet, "A:H", sheets.ClosureRows(cl))
	if err != nil {
		return "", fmt.Errorf("export closure %s: %w", cl.Period, err)
	}
	c.logger.DebugContext(ctx, "Exported closure", "period", cl.Period.String(), "transfers", len(cl.Transfers), "range", ref)
	return ref, nil
}

func (c *Client) append(ctx context.Context, sheet, cols string, rows [][]any) (string, error) {
	rng := fmt.Sprintf("'%s'!%s", strings.ReplaceAll(sheet, "'", "''"), cols)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("append %s: %w", rng, err)
	}
	if resp.Updates == nil {
		return rng, nil
	}
	return resp.Updates.UpdatedRange, nil
}
