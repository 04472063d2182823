// Package sheets appends monthly reports to a Google Sheets spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finboard/internal/core"
	"finboard/internal/export"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ export.ReportWriter = (*Client)(nil)

// New creates a Sheets client using service account credentials, either
// inline JSON or a file path. Exactly one of the two must be set.
func New(ctx context.Context, spreadsheetID, sheetName, credentialsFile, credentialsJSON string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		return nil, errors.New("missing sheet name")
	}

	var creds []byte
	switch {
	case strings.TrimSpace(credentialsJSON) != "":
		creds = []byte(credentialsJSON)
	case strings.TrimSpace(credentialsFile) != "":
		var err error
		creds, err = os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// WriteReport appends the report below any existing content and returns the
// updated range as the report reference.
func (c *Client) WriteReport(ctx context.Context, period core.Period, rows [][]string) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	vr := &gsheet.ValueRange{Values: reportValues(period, rows)}
	rng := fmt.Sprintf("%s!A:H", c.sheetName)

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append report to sheet %s: %w", c.sheetName, err)
	}

	ref := ""
	if resp.Updates != nil {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

// reportValues lays out one report block: a period title, the shared column
// header, then the transaction rows.
func reportValues(period core.Period, rows [][]string) [][]any {
	values := make([][]any, 0, len(rows)+2)

	values = append(values, []any{period.Label()})

	header := make([]any, len(export.ReportHeader))
	for i, h := range export.ReportHeader {
		header[i] = h
	}
	values = append(values, header)

	for _, row := range rows {
		cells := make([]any, len(row))
		for i, cell := range row {
			cells[i] = cell
		}
		values = append(values, cells)
	}

	return values
}
