package sheets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"
)

type Client struct {
	srv           *sheetsv4.Service
	spreadsheetID string
}

// New accepts either the service account JSON itself or a path to it.
func New(ctx context.Context, serviceAccount, spreadsheetID string) (*Client, error) {
	var cred option.ClientOption
	if strings.HasPrefix(strings.TrimSpace(serviceAccount), "{") {
		cred = option.WithCredentialsJSON([]byte(serviceAccount))
	} else {
		if _, err := os.Stat(serviceAccount); err != nil {
			return nil, fmt.Errorf("service account json: %w", err)
		}
		cred = option.WithCredentialsFile(serviceAccount)
	}
	return NewWithOptions(ctx, spreadsheetID, cred, option.WithScopes(sheetsv4.SpreadsheetsScope))
}

func NewWithOptions(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*Client, error) {
	srv, err := sheetsv4.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{srv: srv, spreadsheetID: spreadsheetID}, nil
}

func (c *Client) SpreadsheetID() string { return c.spreadsheetID }

// ReplaceTab creates the tab when missing, clears it and writes rows from A1.
// It returns the number of rows the API reports as written.
func (c *Client) ReplaceTab(ctx context.Context, tab string, rows [][]string) (int64, error) {
	if err := c.ensureTab(ctx, tab); err != nil {
		return 0, err
	}

	if _, err := c.srv.Spreadsheets.Values.Clear(c.spreadsheetID, tab+"!A:Z", &sheetsv4.ClearValuesRequest{}).
		Context(ctx).
		Do(); err != nil {
		return 0, fmt.Errorf("clear %s: %w", tab, err)
	}

	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		values[i] = make([]interface{}, len(row))
		for j, cell := range row {
			values[i][j] = cell
		}
	}

	resp, err := c.srv.Spreadsheets.Values.Update(c.spreadsheetID, tab+"!A1", &sheetsv4.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", tab, err)
	}
	return resp.UpdatedRows, nil
}

func (c *Client) ensureTab(ctx context.Context, tab string) error {
	doc, err := c.srv.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, s := range doc.Sheets {
		if s.Properties != nil && s.Properties.Title == tab {
			return nil
		}
	}

	_, err = c.srv.Spreadsheets.BatchUpdate(c.spreadsheetID, &sheetsv4.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsv4.Request{{
			AddSheet: &sheetsv4.AddSheetRequest{
				Properties: &sheetsv4.SheetProperties{Title: tab},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("add tab %s: %w", tab, err)
	}
	return nil
}
