package google

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apperr"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsClient reads cell values with an API key. Read-only.
type SheetsClient struct {
	svc *sheets.Service
}

func NewSheetsClient(ctx context.Context, apiKey string, opts ...option.ClientOption) (*SheetsClient, error) {
	if apiKey == "" {
		return nil, &apperr.ConfigurationError{Setting: "GOOGLE_SHEETS_API_KEY"}
	}
	all := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := sheets.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &SheetsClient{svc: svc}, nil
}

// GetValues returns the unformatted cell values of rng as strings, so numbers
// arrive without locale grouping. Fetch failures are reported as
// *apperr.SourceUnavailableError.
func (c *SheetsClient) GetValues(ctx context.Context, sheetID, rng string) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(sheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, &apperr.SourceUnavailableError{Source: "google_sheets:" + sheetID, Err: err}
	}

	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			switch n := v.(type) {
			case nil:
			case float64:
				cells[j] = strconv.FormatFloat(n, 'f', -1, 64)
			default:
				cells[j] = fmt.Sprint(v)
			}
		}
		rows[i] = cells
	}
	return rows, nil
}
