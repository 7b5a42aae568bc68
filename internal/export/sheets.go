package export

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"github.com/mtlprog/positions/internal/domain"
)

// SheetsWriter implements Writer using the Google Sheets API.
type SheetsWriter struct {
	spreadsheetID string
	svc           *sheets.Service
}

// NewSheetsWriter creates a SheetsWriter authenticated with a service account JSON.
func NewSheetsWriter(ctx context.Context, spreadsheetID, credentialsJSON string) (*SheetsWriter, error) {
	creds, err := google.CredentialsFromJSON(
		ctx,
		[]byte(credentialsJSON),
		sheets.SpreadsheetsScope,
	)
	if err != nil {
		return nil, fmt.Errorf("parsing google credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	return &SheetsWriter{spreadsheetID: spreadsheetID, svc: svc}, nil
}

// Write rewrites the POSITIONS sheet with the current rows and appends one MONITORING row per wallet.
func (w *SheetsWriter) Write(ctx context.Context, date time.Time, portfolios []domain.WalletPortfolio) error {
	meta, err := w.ensureSheets(ctx, sheetPositions, sheetMonitoring)
	if err != nil {
		return err
	}

	_, err = w.svc.Spreadsheets.Values.Clear(
		w.spreadsheetID,
		sheetPositions+"!A:N",
		&sheets.ClearValuesRequest{},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clearing %s: %w", sheetPositions, err)
	}

	_, err = w.svc.Spreadsheets.Values.Update(
		w.spreadsheetID,
		sheetPositions+"!A1",
		&sheets.ValueRange{Values: buildPositionValues(portfolios)},
	).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("writing %s: %w", sheetPositions, err)
	}

	return w.appendMonitoring(ctx, meta[sheetMonitoring], date, portfolios)
}

// buildPositionValues builds the POSITIONS sheet data.
func buildPositionValues(portfolios []domain.WalletPortfolio) [][]any {
	data := [][]any{positionHeaders}
	for _, p := range portfolios {
		for _, r := range Flatten(p) {
			data = append(data, []any{
				r.Wallet, r.Protocol, r.Name, r.Version, r.Category, r.Symbol, r.Asset, r.ChainID,
				toFloat(r.Quantity), toFloat(r.Value), r.Currency, r.PoolAddress, r.Allocation, r.RangeStatus,
			})
		}
	}
	return data
}

type sheetMeta struct {
	id int64
}

// ensureSheets creates any of the named sheets that do not already exist and returns their ids.
func (w *SheetsWriter) ensureSheets(ctx context.Context, names ...string) (map[string]sheetMeta, error) {
	spreadsheet, err := w.svc.Spreadsheets.Get(w.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("getting spreadsheet metadata: %w", err)
	}

	meta := make(map[string]sheetMeta, len(spreadsheet.Sheets))
	for _, s := range spreadsheet.Sheets {
		meta[s.Properties.Title] = sheetMeta{id: s.Properties.SheetId}
	}

	var requests []*sheets.Request
	for _, name := range names {
		if _, ok := meta[name]; !ok {
			requests = append(requests, &sheets.Request{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: name},
				},
			})
		}
	}

	if len(requests) == 0 {
		return meta, nil
	}

	resp, err := w.svc.Spreadsheets.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: requests},
	).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("creating sheets: %w", err)
	}
	for _, r := range resp.Replies {
		if r.AddSheet != nil && r.AddSheet.Properties != nil {
			meta[r.AddSheet.Properties.Title] = sheetMeta{id: r.AddSheet.Properties.SheetId}
		}
	}

	return meta, nil
}
