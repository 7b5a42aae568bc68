package export

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	sheets "google.golang.org/api/sheets/v4"

	"github.com/mtlprog/positions/internal/domain"
)

const sheetMonitoring = "MONITORING"

// buildMonitoringRows builds the header row and one data row per wallet for the MONITORING sheet.
func buildMonitoringRows(portfolios []domain.WalletPortfolio, date time.Time) (header []any, rows [][]any) {
	day := date.UTC().Format("02.01.2006")
	rows = lo.Map(portfolios, func(p domain.WalletPortfolio, _ int) []any {
		s := Summarize(p)
		return []any{
			day, s.Wallet, s.Currency, s.Protocols,
			toFloat(s.Total), toFloat(s.Deposits), toFloat(s.Borrows), toFloat(s.Rewards), toFloat(s.Locked),
		}
	})
	return summaryHeaders, rows
}

// appendMonitoring writes the header row if the sheet is empty, then appends the rows of this run.
func (w *SheetsWriter) appendMonitoring(ctx context.Context, mon sheetMeta, date time.Time, portfolios []domain.WalletPortfolio) error {
	header, rows := buildMonitoringRows(portfolios, date)

	existing, err := w.svc.Spreadsheets.Values.Get(
		w.spreadsheetID, sheetMonitoring+"!A1:A1",
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("reading %s header: %w", sheetMonitoring, err)
	}

	if len(existing.Values) == 0 {
		_, err = w.svc.Spreadsheets.Values.Update(
			w.spreadsheetID,
			sheetMonitoring+"!A1",
			&sheets.ValueRange{Values: [][]any{header}},
		).ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("writing %s header: %w", sheetMonitoring, err)
		}
		if err := w.formatMonitoring(ctx, mon); err != nil {
			return fmt.Errorf("formatting %s sheet: %w", sheetMonitoring, err)
		}
	}

	if len(rows) == 0 {
		return nil
	}
	_, err = w.svc.Spreadsheets.Values.Append(
		w.spreadsheetID,
		sheetMonitoring+"!A:I",
		&sheets.ValueRange{Values: rows},
	).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("appending %s rows: %w", sheetMonitoring, err)
	}
	return nil
}

// formatMonitoring gives the header a light-green bold row, freezes it and the date column,
// and applies date and money formats to the data cells.
func (w *SheetsWriter) formatMonitoring(ctx context.Context, mon sheetMeta) error {
	// #D9EAD3
	lightGreen := &sheets.Color{Red: 0.851, Green: 0.918, Blue: 0.827}
	totalCols := int64(len(summaryHeaders))

	reqs := []*sheets.Request{
		cellFormatReq(mon.id, 0, 1, 0, totalCols,
			&sheets.CellFormat{
				BackgroundColor:     lightGreen,
				TextFormat:          &sheets.TextFormat{Bold: true},
				HorizontalAlignment: "CENTER",
			},
			"userEnteredFormat(backgroundColor,textFormat,horizontalAlignment)"),
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId: mon.id,
					GridProperties: &sheets.GridProperties{
						FrozenRowCount:    1,
						FrozenColumnCount: 1,
					},
				},
				Fields: "gridProperties.frozenRowCount,gridProperties.frozenColumnCount",
			},
		},
		cellFormatReq(mon.id, 1, 10000, 0, 1,
			&sheets.CellFormat{NumberFormat: &sheets.NumberFormat{Type: "DATE", Pattern: "d.m.yyyy"}},
			"userEnteredFormat.numberFormat"),
		// Total through Locked
		cellFormatReq(mon.id, 1, 10000, 4, totalCols,
			&sheets.CellFormat{NumberFormat: &sheets.NumberFormat{Type: "NUMBER", Pattern: "#,##0.00"}},
			"userEnteredFormat.numberFormat"),
	}

	_, err := w.svc.Spreadsheets.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: reqs},
	).Context(ctx).Do()
	return err
}

func cellFormatReq(sheetID, startRow, endRow, startCol, endCol int64, format *sheets.CellFormat, fields string) *sheets.Request {
	return &sheets.Request{
		RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{
				SheetId:          sheetID,
				StartRowIndex:    startRow,
				EndRowIndex:      endRow,
				StartColumnIndex: startCol,
				EndColumnIndex:   endCol,
			},
			Cell:   &sheets.CellData{UserEnteredFormat: format},
			Fields: fields,
		},
	}
}
