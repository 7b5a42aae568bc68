package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mtlprog/positions/internal/domain"
)

const (
	sheetPositions = "POSITIONS"
	sheetSummary   = "SUMMARY"
)

var positionHeaders = []any{
	"Wallet", "Protocol", "Name", "Version", "Category", "Symbol", "Asset", "Chain",
	"Quantity", "Value", "Currency", "Pool", "Allocation", "Range",
}

var summaryHeaders = []any{
	"Date", "Wallet", "Currency", "Protocols", "Total", "Deposits", "Borrows", "Rewards", "Locked",
}

// XLSXWriter implements Writer by saving one workbook per run into a directory.
type XLSXWriter struct {
	dir string
}

// NewXLSXWriter creates an XLSXWriter that writes into dir, creating it if needed.
func NewXLSXWriter(dir string) (*XLSXWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating export dir: %w", err)
	}
	return &XLSXWriter{dir: dir}, nil
}

// Path returns the workbook path for a run date.
func (w *XLSXWriter) Path(date time.Time) string {
	return filepath.Join(w.dir, "positions_"+date.UTC().Format("2006-01-02")+".xlsx")
}

// Write saves the portfolios to positions_YYYY-MM-DD.xlsx, replacing an earlier file of the same day.
func (w *XLSXWriter) Write(_ context.Context, date time.Time, portfolios []domain.WalletPortfolio) error {
	f, err := BuildWorkbook(date, portfolios)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(w.Path(date)); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

// WriteWorkbook streams the workbook for the portfolios to out.
func WriteWorkbook(out io.Writer, date time.Time, portfolios []domain.WalletPortfolio) error {
	f, err := BuildWorkbook(date, portfolios)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(out); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// BuildWorkbook lays out the POSITIONS and SUMMARY sheets. The caller must close the file.
func BuildWorkbook(date time.Time, portfolios []domain.WalletPortfolio) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetPositions); err != nil {
		f.Close()
		return nil, fmt.Errorf("renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("creating sheet: %w", err)
	}

	if err := fillWorkbook(f, date, portfolios); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func fillWorkbook(f *excelize.File, date time.Time, portfolios []domain.WalletPortfolio) error {
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		// #D9EAD3, light green
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"D9EAD3"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return fmt.Errorf("creating number style: %w", err)
	}

	rowNum := 1
	if err := setRow(f, sheetPositions, rowNum, positionHeaders); err != nil {
		return err
	}
	for _, p := range portfolios {
		for _, r := range Flatten(p) {
			rowNum++
			err := setRow(f, sheetPositions, rowNum, []any{
				r.Wallet, r.Protocol, r.Name, r.Version, r.Category, r.Symbol, r.Asset, r.ChainID,
				toFloat(r.Quantity), toFloat(r.Value), r.Currency, r.PoolAddress, r.Allocation, r.RangeStatus,
			})
			if err != nil {
				return err
			}
		}
	}
	if err := f.SetCellStyle(sheetPositions, "A1", "N1", header); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}
	if rowNum > 1 {
		if err := f.SetCellStyle(sheetPositions, "J2", fmt.Sprintf("J%d", rowNum), money); err != nil {
			return fmt.Errorf("styling values: %w", err)
		}
	}

	if err := setRow(f, sheetSummary, 1, summaryHeaders); err != nil {
		return err
	}
	for i, p := range portfolios {
		s := Summarize(p)
		err := setRow(f, sheetSummary, i+2, []any{
			date.UTC().Format("2006-01-02"), s.Wallet, s.Currency, s.Protocols,
			toFloat(s.Total), toFloat(s.Deposits), toFloat(s.Borrows), toFloat(s.Rewards), toFloat(s.Locked),
		})
		if err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheetSummary, "A1", "I1", header); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}
	if len(portfolios) > 0 {
		if err := f.SetCellStyle(sheetSummary, "E2", fmt.Sprintf("I%d", len(portfolios)+1), money); err != nil {
			return fmt.Errorf("styling totals: %w", err)
		}
	}

	for _, sheet := range []string{sheetPositions, sheetSummary} {
		err := f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
		if err != nil {
			return fmt.Errorf("freezing header of %s: %w", sheet, err)
		}
	}
	if err := f.SetColWidth(sheetPositions, "A", "A", 44); err != nil {
		return fmt.Errorf("setting column width: %w", err)
	}
	if err := f.SetColWidth(sheetSummary, "B", "B", 44); err != nil {
		return fmt.Errorf("setting column width: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, row, err)
	}
	return nil
}
