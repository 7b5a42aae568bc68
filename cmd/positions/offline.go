package main

import (
	"fmt"
	"io"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/urfave/cli/v2"

	"github.com/mtlprog/positions/internal/domain"
	"github.com/mtlprog/positions/internal/export"
	"github.com/mtlprog/positions/internal/logging"
	"github.com/mtlprog/positions/internal/positions"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var offlineFlags = []cli.Flag{
	&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "provider snapshot JSON file (- for stdin)", Required: true},
	&cli.StringFlag{Name: "currency", Value: domain.DefaultCurrency, Usage: "display currency"},
	&cli.BoolFlag{Name: "threshold", Usage: "drop protocols below --min-value"},
	&cli.StringFlag{Name: "min-value", Value: "1", Usage: "threshold in the display currency"},
	&cli.StringFlag{Name: "registry", Usage: "protocol registry YAML (default: embedded)"},
	&cli.StringFlag{Name: "wallet", Usage: "wallet address recorded in the output"},
	&cli.StringFlag{Name: "log-level", Value: "warn"},
}

func transformCommand() *cli.Command {
	return &cli.Command{
		Name:  "transform",
		Usage: "transform a provider snapshot file and print the portfolio as JSON",
		Flags: append(offlineFlags,
			&cli.BoolFlag{Name: "sorted", Usage: "print protocols as a list ordered by total value"},
		),
		Action: func(c *cli.Context) error {
			res, err := transformFile(c)
			if err != nil {
				return err
			}
			return writeResult(c.App.Writer, res, c.Bool("sorted"))
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "transform a provider snapshot file and write it as an XLSX workbook",
		Flags: append(offlineFlags,
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "XLSX file to write", Required: true},
		),
		Action: func(c *cli.Context) error {
			res, err := transformFile(c)
			if err != nil {
				return err
			}
			out, err := os.Create(c.String("output"))
			if err != nil {
				return fmt.Errorf("creating output: %w", err)
			}
			defer out.Close()

			portfolio := domain.WalletPortfolio{Address: c.String("wallet"), Result: res}
			if err := export.WriteWorkbook(out, time.Now(), []domain.WalletPortfolio{portfolio}); err != nil {
				return err
			}
			return out.Close()
		},
	}
}

func transformFile(c *cli.Context) (domain.Result, error) {
	logger := logging.New(c.App.ErrWriter, c.String("log-level"), "text")

	registry, err := positions.LoadRegistry(c.String("registry"))
	if err != nil {
		return domain.Result{}, err
	}
	minValue, err := domain.ParseAmount(c.String("min-value"))
	if err != nil {
		return domain.Result{}, fmt.Errorf("invalid --min-value: %w", err)
	}

	in := io.Reader(os.Stdin)
	if path := c.String("input"); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return domain.Result{}, fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()
		in = f
	}

	resp, err := readSnapshot(in)
	if err != nil {
		return domain.Result{}, err
	}

	return positions.Transform(resp, positions.Params{
		Currency:        c.String("currency"),
		ThresholdFilter: c.Bool("threshold"),
		MinValue:        minValue,
		Registry:        registry,
		Logger:          logger,
	}), nil
}

// readSnapshot decodes a provider list-positions response.
func readSnapshot(r io.Reader) (domain.ListPositionsResponse, error) {
	var resp domain.ListPositionsResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return resp, fmt.Errorf("decoding snapshot: %w", err)
	}
	return resp, nil
}

type sortedResult struct {
	Protocols      []domain.ProtocolPosition `json:"protocols"`
	Totals         domain.Totals             `json:"totals"`
	Currency       string                    `json:"currency"`
	PositionTokens []string                  `json:"positionTokens"`
	Warnings       []string                  `json:"warnings,omitempty"`
}

func writeResult(w io.Writer, res domain.Result, sorted bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if sorted {
		return enc.Encode(sortedResult{
			Protocols:      positions.SortedProtocols(res),
			Totals:         res.Totals,
			Currency:       res.Currency,
			PositionTokens: res.PositionTokens,
			Warnings:       res.Warnings,
		})
	}
	return enc.Encode(res)
}
