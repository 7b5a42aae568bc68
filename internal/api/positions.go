package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mtlprog/positions/internal/domain"
	"github.com/mtlprog/positions/internal/portfolio"
	"github.com/mtlprog/positions/internal/positions"
)

// PositionsHandler serves live portfolios.
type PositionsHandler struct {
	portfolios *portfolio.Service
}

// NewPositionsHandler creates a new live positions handler.
func NewPositionsHandler(portfolios *portfolio.Service) *PositionsHandler {
	return &PositionsHandler{portfolios: portfolios}
}

// sortedView is the ?sorted=true response: protocols ordered by value instead of keyed by id.
type sortedView struct {
	Protocols      []domain.ProtocolPosition `json:"protocols"`
	Totals         domain.Totals             `json:"totals"`
	Currency       string                    `json:"currency"`
	PositionTokens []string                  `json:"positionTokens"`
	Warnings       []string                  `json:"warnings,omitempty"`
}

// GetPositions handles GET /api/v1/positions/{address}.
func (h *PositionsHandler) GetPositions(w http.ResponseWriter, r *http.Request) {
	address, ok := walletAddress(w, r)
	if !ok {
		return
	}

	currency := requestCurrency(r, h.portfolios.Currency())
	if !domain.IsSupportedCurrency(currency) {
		writeError(w, http.StatusBadRequest, "unsupported currency")
		return
	}

	res, err := h.portfolios.FetchPortfolio(r.Context(), address, currency)
	if err != nil {
		slog.Error("failed to fetch portfolio", "request_id", RequestID(r.Context()), "address", address, "error", err)
		writeError(w, http.StatusBadGateway, "failed to fetch positions")
		return
	}

	if sorted, _ := strconv.ParseBool(r.URL.Query().Get("sorted")); sorted {
		writeJSON(w, http.StatusOK, sortedView{
			Protocols:      positions.SortedProtocols(res),
			Totals:         res.Totals,
			Currency:       res.Currency,
			PositionTokens: res.PositionTokens,
			Warnings:       res.Warnings,
		})
		return
	}
	writeJSON(w, http.StatusOK, res)
}
