package http

import (
	"context"
	"net/http"
	"time"

	"finsheet/internal/core"
	"finsheet/internal/ledger"
	"finsheet/internal/log"
)

// Finance is the read side of ledger.Service.
type Finance interface {
	Partitions(ctx context.Context) ([]string, error)
	Snapshot(ctx context.Context, partition string) (core.Snapshot, error)
}

const readTimeout = 15 * time.Second

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	p, ok := s.params(w, r)
	if !ok {
		return
	}
	snap, ok := s.snapshot(w, r, p)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, overviewDTO{
		Sheet:        snap.Partition,
		Summary:      toSummaryDTO(snap.Summary),
		Categories:   toCategoryDTOs(snap.Categories),
		Transactions: toTransactionDTOs(snap.Transactions),
	})
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	p, ok := s.params(w, r)
	if !ok {
		return
	}
	snap, ok := s.snapshot(w, r, p)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toBalancesDTO(ledger.Balances(snap, p.Currency)))
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	p, ok := s.params(w, r)
	if !ok {
		return
	}
	snap, ok := s.snapshot(w, r, p)
	if !ok {
		return
	}
	page := ledger.History(snap, p.Currency, p.Skip, p.Take)
	writeJSON(w, http.StatusOK, historyDTO{
		Transactions: toTransactionDTOs(page.Transactions),
		TotalSize:    page.TotalSize,
		Skip:         page.Skip,
		Take:         page.Take,
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	p, ok := s.params(w, r)
	if !ok {
		return
	}
	snap, ok := s.snapshot(w, r, p)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toCategoryDTOs(ledger.Categories(snap, p.Currency)))
}

func (s *Server) handleSheets(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	labels, err := s.finance.Partitions(ctx)
	if err != nil {
		writeFailure(w, r, log.OpList, err)
		return
	}
	out := sheetsDTO{Sheets: labels}
	if out.Sheets == nil {
		out.Sheets = []string{}
	}
	if n := len(labels); n > 0 {
		out.Active = labels[n-1]
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) params(w http.ResponseWriter, r *http.Request) (queryParams, bool) {
	p, err := parseQuery(r.URL.Query())
	if err != nil {
		writeFailure(w, r, log.OpRead, err)
		return queryParams{}, false
	}
	return p, true
}

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request, p queryParams) (core.Snapshot, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	snap, err := s.finance.Snapshot(ctx, p.Sheet)
	if err != nil {
		writeFailure(w, r, log.OpRead, err)
		return core.Snapshot{}, false
	}
	return snap, true
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once the store answers a partition listing.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if _, err := s.finance.Partitions(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
