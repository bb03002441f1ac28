package http

import (
	"net/http"

	"gagyebu/internal/core"
	"gagyebu/internal/log"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	p, err := s.monthParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := s.transactions.ListMonth(r.Context(), p.Year, p.Month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"year":         p.Year,
		"month":        p.Month,
		"transactions": txs,
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tx := req.toTransaction()
	if tx.Date.IsZero() {
		tx.Date = core.DateOf(s.now())
	}
	tx, err := s.transactions.CreateTransaction(r.Context(), tx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.summaries.Delete(core.MonthKey(tx.Date.Year(), tx.Date.Month()))

	fields := log.NewFields().
		WithOperation(log.OpCreate).
		WithTransaction(tx.ID, string(tx.Kind), tx.Category, tx.Amount.Won)
	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction recorded", fields.ToSlice()...)
	writeJSON(w, http.StatusCreated, tx)
}

// handleDeleteTransaction removes one transaction. The owning month is not
// known up front, so every cached summary is dropped.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.transactions.DeleteTransaction(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.summaries.Purge()

	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldTransaction, id)
	w.WriteHeader(http.StatusNoContent)
}

// handleSummary serves the month's totals from the summary cache when
// possible.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	p, err := s.monthParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	key := core.MonthKey(p.Year, p.Month)
	if summary, ok := s.summaries.Get(key); ok {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Summary cache hit", log.FieldYear, p.Year, log.FieldMonth, p.Month)
		writeJSON(w, http.StatusOK, summary)
		return
	}

	summary, err := s.transactions.MonthSummary(r.Context(), p.Year, p.Month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if summary.ByCategory == nil {
		summary.ByCategory = []core.CategoryAmount{}
	}
	if summary.ByDay == nil {
		summary.ByDay = []core.DayTotal{}
	}
	s.summaries.Set(key, summary)
	writeJSON(w, http.StatusOK, summary)
}
