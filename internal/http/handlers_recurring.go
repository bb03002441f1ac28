package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gagyebu/internal/core"
	"gagyebu/internal/log"
)

// definitionView adds the schedule fields a client shows next to a
// definition.
type definitionView struct {
	core.RecurringDefinition
	NextGenerationDate core.Date            `json:"nextGenerationDate"`
	Phase              core.GenerationPhase `json:"phase"`
}

func (s *Server) viewOf(def core.RecurringDefinition, now time.Time) definitionView {
	return definitionView{
		RecurringDefinition: def,
		NextGenerationDate:  core.NextGenerationDate(def, now),
		Phase:               core.Phase(def, now.Year(), int(now.Month())),
	}
}

// handleListDefinitions returns every definition, or the category groups
// when groupBy=category.
func (s *Server) handleListDefinitions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch groupBy := strings.TrimSpace(r.URL.Query().Get("groupBy")); groupBy {
	case "":
	case "category":
		groups, err := s.recurring.ByCategory(ctx)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if groups == nil {
			groups = []core.CategoryGroup{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
		return
	default:
		writeError(w, r, badRequest("unsupported groupBy %q", groupBy))
		return
	}

	defs, err := s.recurring.Definitions(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	now := s.now()
	views := make([]definitionView, len(defs))
	for i, def := range defs {
		views[i] = s.viewOf(def, now)
	}
	writeJSON(w, http.StatusOK, map[string]any{"definitions": views})
}

func (s *Server) handleGetDefinition(w http.ResponseWriter, r *http.Request) {
	def, err := s.recurring.Definition(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.viewOf(def, s.now()))
}

func (s *Server) handleCreateDefinition(w http.ResponseWriter, r *http.Request) {
	var req definitionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	def, err := s.recurring.AddDefinition(r.Context(), req.toDefinition())
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Recurring definition created",
		log.FieldOperation, log.OpCreate,
		log.FieldDefinition, def.ID,
		log.FieldKind, string(def.Kind),
		log.FieldAmountWon, def.Amount.Won)
	writeJSON(w, http.StatusCreated, s.viewOf(def, s.now()))
}

func (s *Server) handleUpdateDefinition(w http.ResponseWriter, r *http.Request) {
	var req definitionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	def, err := s.recurring.UpdateDefinition(r.Context(), r.PathValue("id"), req.toDefinition())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.viewOf(def, s.now()))
}

func (s *Server) handleToggleDefinition(w http.ResponseWriter, r *http.Request) {
	def, err := s.recurring.ToggleDefinition(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Recurring definition toggled",
		log.FieldOperation, log.OpToggle,
		log.FieldDefinition, def.ID,
		"is_active", def.IsActive)
	writeJSON(w, http.StatusOK, s.viewOf(def, s.now()))
}

func (s *Server) handleDeleteDefinition(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.recurring.DeleteDefinition(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Recurring definition deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldDefinition, id)
	w.WriteHeader(http.StatusNoContent)
}

// handleStreamDefinitions pushes the full definition set as server-sent
// events: once on connect and again after every change.
func (s *Server) handleStreamDefinitions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snapshots, err := s.recurring.Watch(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rc := http.NewResponseController(w)
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Streaming not supported", log.FieldError, err.Error())
		return
	}

	keepAlive := time.NewTicker(s.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case defs, ok := <-snapshots:
			if !ok {
				return
			}
			if defs == nil {
				defs = []core.RecurringDefinition{}
			}
			data, err := json.Marshal(defs)
			if err != nil {
				log.FromContext(ctx).ErrorContext(ctx, "Snapshot encoding failed", log.FieldError, err.Error())
				return
			}
			if _, err := fmt.Fprintf(w, "event: definitions\ndata: %s\n\n", data); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleGenerationStatus(w http.ResponseWriter, r *http.Request) {
	p, err := s.monthParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status, err := s.generator.GenerationStatus(r.Context(), p.Year, p.Month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Year  int `json:"year"`
		Month int `json:"month"`
		core.GenerationStatus
	}{p.Year, p.Month, status})
}

// handleGenerate runs one generation batch. A partially failed batch still
// answers 200; the result lists what went wrong.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	p, err := s.monthParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result := s.generator.GenerateForMonth(r.Context(), p.Year, p.Month)
	if result.GeneratedCount > 0 {
		s.summaries.Delete(core.MonthKey(p.Year, p.Month))
	}
	if result.Errors == nil {
		result.Errors = []string{}
	}

	logger := log.FromContext(r.Context())
	fields := log.NewFields().
		WithOperation(log.OpGenerate).
		WithMonth(p.Year, p.Month)
	fields[log.FieldGenerated] = result.GeneratedCount
	fields[log.FieldErrorCount] = len(result.Errors)
	if result.Success {
		logger.InfoContext(r.Context(), "Generation requested", fields.ToSlice()...)
	} else {
		logger.WarnContext(r.Context(), "Generation finished with errors", fields.ToSlice()...)
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	p, err := s.monthParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	projection, err := s.recurring.Projection(r.Context(), p.Year, p.Month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Year  int `json:"year"`
		Month int `json:"month"`
		core.Projection
	}{p.Year, p.Month, projection})
}
