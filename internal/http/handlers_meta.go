package http

import (
	"net/http"
	"strings"

	"gagyebu/internal/core"
)

// handleCategories lists the category sets, or one set when kind is given.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if v := strings.TrimSpace(r.URL.Query().Get("kind")); v != "" {
		kind, err := core.ParseKind(v)
		if err != nil {
			writeError(w, r, badRequest("%v", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string][]string{string(kind): core.Categories(kind)})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{
		string(core.Income):  core.Categories(core.Income),
		string(core.Expense): core.Categories(core.Expense),
	})
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]core.Template{"templates": core.Templates})
}
