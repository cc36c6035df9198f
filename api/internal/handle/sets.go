package handle

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/radhikaramasamy/snipreader/api/internal/export"
	"github.com/radhikaramasamy/snipreader/api/internal/question"
	"github.com/radhikaramasamy/snipreader/api/internal/store"
)

const defaultHistoryLimit = 50

type SetSummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Source        string    `json:"source"`
	CreatedAt     time.Time `json:"created_at"`
	QuestionCount int       `json:"question_count"`
}

type ExportRequest struct {
	IDs    []string `json:"ids"`
	Format string   `json:"format"` // txt | xlsx
}

func (h *Handle) ListSets(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad limit")
			return
		}
		limit = n
	}
	sets, err := h.repo.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("list sets", "err", err)
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	out := make([]SetSummary, 0, len(sets))
	for _, s := range sets {
		out = append(out, SetSummary{
			ID:            s.ID,
			Title:         s.Title,
			Source:        s.Source,
			CreatedAt:     s.CreatedAt,
			QuestionCount: s.QuestionCount,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sets": out})
}

func (h *Handle) GetSet(w http.ResponseWriter, r *http.Request) {
	set, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (h *Handle) DeleteSet(w http.ResponseWriter, r *http.Request) {
	err := h.repo.Delete(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "set not found")
		return
	}
	if err != nil {
		h.logger.Error("delete set", "id", r.PathValue("id"), "err", err)
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handle) ExportSet(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if !validFormat(format) {
		writeError(w, http.StatusBadRequest, "format must be txt or xlsx")
		return
	}
	set, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.writeExport(w, format, "questions-"+set.ID, []question.Set{set})
}

func (h *Handle) ExportSets(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids are required")
		return
	}
	if !validFormat(req.Format) {
		writeError(w, http.StatusBadRequest, "format must be txt or xlsx")
		return
	}
	sets, err := h.repo.GetMany(r.Context(), req.IDs)
	if err != nil {
		h.logger.Error("export sets", "err", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	if len(sets) == 0 {
		writeError(w, http.StatusNotFound, "no sets found")
		return
	}
	h.writeExport(w, req.Format, "selected-questions", sets)
}

func (h *Handle) lookup(w http.ResponseWriter, r *http.Request) (question.Set, bool) {
	set, err := h.repo.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "set not found")
		return question.Set{}, false
	}
	if err != nil {
		h.logger.Error("get set", "id", r.PathValue("id"), "err", err)
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return question.Set{}, false
	}
	return set, true
}

func validFormat(f string) bool { return f == "txt" || f == "xlsx" }

func (h *Handle) writeExport(w http.ResponseWriter, format, name string, sets []question.Set) {
	var (
		body []byte
		ct   string
	)
	switch format {
	case "xlsx":
		b, err := export.XLSX(sets...)
		if err != nil {
			h.logger.Error("xlsx export", "err", err)
			writeError(w, http.StatusInternalServerError, "export failed")
			return
		}
		body, ct = b, export.XLSXMIME
	default:
		if len(sets) == 1 {
			body = []byte(export.Text(sets[0]))
		} else {
			body = []byte(export.TextMany(sets))
		}
		ct = "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, name, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
