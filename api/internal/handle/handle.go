package handle

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/radhikaramasamy/snipreader/api/internal/pipeline"
	"github.com/radhikaramasamy/snipreader/api/internal/question"
)

// SetRepo is the read/delete side of store.SetRepo.
type SetRepo interface {
	Get(ctx context.Context, id string) (question.Set, error)
	List(ctx context.Context, limit int) ([]question.Set, error)
	GetMany(ctx context.Context, ids []string) ([]question.Set, error)
	Delete(ctx context.Context, id string) error
}

type Handle struct {
	svc    *pipeline.Service
	repo   SetRepo // nil: история отключена
	db     *sql.DB // для /healthz, может быть nil
	logger *slog.Logger

	MaxUpload int64
	Timeout   time.Duration
}

func New(svc *pipeline.Service, repo SetRepo, db *sql.DB, logger *slog.Logger) *Handle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handle{
		svc:       svc,
		repo:      repo,
		db:        db,
		logger:    logger,
		MaxUpload: 20 << 20,
		Timeout:   180 * time.Second,
	}
}

// Routes регистрирует все эндпоинты. Без репозитория /v1/sets* не публикуются.
func (h *Handle) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("POST /v1/questions/image", h.Image)
	mux.HandleFunc("POST /v1/questions/text", h.Text)
	if h.repo != nil {
		mux.HandleFunc("GET /v1/sets", h.ListSets)
		mux.HandleFunc("GET /v1/sets/{id}", h.GetSet)
		mux.HandleFunc("DELETE /v1/sets/{id}", h.DeleteSet)
		mux.HandleFunc("GET /v1/sets/{id}/export", h.ExportSet)
		mux.HandleFunc("POST /v1/sets/export", h.ExportSets)
	}
	return mux
}

func (h *Handle) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}
