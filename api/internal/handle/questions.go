package handle

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/radhikaramasamy/snipreader/api/internal/ocr"
	"github.com/radhikaramasamy/snipreader/api/internal/pipeline"
	"github.com/radhikaramasamy/snipreader/api/internal/util"
)

// ImageRequest: JSON-вариант загрузки (вставка из буфера обмена).
type ImageRequest struct {
	ImageB64 string `json:"image_b64"` // base64 или data:URI
	Mime     string `json:"mime,omitempty"`
	Mode     string `json:"mode,omitempty"` // structured | ocr
	Title    string `json:"title,omitempty"`
	Answer   *bool  `json:"answer,omitempty"` // для ocr: дозаполнить ответы, по умолчанию true
}

type TextRequest struct {
	Text   string `json:"text"`
	Title  string `json:"title,omitempty"`
	Answer *bool  `json:"answer,omitempty"`
}

// Image принимает multipart (поле "image") или JSON с image_b64.
func (h *Handle) Image(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUpload)

	var (
		req ImageRequest
		img []byte
	)
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		if err := r.ParseMultipartForm(h.MaxUpload); err != nil {
			writeError(w, http.StatusBadRequest, "bad multipart form: "+err.Error())
			return
		}
		f, fh, err := r.FormFile("image")
		if err != nil {
			writeError(w, http.StatusBadRequest, "image file is required")
			return
		}
		defer f.Close()
		if img, err = io.ReadAll(f); err != nil {
			writeError(w, http.StatusBadRequest, "read image: "+err.Error())
			return
		}
		req.Mime = fh.Header.Get("Content-Type")
		req.Mode = r.FormValue("mode")
		req.Title = r.FormValue("title")
		if v := r.FormValue("answer"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "bad answer flag")
				return
			}
			req.Answer = &b
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
			return
		}
		b, hint, err := util.DecodeBase64MaybeDataURL(req.ImageB64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad image_b64")
			return
		}
		img = b
		if req.Mime == "" {
			req.Mime = hint
		}
	}
	if len(img) == 0 {
		writeError(w, http.StatusBadRequest, "empty image")
		return
	}
	if q := r.URL.Query().Get("mode"); req.Mode == "" && q != "" {
		req.Mode = q
	}
	mode, err := pipeline.ParseMode(req.Mode)
	if err != nil || mode == pipeline.ModeText {
		writeError(w, http.StatusBadRequest, "mode must be structured or ocr")
		return
	}

	h.run(w, r.Context(), pipeline.Input{
		Mode:        mode,
		Image:       img,
		MIME:        util.PickMIME(req.Mime, "", img),
		Title:       strings.TrimSpace(req.Title),
		WithAnswers: req.Answer == nil || *req.Answer,
	}, pipeline.NoQuestionsMessage)
}

// Text runs the heuristic path over pasted text.
func (h *Handle) Text(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUpload)
	var req TextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	h.run(w, r.Context(), pipeline.Input{
		Mode:        pipeline.ModeText,
		Text:        req.Text,
		Title:       strings.TrimSpace(req.Title),
		WithAnswers: req.Answer == nil || *req.Answer,
	}, "No questions could be extracted from the text")
}

func (h *Handle) run(w http.ResponseWriter, parent context.Context, in pipeline.Input, emptyMsg string) {
	ctx, cancel := context.WithTimeout(parent, h.Timeout)
	defer cancel()

	set, err := h.svc.Run(ctx, in)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, set)
	case errors.Is(err, pipeline.ErrNoQuestions):
		writeError(w, http.StatusUnprocessableEntity, emptyMsg)
	case errors.Is(err, ocr.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error("extraction failed", "mode", string(in.Mode), "err", err)
		writeError(w, http.StatusBadGateway, "extraction error: "+err.Error())
	}
}
