package yandex

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/radhikaramasamy/snipreader/api/internal/ocr"
	"github.com/radhikaramasamy/snipreader/api/internal/util"
)

const DefaultOCRURL = "https://ocr.api.cloud.yandex.net/ocr/v1/recognizeText"

var errUnauthorized = errors.New("yandex ocr: unauthorized")

type Engine struct {
	URL      string
	Attempts uint

	iamc     *IamClient
	folderID string
	httpc    *http.Client
}

func New(oauth2Token, folderID string) *Engine {
	return &Engine{
		URL:      DefaultOCRURL,
		Attempts: 2,
		iamc:     NewIamClient(oauth2Token),
		folderID: folderID,
		httpc:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *Engine) Name() string { return "yandex" }

var _ ocr.Recognizer = (*Engine)(nil)

type request struct {
	Content       string   `json:"content"`
	MimeType      string   `json:"mimeType,omitempty"`      // "JPEG" | "PNG" | "PDF"
	LanguageCodes []string `json:"languageCodes,omitempty"` // ["ru","en"]
	Model         string   `json:"model,omitempty"`         // "page" | "handwritten"
}

type textAnnotation struct {
	FullText string `json:"fullText,omitempty"`
	Blocks   []struct {
		Lines []struct {
			Text string `json:"text,omitempty"`
		} `json:"lines,omitempty"`
	} `json:"blocks,omitempty"`
}

type response struct {
	Result *struct {
		TextAnnotation *textAnnotation `json:"textAnnotation,omitempty"`
	} `json:"result,omitempty"`
}

func (r *response) annotation() *textAnnotation {
	if r == nil || r.Result == nil {
		return nil
	}
	return r.Result.TextAnnotation
}

// Recognize возвращает распознанный текст страницы: fullText, иначе строки блоков через \n.
func (e *Engine) Recognize(ctx context.Context, image []byte, opt ocr.Options) (string, error) {
	if e.folderID == "" || e.iamc.oauth == "" {
		return "", fmt.Errorf("YC_OAUTH_TOKEN/YC_FOLDER_ID are empty: %w", ocr.ErrNotConfigured)
	}
	reqBody := request{
		Content:       base64.StdEncoding.EncodeToString(image),
		MimeType:      util.SniffMimeForOCR(image),
		LanguageCodes: opt.Langs,
		Model:         opt.Model,
	}
	if reqBody.Model == "" {
		reqBody.Model = "page"
	}
	if len(reqBody.LanguageCodes) == 0 {
		reqBody.LanguageCodes = []string{"*"}
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	var out response
	err = retry.Do(
		func() error {
			err := e.call(ctx, payload, &out)
			if errors.Is(err, errUnauthorized) {
				// токен мог протухнуть раньше срока
				e.iamc.Reset()
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(max(e.Attempts, 1)),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", err
	}

	ta := out.annotation()
	if ta == nil {
		return "", nil
	}
	if t := strings.TrimSpace(ta.FullText); t != "" {
		return t, nil
	}
	var lines []string
	for _, b := range ta.Blocks {
		for _, l := range b.Lines {
			if s := strings.TrimSpace(l.Text); s != "" {
				lines = append(lines, s)
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}

func (e *Engine) call(ctx context.Context, payload []byte, out *response) error {
	iamToken, err := e.iamc.Token(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader(payload))
	if err != nil {
		return retry.Unrecoverable(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+iamToken)
	req.Header.Set("x-folder-id", e.folderID)

	resp, err := e.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return errUnauthorized
	case resp.StatusCode >= 500:
		x, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("yandex ocr %d: %s", resp.StatusCode, util.Truncate(string(x), 512))
	case resp.StatusCode != http.StatusOK:
		x, _ := io.ReadAll(resp.Body)
		return retry.Unrecoverable(fmt.Errorf("yandex ocr %d: %s", resp.StatusCode, util.Truncate(string(x), 512)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
