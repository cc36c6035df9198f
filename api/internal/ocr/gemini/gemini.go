package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/radhikaramasamy/snipreader/api/internal/ocr"
	"github.com/radhikaramasamy/snipreader/api/internal/util"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client вызывает generateContent по REST и возвращает тело ответа как есть:
// разбор конверта выполняет extract.Structured.
type Client struct {
	APIKey      string
	Model       string
	Prompt      string
	Temperature float64
	MaxTokens   int
	BaseURL     string
	Attempts    uint
	RetryDelay  time.Duration
	Logger      *slog.Logger

	httpc *http.Client
}

func New(key, model, prompt string) *Client {
	return &Client{
		APIKey:      key,
		Model:       model,
		Prompt:      prompt,
		Temperature: 0.4,
		MaxTokens:   8192,
		BaseURL:     DefaultBaseURL,
		Attempts:    3,
		RetryDelay:  time.Second,
		httpc:       &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *Client) Name() string { return "gemini" }

var _ ocr.Vision = (*Client)(nil)

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type request struct {
	Contents []struct {
		Parts []part `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	} `json:"generationConfig"`
}

// GenerateContent отправляет промпт и картинку, возвращает сырой JSON ответа.
// 5xx и сетевые ошибки повторяются, 4xx: нет.
func (c *Client) GenerateContent(ctx context.Context, image []byte, mime string) (string, error) {
	if c.APIKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY is empty: %w", ocr.ErrNotConfigured)
	}
	if len(image) == 0 {
		return "", fmt.Errorf("gemini: empty image")
	}
	if mime == "" {
		mime = util.SniffMimeHTTP(image)
	}

	var body request
	body.Contents = append(body.Contents, struct {
		Parts []part `json:"parts"`
	}{Parts: []part{
		{Text: c.Prompt},
		{InlineData: &inlineData{MimeType: mime, Data: base64.StdEncoding.EncodeToString(image)}},
	}})
	body.GenerationConfig.Temperature = c.Temperature
	body.GenerationConfig.MaxOutputTokens = c.MaxTokens
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	// ключ только в заголовке: URL попадает в текст ошибок
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", base, url.PathEscape(c.Model))

	attempts := c.Attempts
	if attempts == 0 {
		attempts = 1
	}
	var out string
	err = retry.Do(
		func() error {
			s, err := c.post(ctx, endpoint, payload)
			if err != nil {
				return err
			}
			out = s
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(c.RetryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.log().Warn("gemini generateContent retry", "attempt", n+1, "model", c.Model, "err", err)
		}),
	)
	if err != nil {
		return "", err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", retry.Unrecoverable(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.APIKey)

	httpc := c.httpc
	if httpc == nil {
		httpc = http.DefaultClient
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("gemini %d: %s", resp.StatusCode, util.Truncate(string(b), 512))
		if resp.StatusCode >= 500 {
			return "", err
		}
		return "", retry.Unrecoverable(err)
	}
	return string(b), nil
}

func (c *Client) log() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
