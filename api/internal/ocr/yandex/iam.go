package yandex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const DefaultIAMURL = "https://iam.api.cloud.yandex.net/iam/v1/tokens"

// IamClient обменивает OAuth-токен на IAM-токен и кэширует его (~12ч жизни).
type IamClient struct {
	URL string

	httpc  *http.Client
	oauth  string
	mu     sync.Mutex
	token  string
	expiry time.Time
}

func NewIamClient(oauth string) *IamClient {
	return &IamClient{
		URL:   DefaultIAMURL,
		httpc: &http.Client{Timeout: 20 * time.Second},
		oauth: oauth,
	}
}

// Token возвращает кэшированный токен, пока до истечения больше минуты.
func (c *IamClient) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.expiry.Add(-time.Minute)) {
		return c.token, nil
	}

	b, err := json.Marshal(map[string]string{"yandexPassportOauthToken": c.oauth})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("iam %d", resp.StatusCode)
	}

	var out struct {
		IamToken string `json:"iamToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	c.token = out.IamToken
	c.expiry = time.Now().Add(11 * time.Hour)
	return c.token, nil
}

// Reset сбрасывает кэш: следующий Token сходит в IAM.
func (c *IamClient) Reset() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}
