package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"

	"github.com/radhikaramasamy/snipreader/api/internal/util"
)

// Completer работает с OpenAI Responses API и совместимыми провайдерами (BaseURL).
type Completer struct {
	model  string
	client openai.Client
	ok     bool
}

func New(key, model, baseURL string, extra ...option.RequestOption) *Completer {
	opts := []option.RequestOption{option.WithAPIKey(key)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	opts = append(opts, extra...)
	return &Completer{model: model, client: openai.NewClient(opts...), ok: key != ""}
}

func (c *Completer) Name() string { return "openai" }

func (c *Completer) Complete(ctx context.Context, system, user string) (string, error) {
	if !c.ok {
		return "", errors.New("OPENAI_API_KEY is empty")
	}
	resp, err := c.client.Responses.New(ctx, responses.ResponseNewParams{
		Model:        c.model,
		Instructions: openai.String(system),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(user),
		},
	})
	if err != nil {
		return "", err
	}
	out := strings.TrimSpace(resp.OutputText())
	if out == "" {
		return "", errors.New("openai answer: empty response")
	}
	return util.StripCodeFences(out), nil
}
