package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/mirror520/collab/conf"
	"github.com/mirror520/collab/model"
)

var ErrIntentNotSupported = fmt.Errorf("%w: intent not supported", model.ErrValidation)

type Client interface {
	// Suggest never fails loudly: any failure yields ("", false).
	Suggest(ctx context.Context, req Request) (string, bool)
	Enabled() bool
}

func NewClient(cfg conf.AI, log *zap.Logger) Client {
	log = log.With(
		zap.String("client", "ai"),
	)

	if cfg.APIKey == "" {
		log.Warn("api key not configured, suggestions disabled")
		return disabledClient{}
	}

	return &geminiClient{
		log:      log,
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type disabledClient struct{}

func (disabledClient) Suggest(ctx context.Context, req Request) (string, bool) {
	return "", false
}

func (disabledClient) Enabled() bool {
	return false
}

type geminiClient struct {
	log      *zap.Logger
	endpoint string
	apiKey   string
	http     *http.Client
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

func (c *geminiClient) Enabled() bool {
	return true
}

func (c *geminiClient) Suggest(ctx context.Context, req Request) (string, bool) {
	log := c.log.With(
		zap.String("intent", req.Intent.String()),
		zap.String("language", req.Language),
	)

	body, err := json.Marshal(&generateRequest{
		Contents: []content{
			{Parts: []part{{Text: req.Prompt()}}},
		},
		GenerationConfig: req.Intent.GenerationConfig(),
	})
	if err != nil {
		log.Error(err.Error())
		return "", false
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		log.Error(err.Error())
		return "", false
	}

	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		log.Error(err.Error())
		return "", false
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		log.Error(err.Error())
		return "", false
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error(err.Error())
		return "", false
	}

	if resp.StatusCode != http.StatusOK {
		log.Error("request failed",
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", string(respBody)),
		)
		return "", false
	}

	text, ok := ParseResponse(respBody)
	if !ok {
		log.Debug("no suggestion text in response",
			zap.String("body", string(respBody)),
		)
		return "", false
	}

	return text, true
}

type response struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		OutputText string `json:"output_text"`
	} `json:"candidates"`
	Output []struct {
		Content []part `json:"content"`
	} `json:"output"`
}

// ParseResponse extracts the generated text from the response shapes the
// endpoint has been seen to return. A body that is not a JSON object is
// taken as the text itself.
func ParseResponse(body []byte) (string, bool) {
	var text string

	var resp response
	if err := json.Unmarshal(body, &resp); err == nil {
		switch {
		case len(resp.Candidates) > 0 && len(resp.Candidates[0].Content.Parts) > 0 &&
			resp.Candidates[0].Content.Parts[0].Text != "":
			text = resp.Candidates[0].Content.Parts[0].Text

		case len(resp.Output) > 0 && len(resp.Output[0].Content) > 0 &&
			resp.Output[0].Content[0].Text != "":
			text = resp.Output[0].Content[0].Text

		case len(resp.Candidates) > 0 && resp.Candidates[0].OutputText != "":
			text = resp.Candidates[0].OutputText
		}
	} else {
		var s string
		if err := json.Unmarshal(body, &s); err == nil {
			text = s
		} else if !json.Valid(body) {
			text = string(body)
		}
	}

	text = strings.TrimSpace(text)
	return text, text != ""
}
