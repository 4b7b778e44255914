package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-3.5-turbo"
	defaultTimeout       = 30 * time.Second
	temperature          = 0.7
)

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	AppName string
}

// OpenAIPlanner calls the chat completions endpoint.
type OpenAIPlanner struct {
	cfg    OpenAIConfig
	client *http.Client
	logger *zap.Logger
	now    func() time.Time
}

func NewOpenAIPlanner(cfg OpenAIConfig, logger *zap.Logger) *OpenAIPlanner {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.AppName == "" {
		cfg.AppName = "Reminddo"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIPlanner{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		now:    time.Now,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (p *OpenAIPlanner) GenerateDailyPlan(ctx context.Context, todoList string) (*Plan, error) {
	if p.cfg.APIKey == "" {
		p.logger.Error("openai api key is missing")
		return nil, missingKey("OPENAI_API_KEY")
	}

	body, err := json.Marshal(chatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(p.cfg.AppName, p.now())},
			{Role: "user", Content: userPrompt(todoList)},
		},
		Temperature: temperature,
	})
	if err != nil {
		return nil, internal(err)
	}

	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, internal(err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Error("openai request failed", zap.Error(err))
		return nil, internal(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, internal(err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		p.logger.Error("openai quota exceeded")
		return nil, &Error{Message: MsgQuotaExceeded, Status: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.logger.Error("openai api error", zap.Int("status", resp.StatusCode), zap.ByteString("body", raw))
		return nil, unavailable(resp.StatusCode, fmt.Errorf("openai: status %d", resp.StatusCode))
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil || len(decoded.Choices) == 0 {
		if err == nil {
			err = fmt.Errorf("openai: no choices in response")
		}
		p.logger.Error("openai response malformed", zap.Error(err))
		return nil, parseFailed(err)
	}

	content := decoded.Choices[0].Message.Content
	plan, perr := decodePlan(content)
	if perr != nil {
		p.logger.Error("openai json parse error", zap.String("content", content))
		return nil, perr
	}
	return plan, nil
}
