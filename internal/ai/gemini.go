package ai

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-flash-latest"

type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	AppName string
	// BaseURL overrides the API endpoint.
	BaseURL string
}

// GeminiPlanner asks Gemini for a JSON reply via the genai SDK.
type GeminiPlanner struct {
	cfg    GeminiConfig
	client *genai.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewGeminiPlanner builds the client eagerly. An empty key is not an error here;
// calls then fail with the missing-key message.
func NewGeminiPlanner(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiPlanner, error) {
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
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

	p := &GeminiPlanner{cfg: cfg, logger: logger, now: time.Now}
	if cfg.APIKey == "" {
		return p, nil
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, err
	}
	p.client = client
	return p, nil
}

func (p *GeminiPlanner) GenerateDailyPlan(ctx context.Context, todoList string) (*Plan, error) {
	if p.client == nil {
		p.logger.Error("gemini api key is missing")
		return nil, missingKey("GEMINI_API_KEY")
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	prompt := systemPrompt(p.cfg.AppName, p.now()) + "\n\n" + userPrompt(todoList)
	resp, err := p.client.Models.GenerateContent(ctx, p.cfg.Model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr[float32](temperature),
			ResponseMIMEType: "application/json",
		})
	if err != nil {
		if status, ok := apiStatus(err); ok {
			p.logger.Error("gemini api error", zap.Int("status", status), zap.Error(err))
			return nil, unavailable(status, err)
		}
		p.logger.Error("gemini request failed", zap.Error(err))
		return nil, internal(err)
	}

	content := resp.Text()
	plan, perr := decodePlan(content)
	if perr != nil {
		p.logger.Error("gemini json parse error", zap.String("content", content))
		return nil, perr
	}
	return plan, nil
}

func apiStatus(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code, true
	}
	return 0, false
}
