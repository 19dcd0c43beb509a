package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/okian/linewatch/pkg/logger"
)

const (
	defaultGeminiEndpoint = "https://generativelanguage.googleapis.com"
	defaultGeminiModel    = "gemini-2.0-flash"
	maxErrorBody          = 64 << 10
	maxReplyBody          = 4 << 20
)

// GeminiOption configures a Gemini recognizer.
type GeminiOption func(*Gemini)

// WithAPIKey sets the API key sent in x-goog-api-key.
func WithAPIKey(key string) GeminiOption {
	return func(g *Gemini) { g.apiKey = strings.TrimSpace(key) }
}

// WithModel sets the model name.
func WithModel(model string) GeminiOption {
	return func(g *Gemini) {
		if model != "" {
			g.model = model
		}
	}
}

// WithEndpoint sets the API base URL.
func WithEndpoint(endpoint string) GeminiOption {
	return func(g *Gemini) {
		if endpoint != "" {
			g.endpoint = strings.TrimRight(endpoint, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) GeminiOption {
	return func(g *Gemini) {
		if c != nil {
			g.client = c
		}
	}
}

// WithGeminiLogger sets the logger.
func WithGeminiLogger(l logger.Logger) GeminiOption {
	return func(g *Gemini) {
		if l != nil {
			g.log = l
		}
	}
}

// Gemini recognizes photos with a hosted vision-language model over REST.
type Gemini struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
	log      logger.Logger
}

// NewGemini returns a Gemini recognizer.
func NewGemini(opts ...GeminiOption) *Gemini {
	g := &Gemini{
		model:    defaultGeminiModel,
		endpoint: defaultGeminiEndpoint,
		client:   http.DefaultClient,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.log == nil {
		g.log = logger.Get().Named("gemini")
	}
	return g
}

// Name implements Recognizer.
func (g *Gemini) Name() string { return "gemini" }

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		ResponseMIMEType string         `json:"responseMimeType"`
		ResponseSchema   map[string]any `json:"responseSchema"`
		Temperature      float64        `json:"temperature"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type geminiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Recognize implements Recognizer.
func (g *Gemini) Recognize(ctx context.Context, req Request) (Reply, error) {
	if len(req.Image) == 0 {
		return Reply{}, Errorf(CodeNoImage, "no image supplied")
	}
	if g.apiKey == "" {
		return Reply{}, Errorf(CodeAPIKeyMissing, "gemini api key is not configured")
	}
	mime := req.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}

	var body geminiRequest
	body.Contents = []geminiContent{{Parts: []geminiPart{
		{Text: Prompt(req.Schema, req.Mode, req.Previous)},
		{InlineData: &geminiInlineData{MIMEType: mime, Data: base64.StdEncoding.EncodeToString(req.Image)}},
	}}}
	body.GenerationConfig.ResponseMIMEType = "application/json"
	body.GenerationConfig.ResponseSchema = ResponseSchema(req.Schema, req.Mode)

	payload, err := json.Marshal(body)
	if err != nil {
		return Reply{}, &Error{Code: CodeInvalidRequest, Message: "encode request", Err: err}
	}

	u := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.endpoint, url.PathEscape(g.model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return Reply{}, &Error{Code: CodeInvalidRequest, Message: "build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return Reply{}, &Error{Code: CodeServerError, Message: "gemini request failed", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		e := geminiError(resp.StatusCode, raw)
		g.log.Warn(ctx, "gemini returned an error",
			logger.Int("status", resp.StatusCode),
			logger.String("code", string(e.Code)),
			logger.String("message", e.Message))
		return Reply{}, e
	}

	var out geminiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxReplyBody)).Decode(&out); err != nil {
		return Reply{}, &Error{Code: CodeServerError, Message: "decode gemini response", Err: err}
	}
	if out.PromptFeedback.BlockReason != "" {
		return Reply{}, Errorf(CodeSafetyBlocked, "photo was blocked: %s", out.PromptFeedback.BlockReason)
	}
	if len(out.Candidates) == 0 {
		return Reply{}, Errorf(CodeNoText, "no text was recognized in the photo")
	}
	cand := out.Candidates[0]
	if cand.FinishReason == "SAFETY" {
		return Reply{}, Errorf(CodeSafetyBlocked, "reply was blocked by safety filters")
	}
	var text strings.Builder
	for _, p := range cand.Content.Parts {
		text.WriteString(p.Text)
	}
	if strings.TrimSpace(text.String()) == "" {
		return Reply{}, Errorf(CodeNoText, "no text was recognized in the photo")
	}
	return Reply{Raw: text.String(), Format: FormatJSON}, nil
}

// geminiError maps an upstream failure onto a boundary code.
func geminiError(status int, raw []byte) *Error {
	var body geminiErrorBody
	_ = json.Unmarshal(raw, &body)
	msg := body.Error.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	lower := strings.ToLower(msg)

	switch {
	case status == http.StatusForbidden, body.Error.Status == "PERMISSION_DENIED",
		strings.Contains(lower, "api key not valid"):
		return &Error{Code: CodeAPIKeyInvalid, Message: msg}
	case status == http.StatusTooManyRequests, body.Error.Status == "RESOURCE_EXHAUSTED":
		return &Error{Code: CodeQuotaExceeded, Message: msg}
	case status == http.StatusRequestEntityTooLarge,
		strings.Contains(lower, "payload size"), strings.Contains(lower, "too large"):
		return &Error{Code: CodeImageTooLarge, Message: msg}
	case status >= http.StatusInternalServerError:
		return &Error{Code: CodeServerError, Message: msg}
	case status >= http.StatusBadRequest:
		return &Error{Code: CodeInvalidRequest, Message: msg}
	default:
		return &Error{Code: CodeServerError, Message: msg}
	}
}
