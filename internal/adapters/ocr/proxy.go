package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/okian/linewatch/pkg/logger"
)

// BoundaryRequest is the body accepted by POST /api/ocr.
type BoundaryRequest struct {
	Image string `json:"image"`
	// PreviousValue and PreviousTimestamp (unix milliseconds) carry the last relevant reading.
	PreviousValue     *int64 `json:"previousValue,omitempty"`
	PreviousTimestamp *int64 `json:"previousTimestamp,omitempty"`
}

// BoundaryError is the error body returned by POST /api/ocr.
type BoundaryError struct {
	Error   Code   `json:"error"`
	Message string `json:"message"`
}

// ProxyOption configures a Proxy recognizer.
type ProxyOption func(*Proxy)

// WithProxyHTTPClient sets the HTTP client.
func WithProxyHTTPClient(c *http.Client) ProxyOption {
	return func(p *Proxy) {
		if c != nil {
			p.client = c
		}
	}
}

// WithProxyLogger sets the logger.
func WithProxyLogger(l logger.Logger) ProxyOption {
	return func(p *Proxy) {
		if l != nil {
			p.log = l
		}
	}
}

// Proxy forwards photos to another instance's /api/ocr endpoint.
type Proxy struct {
	baseURL string
	client  *http.Client
	log     logger.Logger
}

// NewProxy returns a recognizer that posts to baseURL + "/api/ocr".
func NewProxy(baseURL string, opts ...ProxyOption) *Proxy {
	p := &Proxy{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.Get().Named("ocr-proxy")
	}
	return p
}

// Name implements Recognizer.
func (p *Proxy) Name() string { return "proxy" }

// Recognize implements Recognizer.
func (p *Proxy) Recognize(ctx context.Context, req Request) (Reply, error) {
	if len(req.Image) == 0 {
		return Reply{}, Errorf(CodeNoImage, "no image supplied")
	}
	mime := req.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	body := BoundaryRequest{
		Image: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(req.Image),
	}
	if req.Previous != nil {
		v, ms := req.Previous.Value, req.Previous.At.UnixMilli()
		body.PreviousValue, body.PreviousTimestamp = &v, &ms
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Reply{}, &Error{Code: CodeInvalidRequest, Message: "encode request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/ocr", bytes.NewReader(payload))
	if err != nil {
		return Reply{}, &Error{Code: CodeInvalidRequest, Message: "build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return Reply{}, &Error{Code: CodeServerError, Message: "ocr proxy request failed", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBody))
	if err != nil {
		return Reply{}, &Error{Code: CodeServerError, Message: "read ocr proxy response", Err: err}
	}

	var be BoundaryError
	if json.Unmarshal(raw, &be) == nil && be.Error != "" {
		code := be.Error
		if !code.Known() {
			code = CodeServerError
		}
		if !code.Soft() {
			p.log.Warn(ctx, "ocr proxy returned an error",
				logger.Int("status", resp.StatusCode),
				logger.String("code", string(be.Error)))
		}
		return Reply{}, &Error{Code: code, Message: be.Message}
	}
	if resp.StatusCode != http.StatusOK {
		return Reply{}, &Error{Code: codeForStatus(resp.StatusCode), Message: http.StatusText(resp.StatusCode)}
	}
	return Reply{Raw: string(raw), Format: FormatJSON}, nil
}

func codeForStatus(status int) Code {
	switch status {
	case http.StatusForbidden:
		return CodeAPIKeyInvalid
	case http.StatusTooManyRequests:
		return CodeQuotaExceeded
	case http.StatusRequestEntityTooLarge:
		return CodeImageTooLarge
	case http.StatusBadRequest:
		return CodeInvalidRequest
	default:
		return CodeServerError
	}
}
