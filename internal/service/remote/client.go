// Package remote talks to the helpdesk backend that owns the /history and
// /chat endpoints.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/elio-helpdesk/client/internal/model/conversation"
)

// ErrEmptyReply means the chat endpoint answered 2xx with neither a reply nor an error.
var ErrEmptyReply = errors.New("response carries neither reply nor error")

const errorBodyLimit = 4 << 10

// StatusError is returned for non-2xx answers.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every request. The client passed to WithHTTPClient is
// copied, not modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			return
		}
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

// WithLogger sets the request logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// Client implements session.Backend over HTTP.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger zerolog.Logger
}

// NewClient validates baseURL and builds a client rooted at it.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", baseURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("base url %q has no host", baseURL)
	}

	c := &Client{
		base:   base,
		http:   &http.Client{Timeout: 90 * time.Second},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type historyItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// History fetches the stored conversation of phone, oldest first.
func (c *Client) History(ctx context.Context, phone string) ([]conversation.Entry, error) {
	endpoint := c.base.JoinPath("history")
	query := endpoint.Query()
	query.Set("phone", phone)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build history request: %w", err)
	}

	var items []historyItem
	if err := c.do(req, &items); err != nil {
		return nil, err
	}

	entries := make([]conversation.Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, conversation.Entry{
			Role:    conversation.Role(item.Role),
			Content: item.Content,
		})
	}
	return entries, nil
}

type chatResponse struct {
	Reply   *string `json:"reply"`
	Answer  *string `json:"answer"`
	Error   string  `json:"error"`
	Persona string  `json:"persona"`
}

// Chat submits a report as multipart form data.
func (c *Client) Chat(ctx context.Context, report conversation.Report) (conversation.Reply, error) {
	body, contentType, err := encodeReport(report)
	if err != nil {
		return conversation.Reply{}, fmt.Errorf("encode report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.JoinPath("chat").String(), body)
	if err != nil {
		return conversation.Reply{}, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	var payload chatResponse
	if err := c.do(req, &payload); err != nil {
		return conversation.Reply{}, err
	}

	// An explicit error wins even when the backend also sent a fallback answer.
	if payload.Error != "" {
		return conversation.Reply{Error: payload.Error, Persona: payload.Persona}, nil
	}

	switch {
	case payload.Reply != nil:
		return conversation.Reply{Text: *payload.Reply, Persona: payload.Persona}, nil
	case payload.Answer != nil:
		return conversation.Reply{Text: *payload.Answer, Persona: payload.Persona}, nil
	default:
		return conversation.Reply{}, ErrEmptyReply
	}
}

func (c *Client) do(req *http.Request, out any) error {
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("request_id", requestID).Str("path", req.URL.Path).Msg("[remote] request failed")
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("request_id", requestID).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("[remote] response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeReport(report conversation.Report) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	fields := [][2]string{
		{"phone", report.Phone},
		{"problem", report.Problem},
		{"resin", report.Resin},
		{"printer", report.Printer},
	}
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return nil, "", err
		}
	}

	for _, img := range report.Images {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename="%s"`, quoteEscaper.Replace(img.Name)))
		contentType := img.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)

		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(img.Data); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf, writer.FormDataContentType(), nil
}
