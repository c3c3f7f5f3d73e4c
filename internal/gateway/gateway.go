// Package gateway relays requests to the externally hosted listing, OCR and
// test webhooks.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"listings_dashboard/internal/config"
)

const maxBodySize = 10 * 1024 * 1024

// MissingFileMessage is returned when an OCR job carries no file.
const MissingFileMessage = "Missing file payload. Expected { fileData: string, fileName?: string, fileMimeType?: string }"

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Response is an upstream reply ready to be relayed.
type Response struct {
	Status int
	// JSON is true when Body holds compact JSON re-emitted from an
	// application/json upstream; otherwise Body is raw text.
	JSON bool
	Body []byte
}

// ContentType returns the content type the relayed body should carry.
func (r *Response) ContentType() string {
	if r.JSON {
		return "application/json"
	}
	return "text/plain; charset=utf-8"
}

// Err returns an UpstreamStatusError when the relayed status is not 2xx.
func (r *Response) Err() error {
	if r.Status < 200 || r.Status > 299 {
		return &UpstreamStatusError{Status: r.Status, Body: string(r.Body)}
	}
	return nil
}

// OCRPayload is the accepted shape of an OCR job submission. The file may be
// any non-empty JSON value under fileData or file; it is forwarded as is.
type OCRPayload struct {
	FileData     any `json:"fileData"`
	File         any `json:"file"`
	FileName     any `json:"fileName,omitempty"`
	FileMimeType any `json:"fileMimeType,omitempty"`
}

func validateOCRPayload(sl validator.StructLevel) {
	p := sl.Current().Interface().(OCRPayload)
	if !present(p.FileData) && !present(p.File) {
		sl.ReportError(p.FileData, "fileData", "FileData", "required_without", "File")
	}
}

// present reports whether v is a JSON value other than null, false, 0 or "".
func present(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	default:
		return true
	}
}

type target struct {
	variable string
	url      string
}

// Gateway forwards requests to the configured webhooks.
type Gateway struct {
	client   HTTPClient
	validate *validator.Validate
	now      func() time.Time

	listings target
	ocr      target
	test     target
}

// New creates a Gateway using the webhook URLs from cfg.
func New(client HTTPClient, cfg *config.Config) *Gateway {
	return &Gateway{
		client:   client,
		validate: newValidator(),
		now:      time.Now,
		listings: target{variable: config.EnvListingsWebhook, url: cfg.ListingsWebhook},
		ocr:      target{variable: config.EnvOCRWebhook, url: cfg.OCRWebhook},
		test:     target{variable: config.EnvTestWebhook, url: cfg.TestWebhook},
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(validateOCRPayload, OCRPayload{})
	return v
}

// FetchListings retrieves the listing collection from the listings webhook.
func (g *Gateway) FetchListings(ctx context.Context) (*Response, error) {
	if g.listings.url == "" {
		return nil, &ConfigurationMissingError{Variable: g.listings.variable}
	}
	return g.relay(ctx, g.listings, http.MethodGet, g.cacheBusted(g.listings.url), nil, true)
}

// FetchTestPing triggers the test webhook. The reply is always relayed as text.
func (g *Gateway) FetchTestPing(ctx context.Context) (*Response, error) {
	if g.test.url == "" {
		return nil, &ConfigurationMissingError{Variable: g.test.variable}
	}
	resp, err := g.relay(ctx, g.test, http.MethodGet, g.cacheBusted(g.test.url), nil, false)
	var unreachable *GatewayUnreachableError
	if errors.As(err, &unreachable) {
		unreachable.hint = fmt.Sprintf("Check %s connectivity", g.test.variable)
	}
	return resp, err
}

// SubmitOCRJob validates body and forwards it to the OCR webhook as JSON.
func (g *Gateway) SubmitOCRJob(ctx context.Context, body []byte) (*Response, error) {
	if g.ocr.url == "" {
		return nil, &ConfigurationMissingError{Variable: g.ocr.variable}
	}

	fields, err := g.parseOCRPayload(body)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode ocr payload: %w", err)
	}
	return g.relay(ctx, g.ocr, http.MethodPost, g.ocr.url, encoded, true)
}

// parseOCRPayload checks that body is a JSON object carrying a file under
// fileData or file, and returns all of its fields for forwarding.
func (g *Gateway) parseOCRPayload(body []byte) (map[string]any, error) {
	invalid := &InvalidPayloadError{Message: MissingFileMessage}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, invalid
	}

	var payload OCRPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, invalid
	}
	if err := g.validate.Struct(payload); err != nil {
		return nil, invalid
	}
	return fields, nil
}

func (g *Gateway) cacheBusted(url string) string {
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "_=" + strconv.FormatInt(g.now().UnixMilli(), 10)
}

func (g *Gateway) relay(ctx context.Context, t target, method, url string, body []byte, parseJSON bool) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &GatewayUnreachableError{Variable: t.variable, Err: fmt.Errorf("create request: %w", err)}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &GatewayUnreachableError{Variable: t.variable, Err: fmt.Errorf("http %s: %w", strings.ToLower(method), err)}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &GatewayUnreachableError{Variable: t.variable, Err: fmt.Errorf("read body: %w", err)}
	}

	out := &Response{Status: resp.StatusCode, Body: data}
	if parseJSON && strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var compact bytes.Buffer
		if err := json.Compact(&compact, data); err != nil {
			return nil, &GatewayUnreachableError{Variable: t.variable, Err: fmt.Errorf("parse json: %w", err)}
		}
		out.Body = compact.Bytes()
		out.JSON = true
	}
	return out, nil
}
