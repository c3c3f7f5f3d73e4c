package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// ConfigurationMissingError indicates the target webhook URL is not set.
type ConfigurationMissingError struct {
	Variable string
}

func (e *ConfigurationMissingError) Error() string {
	return fmt.Sprintf("%s not configured on server", e.Variable)
}

// Hint tells the operator how to fix the configuration.
func (e *ConfigurationMissingError) Hint() string {
	return fmt.Sprintf("Set %s in your environment or .env.local", e.Variable)
}

// InvalidPayloadError indicates the caller sent an unusable request body.
type InvalidPayloadError struct {
	Message string
}

func (e *InvalidPayloadError) Error() string {
	return e.Message
}

// UpstreamStatusError indicates the webhook answered with a non-2xx status.
type UpstreamStatusError struct {
	Status int
	Body   string
}

func (e *UpstreamStatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("upstream status %d: %s", e.Status, body)
}

// GatewayUnreachableError indicates a transport failure or an unparseable
// upstream response.
type GatewayUnreachableError struct {
	Variable string
	Err      error

	hint string
}

func (e *GatewayUnreachableError) Error() string {
	return fmt.Sprintf("proxy error: %v", e.Err)
}

func (e *GatewayUnreachableError) Unwrap() error {
	return e.Err
}

// Hint tells the operator what to check.
func (e *GatewayUnreachableError) Hint() string {
	if e.hint != "" {
		return e.hint
	}
	return fmt.Sprintf("Check %s connectivity and response format", e.Variable)
}

// HTTPStatus returns the HTTP status code that represents err.
func HTTPStatus(err error) int {
	var (
		missing  *ConfigurationMissingError
		invalid  *InvalidPayloadError
		upstream *UpstreamStatusError
		gateway  *GatewayUnreachableError
	)
	switch {
	case errors.As(err, &missing):
		return http.StatusInternalServerError
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &upstream):
		return upstream.Status
	case errors.As(err, &gateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
