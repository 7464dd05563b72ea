package gql

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GraphQL request/response envelope types.

type Request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type Response struct {
	Data   json.RawMessage `json:"data"`
	Errors []ResponseError `json:"errors,omitempty"`
}

type ResponseError struct {
	Message string `json:"message"`
}

// ServiceError is an explicit backend refusal: the response carried a
// GraphQL errors array. For a verification harness this is a meaningful
// test outcome, not an infrastructure fault, and must never be conflated
// with a transport failure.
type ServiceError struct {
	Messages []string
}

func (e *ServiceError) Error() string {
	return "service reported errors: " + strings.Join(e.Messages, "; ")
}

// HTTPError is a non-2xx transport response without a usable GraphQL error
// payload. Includes unexpected 500s: a backend bug symptom is an
// infrastructure fault, never a validation signal.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.Status, truncate(e.Body, 200))
}

// DecodeError is a 2xx response whose body could not be decoded.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "malformed payload: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
