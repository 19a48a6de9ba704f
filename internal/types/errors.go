package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrNoProviderSelected = errors.New("no usage provider selected")

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error in field %s: %s", e.Field, e.Message)
}

type LoaderError struct {
	Path string
	Err  error
}

func (e LoaderError) Error() string {
	return fmt.Sprintf("failed to load from %s: %v", e.Path, e.Err)
}

func (e LoaderError) Unwrap() error {
	return e.Err
}

type ParseError struct {
	Line int
	Err  error
}

func (e ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %v", e.Line, e.Err)
}

func (e ParseError) Unwrap() error {
	return e.Err
}

// ProviderError tags a pipeline failure with the provider that produced it.
type ProviderError struct {
	Provider Provider
	Err      error
}

func (e ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e ProviderError) Unwrap() error {
	return e.Err
}

// MarshalJSON renders the error as {"provider": ..., "message": ...} so summaries
// stay serializable.
func (e ProviderError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Provider Provider `json:"provider"`
		Message  string   `json:"message"`
	}{e.Provider, e.Err.Error()})
}

// MarshalYAML mirrors MarshalJSON.
func (e ProviderError) MarshalYAML() (interface{}, error) {
	return map[string]string{
		"provider": string(e.Provider),
		"message":  e.Err.Error(),
	}, nil
}

// UsageError is returned when no requested provider produced a result.
type UsageError struct {
	Errors []ProviderError
}

func (e *UsageError) Error() string {
	if len(e.Errors) == 0 {
		return "failed to load usage"
	}
	parts := make([]string, 0, len(e.Errors))
	for _, pe := range e.Errors {
		parts = append(parts, pe.Error())
	}
	return "failed to load usage: " + strings.Join(parts, "; ")
}

func (e *UsageError) Unwrap() []error {
	errs := make([]error, 0, len(e.Errors))
	for _, pe := range e.Errors {
		errs = append(errs, pe)
	}
	return errs
}
