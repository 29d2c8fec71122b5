package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// MalformedPayloadError represents an inbound webhook body whose shape
// could not be recognized. It is rejected immediately and must not be
// retried blindly by the sender.
type MalformedPayloadError struct {
	Reason string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed payload: %s", e.Reason)
}

func (e *MalformedPayloadError) HTTPStatus() int {
	return http.StatusBadRequest
}

func (e *MalformedPayloadError) Code() string {
	return "MALFORMED_PAYLOAD"
}

// NewMalformedPayloadError creates a new MalformedPayloadError
func NewMalformedPayloadError(reason string) *MalformedPayloadError {
	return &MalformedPayloadError{Reason: reason}
}

// ConfigurationError represents a system state that requires operator
// intervention, e.g. no funnel/stage exists for default placement.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Message)
}

func (e *ConfigurationError) HTTPStatus() int {
	return http.StatusInternalServerError
}

func (e *ConfigurationError) Code() string {
	return "CONFIGURATION_ERROR"
}

// NewConfigurationError creates a new ConfigurationError
func NewConfigurationError(message string) *ConfigurationError {
	return &ConfigurationError{Message: message}
}

// DownstreamSyncError wraps a failed outbound call (platform push-back
// or automation webhook). It is recorded in the sync log and swallowed:
// it must never propagate to the caller of the originating CRM write.
type DownstreamSyncError struct {
	Target string
	Cause  error
}

func (e *DownstreamSyncError) Error() string {
	return fmt.Sprintf("downstream sync to %s failed: %v", e.Target, e.Cause)
}

func (e *DownstreamSyncError) Unwrap() error {
	return e.Cause
}

// NewDownstreamSyncError creates a new DownstreamSyncError
func NewDownstreamSyncError(target string, cause error) *DownstreamSyncError {
	return &DownstreamSyncError{Target: target, Cause: cause}
}

// IsMalformedPayload checks if an error is a MalformedPayloadError
func IsMalformedPayload(err error) bool {
	var malformed *MalformedPayloadError
	return errors.As(err, &malformed)
}

// IsConfiguration checks if an error is a ConfigurationError
func IsConfiguration(err error) bool {
	var config *ConfigurationError
	return errors.As(err, &config)
}
