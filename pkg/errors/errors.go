// Package errors defines the sentinel error values shared across modelman.
package errors

import "fmt"

// Common error types.
var (
	// Reference errors.
	ErrInvalidReference = fmt.Errorf("invalid model reference")
	ErrInvalidPath      = fmt.Errorf("invalid path")

	// Registry errors.
	ErrNotFound            = fmt.Errorf("model not found in registry")
	ErrVariantNotFound     = fmt.Errorf("quantization variant not found")
	ErrAuthRequired        = fmt.Errorf("registry requires authentication")
	ErrRegistryUnavailable = fmt.Errorf("registry unavailable")
	ErrSchemaUnsupported   = fmt.Errorf("unsupported registry schema version")

	// Download errors.
	ErrDownloadFailed        = fmt.Errorf("download failed")
	ErrChecksumMismatch      = fmt.Errorf("checksum mismatch")
	ErrInsufficientDiskSpace = fmt.Errorf("insufficient disk space")
	ErrRangeNotSupported     = fmt.Errorf("server does not support range requests")
	ErrCancelled             = fmt.Errorf("download cancelled")

	// Manifest errors.
	ErrNotInstalled       = fmt.Errorf("model not installed")
	ErrDownloadInProgress = fmt.Errorf("download in progress")

	// Hook errors.
	ErrHookExecution = fmt.Errorf("error executing hook")
	ErrHookScript    = fmt.Errorf("hook script error")

	// Config errors.
	ErrConfigParse      = fmt.Errorf("failed to parse config")
	ErrConfigValidation = fmt.Errorf("invalid configuration")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
