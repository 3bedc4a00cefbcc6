package app

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNoFiles               = errors.New("at least one file is required")
	ErrEmptyFile             = errors.New("file content is empty")
	ErrSessionNotFound       = errors.New("chat session not found")
	ErrDocumentNotFound      = errors.New("pdf file not found")
	ErrProviderNotConfigured = errors.New("model provider not configured")
)
