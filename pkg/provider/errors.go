package provider

import "errors"

var (
	// ErrProviderUnavailable indicates the model is unknown or its provider is not callable.
	ErrProviderUnavailable = errors.New("model provider unavailable")
	// ErrUpstream indicates the provider call itself failed.
	ErrUpstream = errors.New("model provider call failed")
)
