package contract

import "errors"

var (
	ErrUnknownAgent         = errors.New("unknown agent")
	ErrUnsupportedLanguage  = errors.New("unsupported language")
	ErrExtractorUnavailable = errors.New("extractor unavailable")
	ErrRendererUnavailable  = errors.New("voice renderer unavailable")
	ErrValidation           = errors.New("validation failed")
)
