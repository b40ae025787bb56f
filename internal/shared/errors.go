package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Import errors
	ErrUnsupportedFormat = fmt.Errorf("unsupported file format")
	ErrNoSlidesFound     = fmt.Errorf("no slides found")
	ErrImportFailed      = fmt.Errorf("import failed")
	ErrImportInProgress  = fmt.Errorf("an import is already in progress")

	// Export and presentation errors
	ErrExportFailed       = fmt.Errorf("export failed")
	ErrEmptyDeck          = fmt.Errorf("deck has no slides")
	ErrDisplayUnavailable = fmt.Errorf("display unavailable")

	// Lookup and service errors
	ErrLookupFailed       = fmt.Errorf("lyrics lookup failed")
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Persistence errors
	ErrPersistenceUnavailable = fmt.Errorf("persistence unavailable")
	ErrPresentationNotFound   = fmt.Errorf("presentation not found")
	ErrTemplateNotFound       = fmt.Errorf("template not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
