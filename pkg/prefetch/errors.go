package prefetch

import "errors"

// Sentinel errors for resolver configuration and resolution
var (
	// ErrInvalidConfig is returned when a Config fails validation
	ErrInvalidConfig = errors.New("invalid prefetch config")

	// ErrDuplicateModel is returned when two configs target the same entity type
	ErrDuplicateModel = errors.New("models have to be unique; list multiple attributes in one config instead")

	// ErrUnknownRelation is returned by models for relation names they do not map
	ErrUnknownRelation = errors.New("unknown relation")

	// ErrUnknownModel is returned when asking the resolver about a model it was not configured with
	ErrUnknownModel = errors.New("model not configured")
)

// IsInvalidConfig checks if an error is ErrInvalidConfig or ErrDuplicateModel
func IsInvalidConfig(err error) bool {
	return errors.Is(err, ErrInvalidConfig) || errors.Is(err, ErrDuplicateModel)
}

// IsUnknownRelation checks if an error is ErrUnknownRelation
func IsUnknownRelation(err error) bool {
	return errors.Is(err, ErrUnknownRelation)
}
