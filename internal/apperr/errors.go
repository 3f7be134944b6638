// Package apperr holds the error kinds shared by every layer of the service.
//
// Lower layers wrap one of the sentinels together with the underlying cause:
//
//	fmt.Errorf("%w: pin metadata: %w", apperr.ErrUpload, err)
//
// and callers branch with errors.Is. The HTTP layer maps kinds to status codes.
package apperr

import "errors"

var (
	// ErrConfiguration is a missing or invalid setting. Fatal at startup.
	ErrConfiguration = errors.New("configuration error")
	// ErrUpload is a pinning authorization or transfer failure.
	ErrUpload = errors.New("upload error")
	// ErrCollectionResolution means a referenced collection descriptor could not be used.
	ErrCollectionResolution = errors.New("collection resolution error")
	// ErrChainSubmission is a rejected transaction or a declined signature.
	ErrChainSubmission = errors.New("chain submission error")
	// ErrMetadataFetch is a per-asset metadata failure; it never aborts a listing.
	ErrMetadataFetch = errors.New("metadata fetch error")
	// ErrGeneration is an image generation failure upstream.
	ErrGeneration = errors.New("image generation error")

	ErrInvalidInput = errors.New("invalid input")
	ErrNoSession    = errors.New("no active signing session")
	ErrNotFound     = errors.New("not found")
	ErrConfirmation = errors.New("confirmation error")
	ErrIndex        = errors.New("index query error")
)

var kinds = []error{
	ErrConfiguration,
	ErrUpload,
	ErrCollectionResolution,
	ErrChainSubmission,
	ErrMetadataFetch,
	ErrGeneration,
	ErrInvalidInput,
	ErrNoSession,
	ErrNotFound,
	ErrConfirmation,
	ErrIndex,
}

// Kind returns the first sentinel err wraps, or nil for unclassified errors.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
