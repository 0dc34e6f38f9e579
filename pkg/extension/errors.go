package extension

import "errors"

// The five recoverable error kinds. They indicate an unacceptable
// uploaded package and are meant to be reported back to the uploader;
// any other failure in this package is an internal fault and is
// propagated unwrapped.
var (
	// ErrPayloadTooLarge is returned when the package exceeds the size limit.
	ErrPayloadTooLarge = errors.New("extension: package exceeds the size limit")
	// ErrMalformedArchive is returned when the upload is not a readable zip file.
	ErrMalformedArchive = errors.New("extension: could not read zip file")
	// ErrTruncatedInput is returned when the upload stream ends prematurely.
	ErrTruncatedInput = errors.New("extension: could not read from input stream")
	// ErrManifestMissing is returned when extension/package.json is absent.
	ErrManifestMissing = errors.New("extension: entry not found")
	// ErrManifestInvalid is returned when a manifest entry holds invalid JSON.
	ErrManifestInvalid = errors.New("extension: invalid JSON format")
)

// IsUserError reports whether err is one of the recoverable kinds that
// should be surfaced to the uploader rather than logged as internal.
func IsUserError(err error) bool {
	return errors.Is(err, ErrPayloadTooLarge) ||
		errors.Is(err, ErrMalformedArchive) ||
		errors.Is(err, ErrTruncatedInput) ||
		errors.Is(err, ErrManifestMissing) ||
		errors.Is(err, ErrManifestInvalid)
}
