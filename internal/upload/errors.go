package upload

import "errors"

// Rejection kinds returned by the ingestion pipeline. Each one is terminal
// for the individual file: retrying a rejected file cannot change the
// outcome, since the file itself is the problem. Callers distinguish kinds
// with errors.Is; anything else coming out of the pipeline is a storage I/O
// failure and may be worth retrying as a whole request.
var (
	ErrUnsupportedCategory  = errors.New("unsupported upload category")
	ErrUnsupportedExtension = errors.New("file extension not allowed")
	ErrUnsupportedMimeType  = errors.New("declared mime type not allowed")
	ErrUnsafeFilename       = errors.New("unsafe filename")
	ErrFileTooLarge         = errors.New("file exceeds maximum allowed size")
	ErrSignatureMismatch    = errors.New("file content does not match declared type")
	ErrMaliciousContent     = errors.New("malicious content detected")
)

// rejections lists every validation rejection kind
var rejections = []error{
	ErrUnsupportedCategory,
	ErrUnsupportedExtension,
	ErrUnsupportedMimeType,
	ErrUnsafeFilename,
	ErrFileTooLarge,
	ErrSignatureMismatch,
	ErrMaliciousContent,
}

// IsRejection reports whether err is a validation rejection, as opposed to
// a storage I/O failure
func IsRejection(err error) bool {
	for _, kind := range rejections {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
