package service

import "errors"

// Failure classes surfaced to the operator. Service errors wrap one of these
// together with the underlying cause.
var (
	// ErrDownload is returned when an object cannot be fetched from storage.
	ErrDownload = errors.New("storage download failed")

	// ErrInvalidImage is returned when bytes do not decode as a JPEG or PNG image.
	ErrInvalidImage = errors.New("invalid image")

	// ErrSubmit is returned when the process-file call fails or yields no job id.
	ErrSubmit = errors.New("job submission failed")

	// ErrPoll is returned when the result call fails.
	ErrPoll = errors.New("job result request failed")

	// ErrIncomplete is returned when the single poll finds the job not completed.
	ErrIncomplete = errors.New("job not completed")

	// ErrExtraction is returned for any failure of the direct agent path.
	ErrExtraction = errors.New("extraction failed")
)
