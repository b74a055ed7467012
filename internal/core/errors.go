package core

import "fmt"

// PlatformAPIError wraps a failed GitHub API call (listing files or comment CRUD).
type PlatformAPIError struct {
	Op  string
	Err error
}

func (e *PlatformAPIError) Error() string {
	return fmt.Sprintf("github %s: %v", e.Op, e.Err)
}

func (e *PlatformAPIError) Unwrap() error { return e.Err }

// ExtractionError is returned when the SQL of a migration could not be obtained.
type ExtractionError struct {
	Path   string
	Output string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("extracting queries from %s: %v: %s", e.Path, e.Err, e.Output)
	}
	return fmt.Sprintf("extracting queries from %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ReviewCallError covers a failed language model request as well as a
// response that does not conform to the review schema.
type ReviewCallError struct {
	Provider string
	Err      error
}

func (e *ReviewCallError) Error() string {
	return fmt.Sprintf("%s review call: %v", e.Provider, e.Err)
}

func (e *ReviewCallError) Unwrap() error { return e.Err }
