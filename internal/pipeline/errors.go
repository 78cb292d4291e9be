package pipeline

import "fmt"

// InvalidInputError reports malformed input, detected before any I/O side
// effects. Always fatal to the run.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// ExtractionError reports a failed extraction or crawl capability call.
// Fatal to the run: there is no document to proceed with.
type ExtractionError struct {
	Op  string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed (%s): %v", e.Op, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ResourceFetchError reports a single embedded resource that could not be
// fetched or published. Non-fatal: the resource is omitted and the run
// degrades to partial failure.
type ResourceFetchError struct {
	Locator string
	Err     error
}

func (e *ResourceFetchError) Error() string {
	return fmt.Sprintf("resource %s: %v", e.Locator, e.Err)
}

func (e *ResourceFetchError) Unwrap() error { return e.Err }
