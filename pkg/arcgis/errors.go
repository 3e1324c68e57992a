package arcgis

import "fmt"

// TransportError is a network failure or non-2xx response. It always
// carries the failing URL. Transport errors are never retried
// automatically.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("arcgis: request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError is a response body that is not valid JSON. Callers treat
// it the same as a transport failure.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("arcgis: response from %s is not valid JSON: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
