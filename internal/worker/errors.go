package worker

import "errors"

// malformedError marks a failure caused by the message or its payload
// rather than by infrastructure. Malformed messages are acknowledged and
// dropped; everything else stays pending and is retried.
type malformedError struct {
	err error
}

func (e *malformedError) Error() string {
	return "malformed message: " + e.err.Error()
}

func (e *malformedError) Unwrap() error {
	return e.err
}

// MarkMalformed wraps an error as a poison-message failure.
func MarkMalformed(err error) error {
	if err == nil {
		return nil
	}
	return &malformedError{err: err}
}

// IsMalformed reports whether the error chain contains a poison-message
// failure.
func IsMalformed(err error) bool {
	var m *malformedError
	return errors.As(err, &m)
}
