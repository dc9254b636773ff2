package callapi

import (
	"errors"
	"fmt"
)

var errMissingConnectionID = errors.New("response carries no callConnectionId")

// RemoteError is returned when the call service answers with a non-success
// status. Body carries the error text the service returned.
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("call service status %d", e.Status)
	}
	return fmt.Sprintf("call service status %d: %s", e.Status, e.Body)
}

// NetworkError is returned when a request could not be sent or its response
// could not be read or parsed. No usable answer arrived from the service.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
