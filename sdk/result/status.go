// Package result carries the outcome of every client operation: a closed set
// of status codes, a generic Result value, immutable Error records and the
// bounded error history a session keeps.
package result

import (
	"fmt"
	"slices"
)

// Status is the outcome code of an operation.
type Status int

const (
	StatusUnknownError      Status = -1
	StatusSuccess           Status = 0
	StatusNotConnected      Status = 1
	StatusSocketError       Status = 2
	StatusXMLParseError     Status = 3
	StatusElementNotFound   Status = 4
	StatusIOError           Status = 5
	StatusInputError        Status = 6
	StatusClientException   Status = 7
	StatusServerUnknownURI  Status = 8
	StatusServerUnsupported Status = 9
	StatusServerError       Status = 10
	StatusBatchUnsupported  Status = 11
)

type statusInfo struct {
	name    string
	message string
}

var statuses = map[Status]statusInfo{
	StatusUnknownError:      {"UnknownError", "Unknown error."},
	StatusSuccess:           {"Success", "The operation completed successfully."},
	StatusNotConnected:      {"NotConnected", "The oBIX client is not connected. Use Connect() before attempting any operations on it."},
	StatusSocketError:       {"SocketError", "The oBIX client encountered a socket error."},
	StatusXMLParseError:     {"XMLParseError", "The XML parser could not understand the XML document provided."},
	StatusElementNotFound:   {"ElementNotFound", "The XML parser could not find an element in the source document."},
	StatusIOError:           {"IOError", "The oBIX client received an I/O error."},
	StatusInputError:        {"InputError", "Parameter input error."},
	StatusClientException:   {"ClientException", "The oBIX client recovered from an unexpected failure."},
	StatusServerUnknownURI:  {"ServerUnknownURI", "The oBIX server returned an obix:BadUriErr error contract."},
	StatusServerUnsupported: {"ServerUnsupported", "The oBIX server returned an obix:UnsupportedErr error contract."},
	StatusServerError:       {"ServerError", "The oBIX server returned an oBIX error contract."},
	StatusBatchUnsupported:  {"BatchUnsupported", "The oBIX server does not expose a batch operation in its lobby."},
}

// StatusFromCode converts a raw code into a Status. The second result is
// false for codes outside the known set.
func StatusFromCode(code int) (Status, bool) {
	s := Status(code)
	_, ok := statuses[s]
	return s, ok
}

// Code returns the numeric value of s.
func (s Status) Code() int { return int(s) }

// Name returns a short identifier suitable for logs and metric labels.
func (s Status) Name() string {
	if info, ok := statuses[s]; ok {
		return info.name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Message returns the human readable description of s.
func (s Status) Message() string {
	if info, ok := statuses[s]; ok {
		return info.message
	}
	return fmt.Sprintf("Unknown error: %d", int(s))
}

func (s Status) String() string { return s.Message() }

// OK reports whether s is StatusSuccess.
func (s Status) OK() bool { return s == StatusSuccess }

// Is reports whether s equals any of the given statuses.
func (s Status) Is(others ...Status) bool { return slices.Contains(others, s) }

// IsServer reports whether s was derived from a server error contract.
func (s Status) IsServer() bool {
	return s.Is(StatusServerUnknownURI, StatusServerUnsupported, StatusServerError)
}

// Err returns nil for StatusSuccess and a StatusError otherwise.
func (s Status) Err() error {
	if s.OK() {
		return nil
	}
	return StatusError{Status: s}
}

// StatusError adapts a Status to the error interface.
type StatusError struct {
	Status Status
}

func (e StatusError) Error() string {
	return fmt.Sprintf("obix: %s (%d)", e.Status.Message(), e.Status.Code())
}
