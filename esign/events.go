package esign

import (
	"encoding/json"
	"errors"
	"strings"
)

const (
	// EventDocumentSigned is the provider's terminal signing event.
	EventDocumentSigned = "DOCUMENT_SIGNED"

	// consentSentinel is the reserved document id the provider uses for its
	// internal consent artifact; it never corresponds to a business document.
	consentSentinel = "default-consent"
)

// ErrEmptyEvent signals an empty or unparseable webhook body.
var ErrEmptyEvent = errors.New("esign: empty or malformed event payload")

// CompletionEvent is an inbound provider notification. All fields are
// optional strings on the wire; the event is consumed once and not persisted.
type CompletionEvent struct {
	Name        string `json:"name"`
	SessionUser string `json:"sessionUser"`
	PackageID   string `json:"packageId"`
	Message     string `json:"message"`
	DocumentID  string `json:"documentId"`
	CreatedDate string `json:"createdDate"`
}

// ParseCompletionEvent decodes a webhook body into a CompletionEvent.
func ParseCompletionEvent(body []byte) (CompletionEvent, error) {
	if len(body) == 0 {
		return CompletionEvent{}, ErrEmptyEvent
	}

	var ev CompletionEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return CompletionEvent{}, ErrEmptyEvent
	}
	return ev, nil
}

// Qualifies reports whether the event should trigger completion handling:
// a DOCUMENT_SIGNED event (case-insensitive) with a package id and a real
// document id. Anything else is a known no-op for this receiver.
func (e CompletionEvent) Qualifies() bool {
	if e.PackageID == "" || e.DocumentID == "" {
		return false
	}
	if !strings.EqualFold(e.Name, EventDocumentSigned) {
		return false
	}
	return !strings.EqualFold(e.DocumentID, consentSentinel)
}
