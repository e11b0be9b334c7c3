package email

import (
	"context"
	"errors"
	"sync"
)

// ErrInjected is returned by Recorder for addresses listed in FailFor.
var ErrInjected = errors.New("injected send failure")

// SentEmail is one call captured by Recorder.
type SentEmail struct {
	To         string
	Subject    string
	TemplateID string
	Data       map[string]string
}

// Recorder is an in-memory Sender for tests. Sends to addresses in FailFor
// fail with ErrInjected and are not recorded.
type Recorder struct {
	mu      sync.Mutex
	sent    []SentEmail
	FailFor map[string]bool
	Calls   int
}

func NewRecorder() *Recorder {
	return &Recorder{FailFor: make(map[string]bool)}
}

func (r *Recorder) Send(_ context.Context, to, subject, templateID string, data map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls++
	if r.FailFor[to] {
		return ErrInjected
	}
	r.sent = append(r.sent, SentEmail{To: to, Subject: subject, TemplateID: templateID, Data: data})
	return nil
}

// Sent returns the successful sends in call order.
func (r *Recorder) Sent() []SentEmail {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SentEmail(nil), r.sent...)
}

var _ Sender = (*Recorder)(nil)
