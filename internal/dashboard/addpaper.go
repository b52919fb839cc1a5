package dashboard

import (
	"context"
	"errors"
	"sync"

	"github.com/jason-riddle/paperdash"
)

// ErrSubmissionInFlight is returned by Submit while an earlier submission is
// still streaming progress.
var ErrSubmissionInFlight = errors.New("a paper submission is already in progress")

// PaperAdder opens add-paper progress streams.
type PaperAdder interface {
	AddPaper(ctx context.Context, req paperdash.AddPaperRequest) (*paperdash.Session, error)
}

// FormState is what the add-paper form shows.
type FormState struct {
	Submitting bool
	Progress   int
	Message    string
	Paper      *paperdash.Paper // set after completion
	Err        error            // set after a failure
}

// AddPaperForm submits papers one at a time and tracks the progress of the
// current submission.
type AddPaperForm struct {
	api PaperAdder

	mu      sync.Mutex
	state   FormState
	session *paperdash.Session
	gen     uint64 // bumped by every Submit and Cancel
}

// NewAddPaperForm creates the form.
func NewAddPaperForm(api PaperAdder) *AddPaperForm {
	return &AddPaperForm{api: api}
}

// State returns the form state.
func (f *AddPaperForm) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Submit validates req, opens the progress stream and consumes it in the
// background, forwarding events to h. The form accepts a new submission
// once the stream completes, fails or is cancelled. h may be zero.
func (f *AddPaperForm) Submit(ctx context.Context, req paperdash.AddPaperRequest, h paperdash.Handlers) error {
	if err := req.Validate(); err != nil {
		return err
	}

	f.mu.Lock()
	if f.state.Submitting {
		f.mu.Unlock()
		return ErrSubmissionInFlight
	}
	f.state = FormState{Submitting: true, Message: "connecting"}
	f.gen++
	gen := f.gen
	f.mu.Unlock()

	s, err := f.api.AddPaper(ctx, req)

	f.mu.Lock()
	if gen != f.gen {
		// Cancelled while connecting, possibly followed by a newer Submit.
		f.mu.Unlock()
		if s != nil {
			s.Cancel()
		}
		return paperdash.ErrCancelled
	}
	if err != nil {
		f.state = FormState{Err: err}
		f.mu.Unlock()
		return err
	}
	f.session = s
	f.mu.Unlock()

	go f.run(s, h)
	return nil
}

func (f *AddPaperForm) run(s *paperdash.Session, h paperdash.Handlers) {
	s.Run(paperdash.Handlers{
		OnProgress: func(ev paperdash.ProgressEvent) {
			if !f.record(s, func(st *FormState) {
				st.Progress = ev.Progress
				st.Message = ev.Message
			}) {
				return
			}
			if h.OnProgress != nil {
				h.OnProgress(ev)
			}
		},
		OnComplete: func(ev paperdash.ProgressEvent) {
			if !f.finish(s, FormState{Progress: ev.Progress, Message: ev.Message, Paper: ev.Paper}) {
				return
			}
			if h.OnComplete != nil {
				h.OnComplete(ev)
			}
		},
		OnError: func(err error) {
			if !f.finish(s, FormState{Err: err}) {
				return
			}
			if h.OnError != nil {
				h.OnError(err)
			}
		},
	})
}

// record applies change if s is still the current session.
func (f *AddPaperForm) record(s *paperdash.Session, change func(*FormState)) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session != s {
		return false
	}
	change(&f.state)
	return true
}

// finish ends the current submission if it is s.
func (f *AddPaperForm) finish(s *paperdash.Session, final FormState) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session != s {
		return false
	}
	f.session = nil
	f.state = final
	return true
}

// Cancel abandons the current submission without reporting anything and
// re-enables the form. It is a no-op when nothing is being submitted.
func (f *AddPaperForm) Cancel() {
	f.mu.Lock()
	s := f.session
	f.session = nil
	f.gen++
	if f.state.Submitting {
		f.state = FormState{}
	}
	f.mu.Unlock()
	if s != nil {
		s.Cancel()
	}
}
