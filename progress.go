package paperdash

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"github.com/jason-riddle/paperdash/internal/metrics"
)

// ErrCancelled is reported by a Session closed through Cancel.
var ErrCancelled = errors.New("progress session cancelled")

// ErrStreamClosed means the server ended the stream before the terminal
// event.
var ErrStreamClosed = errors.New("stream closed before completion")

// SessionState is the lifecycle state of a progress Session.
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionOpen
	SessionProgressing
	SessionCompleted
	SessionFailed
	SessionCancelled
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionOpen:
		return "open"
	case SessionProgressing:
		return "progressing"
	case SessionCompleted:
		return "completed"
	case SessionFailed:
		return "failed"
	case SessionCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// Terminal reports whether no further transitions are possible.
func (s SessionState) Terminal() bool {
	return s == SessionCompleted || s == SessionFailed || s == SessionCancelled
}

// Handlers receive the events of a Session. Any of them may be nil.
// Handlers run on the goroutine consuming the stream. A Cancel from another
// goroutine does not interrupt a handler call already being dispatched, so
// one in-flight event may still arrive.
type Handlers struct {
	OnProgress func(ProgressEvent) // every event with progress < 100
	OnComplete func(ProgressEvent) // the terminal event, once
	OnError    func(error)         // parse or transport failure, once
}

// Session is one add-paper progress stream. A Session is consumed once,
// either through Events or Run.
type Session struct {
	mu      sync.Mutex
	state   SessionState
	err     error
	result  *ProgressEvent
	scanner *SSEScanner

	body      io.Closer
	stop      context.CancelFunc
	closeOnce sync.Once
	ctx       context.Context
	logger    *slog.Logger
}

// AddPaper opens the add-paper progress stream for req. The stream is not
// subject to the client timeout; it ends with the terminal event, an error,
// or Cancel.
func (c *Client) AddPaper(ctx context.Context, req AddPaperRequest) (*Session, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	fullURL, err := c.buildURL(addPaperPath, url.Values{
		"title":   {req.Title},
		"pdf_url": {req.PDFURL},
	})
	if err != nil {
		return nil, wrapError(err, "AddPaper")
	}

	ctx, stop := context.WithCancel(ctx)
	httpReq, err := http.NewRequestWithContext(ctx, "GET", fullURL, nil)
	if err != nil {
		stop()
		return nil, fmt.Errorf("AddPaper: create request: %w", err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-Id", requestID)

	streamClient := *c.httpClient
	streamClient.Timeout = 0

	metrics.RequestsTotal.Add(1)
	resp, err := streamClient.Do(httpReq)
	if err != nil {
		stop()
		metrics.RequestErrorsTotal.Add(1)
		return nil, wrapError(classifyDoError(err, 0), "AddPaper")
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		stop()
		metrics.RequestErrorsTotal.Add(1)
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &Error{Op: "AddPaper", StatusCode: resp.StatusCode, Message: string(data)}
	}

	metrics.SessionsStarted.Add(1)
	c.logger.DebugContext(ctx, "progress stream opened", "url", fullURL, "request_id", requestID)
	return &Session{
		state:   SessionOpen,
		scanner: NewSSEScanner(resp.Body),
		body:    resp.Body,
		stop:    stop,
		ctx:     ctx,
		logger:  c.logger,
	}, nil
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error that ended the session: nil after completion,
// ErrCancelled after Cancel, a *ParseError or *TransportError otherwise.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Result returns the terminal event, or nil if the session has not
// completed.
func (s *Session) Result() *ProgressEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Cancel closes the stream without reporting anything. It is idempotent and
// has no effect once the session reached a terminal state.
func (s *Session) Cancel() {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.state = SessionCancelled
	s.err = ErrCancelled
	s.mu.Unlock()

	s.close()
	metrics.SessionsCancelled.Add(1)
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.stop()
		s.body.Close()
	})
}

// fail moves the session to SessionFailed unless it already ended.
func (s *Session) fail(err error) bool {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return false
	}
	s.state = SessionFailed
	s.err = err
	s.mu.Unlock()

	s.close()
	metrics.SessionsFailed.Add(1)
	s.logger.Debug("progress stream failed", "error", err)
	return true
}

// next reads the next progress event. It returns false once the session has
// ended; Err then tells why. The connection is closed before the terminal
// event is returned.
func (s *Session) next() (ProgressEvent, bool) {
	for {
		if s.State().Terminal() {
			return ProgressEvent{}, false
		}

		if !s.scanner.Next() {
			readErr := s.scanner.Err()
			if s.ctx.Err() != nil && s.State() != SessionCancelled {
				// The caller's context ended: treat it as a cancellation.
				s.Cancel()
				return ProgressEvent{}, false
			}
			if readErr == nil {
				readErr = ErrStreamClosed
			}
			s.fail(&TransportError{Op: "AddPaper", Err: readErr})
			return ProgressEvent{}, false
		}

		raw := s.scanner.Event()
		if raw.Type != "" && raw.Type != "message" {
			continue
		}

		var ev ProgressEvent
		if err := json.Unmarshal([]byte(raw.Data), &ev); err != nil {
			s.fail(&ParseError{Op: "AddPaper", Data: truncate(raw.Data, 256), Err: err})
			return ProgressEvent{}, false
		}
		if ev.Progress < 0 || ev.Progress > 100 {
			s.fail(&ParseError{Op: "AddPaper", Data: truncate(raw.Data, 256), Err: fmt.Errorf("progress %d out of range", ev.Progress)})
			return ProgressEvent{}, false
		}

		s.mu.Lock()
		if s.state.Terminal() {
			s.mu.Unlock()
			return ProgressEvent{}, false
		}
		if ev.Terminal() {
			s.state = SessionCompleted
			result := ev
			s.result = &result
		} else {
			s.state = SessionProgressing
		}
		s.mu.Unlock()

		if ev.Terminal() {
			s.close()
			metrics.SessionsCompleted.Add(1)
		}
		return ev, true
	}
}

// Events returns the progress events in arrival order. The sequence ends
// after the terminal event, on error, or on Cancel; check Err afterwards.
// Stopping the iteration early cancels the session.
func (s *Session) Events() iter.Seq[ProgressEvent] {
	return func(yield func(ProgressEvent) bool) {
		for {
			ev, ok := s.next()
			if !ok {
				return
			}
			if !yield(ev) {
				s.Cancel()
				return
			}
			if ev.Terminal() {
				return
			}
		}
	}
}

// Run consumes the session, invoking h for each event. It returns the
// terminal event on completion. After Cancel no handler is invoked and Run
// returns ErrCancelled.
func (s *Session) Run(h Handlers) (*ProgressEvent, error) {
	for ev := range s.Events() {
		if ev.Terminal() {
			if h.OnComplete != nil {
				h.OnComplete(ev)
			}
			return &ev, nil
		}
		if h.OnProgress != nil && s.State() != SessionCancelled {
			h.OnProgress(ev)
		}
	}

	err := s.Err()
	if err == nil || errors.Is(err, ErrCancelled) {
		return nil, ErrCancelled
	}
	if h.OnError != nil {
		h.OnError(err)
	}
	return nil, err
}

// StartAddPaper opens the add-paper stream in the background and reports
// through h. The returned cancel function closes the stream silently; it
// is safe to call more than once and after completion. Once connecting has
// failed and OnError is due, cancel has no effect. Only input
// validation errors are returned directly, before any connection is made.
func (c *Client) StartAddPaper(ctx context.Context, req AddPaperRequest, h Handlers) (cancel func(), err error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, stop := context.WithCancel(ctx)
	var (
		mu        sync.Mutex
		session   *Session
		cancelled bool
		failed    bool // connecting failed; OnError owns the outcome
	)
	cancel = func() {
		mu.Lock()
		if failed {
			mu.Unlock()
			stop()
			return
		}
		cancelled = true
		s := session
		mu.Unlock()
		if s != nil {
			s.Cancel()
		}
		stop()
	}

	go func() {
		defer stop()
		s, err := c.AddPaper(ctx, req)
		mu.Lock()
		if cancelled {
			mu.Unlock()
			if s != nil {
				s.Cancel()
			}
			return
		}
		session = s
		failed = err != nil
		mu.Unlock()

		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			return
		}
		s.Run(h)
	}()

	return cancel, nil
}
