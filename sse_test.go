package paperdash

import (
	"errors"
	"strings"
	"testing"
)

func TestSSEScanner(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []SSEEvent
	}{
		{
			name:  "single event",
			input: "data: {\"progress\":10}\n\n",
			want:  []SSEEvent{{Data: `{"progress":10}`}},
		},
		{
			name:  "multi-line data",
			input: "data: line one\ndata: line two\n\n",
			want:  []SSEEvent{{Data: "line one\nline two"}},
		},
		{
			name:  "event type and id",
			input: "event: progress\nid: 7\ndata: x\n\nid: 8\ndata: y\n\n",
			want:  []SSEEvent{{Type: "progress", ID: "7", Data: "x"}, {ID: "8", Data: "y"}},
		},
		{
			name:  "comments and retry ignored",
			input: ": keep-alive\nretry: 3000\ndata: z\n\n",
			want:  []SSEEvent{{Data: "z"}},
		},
		{
			name:  "CRLF line endings",
			input: "data: a\r\n\r\ndata: b\r\n\r\n",
			want:  []SSEEvent{{Data: "a"}, {Data: "b"}},
		},
		{
			name:  "final event without blank line",
			input: "data: last",
			want:  []SSEEvent{{Data: "last"}},
		},
		{
			name:  "blank lines without data",
			input: "\n\nevent: ping\n\ndata: real\n\n",
			want:  []SSEEvent{{Data: "real"}},
		},
		{
			name:  "value without space",
			input: "data:tight\n\n",
			want:  []SSEEvent{{Data: "tight"}},
		},
		{
			name:  "empty stream",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSSEScanner(strings.NewReader(tt.input))
			var got []SSEEvent
			for s.Next() {
				got = append(got, s.Event())
			}
			if err := s.Err(); err != nil {
				t.Fatalf("Err() = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("events = %+v, want %+v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("event %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestSSEScanner_ReadError(t *testing.T) {
	cause := errors.New("connection reset")
	s := NewSSEScanner(failingReader{err: cause})
	if s.Next() {
		t.Fatal("Next() = true on a failing reader")
	}
	if !errors.Is(s.Err(), cause) {
		t.Errorf("Err() = %v, want %v", s.Err(), cause)
	}
	if s.Next() {
		t.Error("Next() = true after an error")
	}
}
