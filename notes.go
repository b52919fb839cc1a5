package paperdash

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"
)

const (
	notesSelectPath = "/api/v1/academic-paper/paper-note/select"
	notesCreatePath = "/api/v1/academic-paper/paper-note/create"
	notesUpdatePath = "/api/v1/academic-paper/paper-note/update"
	notesDeletePath = "/api/v1/academic-paper/paper-note/delete"
	notesAskPath    = "/api/v1/academic-paper/paper-note/ask-to-agent"
)

var errMissingNote = errors.New("response has no paper_note")

type noteListResponse struct {
	Notes []Note `json:"paper_notes"`
}

type noteResponse struct {
	Note *Note `json:"paper_note"`
}

type noteWriteRequest struct {
	NoteID    string `json:"paper_note_id,omitempty"`
	PaperID   string `json:"paper_id"`
	Text      string `json:"text"`
	Timestamp Date   `json:"note_timestamp"`
}

type noteDeleteRequest struct {
	NoteID string `json:"paper_note_id"`
}

type askAgentRequest struct {
	NoteID string `json:"paper_note_id"`
	Query  string `json:"query"`
}

// ListNotes retrieves the notes attached to a paper.
func (c *Client) ListNotes(ctx context.Context, paperID string) ([]Note, error) {
	if paperID == "" {
		return nil, &ValidationError{Field: "paper_id", Message: "must not be empty"}
	}
	fullURL, err := c.buildURL(notesSelectPath, url.Values{"paper_id": {paperID}})
	if err != nil {
		return nil, wrapError(err, "ListNotes")
	}

	var result noteListResponse
	if err := c.doRequestWithURL(ctx, "GET", fullURL, nil, &result); err != nil {
		return nil, wrapError(err, "ListNotes")
	}
	return result.Notes, nil
}

// CreateNote attaches a new note to a paper. The note is stamped with
// today's date.
func (c *Client) CreateNote(ctx context.Context, paperID, text string) (*Note, error) {
	if paperID == "" {
		return nil, &ValidationError{Field: "paper_id", Message: "must not be empty"}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &ValidationError{Field: "text", Message: "must not be empty"}
	}

	body := noteWriteRequest{PaperID: paperID, Text: text, Timestamp: today()}
	var result noteResponse
	if err := c.doRequest(ctx, "POST", notesCreatePath, body, &result); err != nil {
		return nil, wrapError(err, "CreateNote")
	}
	if result.Note == nil {
		return nil, &ParseError{Op: "CreateNote", Err: errMissingNote}
	}
	return result.Note, nil
}

// UpdateNote replaces the text of an existing note.
func (c *Client) UpdateNote(ctx context.Context, paperID, noteID, text string) (*Note, error) {
	if noteID == "" {
		return nil, &ValidationError{Field: "paper_note_id", Message: "must not be empty"}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &ValidationError{Field: "text", Message: "must not be empty"}
	}

	body := noteWriteRequest{NoteID: noteID, PaperID: paperID, Text: text, Timestamp: today()}
	var result noteResponse
	if err := c.doRequest(ctx, "PUT", notesUpdatePath, body, &result); err != nil {
		return nil, wrapError(err, "UpdateNote")
	}
	if result.Note == nil {
		// Older servers acknowledge without echoing the note.
		return &Note{NoteID: noteID, PaperID: paperID, Text: text, Timestamp: body.Timestamp}, nil
	}
	return result.Note, nil
}

// DeleteNote removes a note.
func (c *Client) DeleteNote(ctx context.Context, noteID string) error {
	if noteID == "" {
		return &ValidationError{Field: "paper_note_id", Message: "must not be empty"}
	}
	if err := c.doRequest(ctx, "DELETE", notesDeletePath, noteDeleteRequest{NoteID: noteID}, nil); err != nil {
		return wrapError(err, "DeleteNote")
	}
	return nil
}

// AskAgent sends a question about a note to the language-model agent. The
// returned note replaces the original: its text is the agent's answer.
func (c *Client) AskAgent(ctx context.Context, noteID, query string) (*Note, error) {
	if noteID == "" {
		return nil, &ValidationError{Field: "paper_note_id", Message: "must not be empty"}
	}
	if strings.TrimSpace(query) == "" {
		return nil, &ValidationError{Field: "query", Message: "must not be empty"}
	}

	var result Note
	if err := c.doRequest(ctx, "POST", notesAskPath, askAgentRequest{NoteID: noteID, Query: query}, &result); err != nil {
		return nil, wrapError(err, "AskAgent")
	}
	return &result, nil
}

func today() Date {
	y, m, d := time.Now().UTC().Date()
	return Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}
