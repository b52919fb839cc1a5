package dashboard

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/jason-riddle/paperdash"
)

// PaperGetter fetches one paper. *paperdash.Client and the cache wrapper
// both implement it.
type PaperGetter interface {
	GetPaper(ctx context.Context, id string) (*paperdash.Paper, error)
}

// NoteAPI is the note part of the client.
type NoteAPI interface {
	ListNotes(ctx context.Context, paperID string) ([]paperdash.Note, error)
	CreateNote(ctx context.Context, paperID, text string) (*paperdash.Note, error)
	UpdateNote(ctx context.Context, paperID, noteID, text string) (*paperdash.Note, error)
	DeleteNote(ctx context.Context, noteID string) error
	AskAgent(ctx context.Context, noteID, query string) (*paperdash.Note, error)
}

// PaperDetail is a paper with its notes.
type PaperDetail struct {
	Paper *paperdash.Paper
	Notes *NoteBook
}

// LoadPaperDetail fetches a paper and its notes.
func LoadPaperDetail(ctx context.Context, papers PaperGetter, notes NoteAPI, id string) (*PaperDetail, error) {
	p, err := papers.GetPaper(ctx, id)
	if err != nil {
		return nil, err
	}
	list, err := notes.ListNotes(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}
	return &PaperDetail{Paper: p, Notes: NewNoteBook(notes, id, list)}, nil
}

// NoteBook holds the notes of one paper. Local changes are applied only
// after the server accepted them.
type NoteBook struct {
	api     NoteAPI
	paperID string

	mu     sync.Mutex
	notes  []paperdash.Note
	drafts map[string]string // note id -> text being edited
}

// NewNoteBook creates a NoteBook holding notes.
func NewNoteBook(api NoteAPI, paperID string, notes []paperdash.Note) *NoteBook {
	return &NoteBook{
		api:     api,
		paperID: paperID,
		notes:   slices.Clone(notes),
		drafts:  make(map[string]string),
	}
}

// Notes returns the notes in display order.
func (b *NoteBook) Notes() []paperdash.Note {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.notes)
}

func (b *NoteBook) index(id string) int {
	return slices.IndexFunc(b.notes, func(n paperdash.Note) bool { return n.NoteID == id })
}

func emptyText(field string) error {
	return &paperdash.ValidationError{Field: field, Message: "must not be empty"}
}

// Add creates a note.
func (b *NoteBook) Add(ctx context.Context, text string) (*paperdash.Note, error) {
	if strings.TrimSpace(text) == "" {
		return nil, emptyText("text")
	}
	n, err := b.api.CreateNote(ctx, b.paperID, text)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.notes = append(b.notes, *n)
	b.mu.Unlock()
	return n, nil
}

// Edit replaces the text of a note.
func (b *NoteBook) Edit(ctx context.Context, id, text string) error {
	if strings.TrimSpace(text) == "" {
		return emptyText("text")
	}
	n, err := b.api.UpdateNote(ctx, b.paperID, id, text)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.index(id); i >= 0 {
		b.notes[i] = *n
	}
	delete(b.drafts, id)
	return nil
}

// Delete removes a note.
func (b *NoteBook) Delete(ctx context.Context, id string) error {
	if err := b.api.DeleteNote(ctx, id); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.index(id); i >= 0 {
		b.notes = slices.Delete(b.notes, i, i+1)
	}
	delete(b.drafts, id)
	return nil
}

// Ask sends query about a note to the agent and replaces the note with the
// agent's answer.
func (b *NoteBook) Ask(ctx context.Context, id, query string) (*paperdash.Note, error) {
	if strings.TrimSpace(query) == "" {
		return nil, emptyText("query")
	}
	n, err := b.api.AskAgent(ctx, id, query)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.index(id); i >= 0 {
		b.notes[i] = *n
	}
	return n, nil
}

// StartEdit opens an edit draft initialised with the note's text.
func (b *NoteBook) StartEdit(id string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.index(id)
	if i < 0 {
		return "", &paperdash.ValidationError{Field: "paper_note_id", Message: "unknown note " + id}
	}
	b.drafts[id] = b.notes[i].Text
	return b.notes[i].Text, nil
}

// SetDraft updates the text being edited.
func (b *NoteBook) SetDraft(id, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drafts[id] = text
}

// Draft returns the edit draft of a note.
func (b *NoteBook) Draft(id string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	text, ok := b.drafts[id]
	return text, ok
}

// SaveEdit sends the draft of a note.
func (b *NoteBook) SaveEdit(ctx context.Context, id string) error {
	text, ok := b.Draft(id)
	if !ok {
		return &paperdash.ValidationError{Field: "paper_note_id", Message: "no edit in progress for " + id}
	}
	return b.Edit(ctx, id, text)
}

// AbandonEdit discards the draft of a note. A note whose draft was left
// empty is deleted.
func (b *NoteBook) AbandonEdit(ctx context.Context, id string) error {
	text, ok := b.Draft(id)
	if ok && strings.TrimSpace(text) == "" {
		return b.Delete(ctx, id)
	}
	b.mu.Lock()
	delete(b.drafts, id)
	b.mu.Unlock()
	return nil
}
