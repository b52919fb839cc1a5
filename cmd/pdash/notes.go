package main

import (
	"context"
	"errors"
	"strings"

	"github.com/jason-riddle/paperdash"
)

func (a *app) notes(ctx context.Context, args []string) error {
	verb, args, err := subcommand(args, "notes", "list", "add", "edit", "delete", "ask")
	if err != nil {
		return err
	}

	switch verb {
	case "list":
		if len(args) != 1 {
			return errors.New("usage: pdash notes list <paper-id>")
		}
		notes, err := a.client.ListNotes(ctx, args[0])
		if err != nil {
			return err
		}
		if notes == nil {
			notes = []paperdash.Note{}
		}
		t := &tableData{headers: []string{"ID", "Date", "Text"}}
		for _, n := range notes {
			t.rows = append(t.rows, []string{n.NoteID, day(n.Timestamp), firstLine(n.Text)})
		}
		return a.print(notes, t)

	case "add":
		if len(args) < 2 {
			return errors.New("usage: pdash notes add <paper-id> <text>")
		}
		note, err := a.client.CreateNote(ctx, args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		return a.printJSON(note)

	case "edit":
		if len(args) < 3 {
			return errors.New("usage: pdash notes edit <paper-id> <note-id> <text>")
		}
		note, err := a.client.UpdateNote(ctx, args[0], args[1], strings.Join(args[2:], " "))
		if err != nil {
			return err
		}
		return a.printJSON(note)

	case "delete":
		if len(args) != 1 {
			return errors.New("usage: pdash notes delete <note-id>")
		}
		if err := a.client.DeleteNote(ctx, args[0]); err != nil {
			return err
		}
		return a.printJSON(map[string]string{"deleted": args[0]})

	default:
		if len(args) < 2 {
			return errors.New("usage: pdash notes ask <note-id> <question>")
		}
		note, err := a.client.AskAgent(ctx, args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		return a.printJSON(note)
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
