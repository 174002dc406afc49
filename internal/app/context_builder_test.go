package app

import (
	"reflect"
	"strings"
	"testing"

	"aitutor-server/internal/ai"
	"aitutor-server/internal/model"
)

func TestBuildConversationContextEmptySession(t *testing.T) {
	newTurn := ai.ChatMessage{Role: "user", Content: "hi"}

	got := BuildConversationContext(nil, &model.Session{}, newTurn)

	want := []ai.ChatMessage{newTurn}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("context = %+v, want %+v", got, want)
	}
}

func TestBuildConversationContextNilSession(t *testing.T) {
	newTurn := ai.ChatMessage{Role: "user", Content: "hi"}

	got := BuildConversationContext(nil, nil, newTurn)
	if len(got) != 1 || got[0] != newTurn {
		t.Errorf("context = %+v, want only the new turn", got)
	}
}

func TestBuildConversationContextMemoryBlockFirst(t *testing.T) {
	session := &model.Session{
		LatestFileName: "syllabus.pdf",
		LatestFileText: "X",
	}
	history := []model.Message{
		{IsUser: true, Content: "a", MessageType: model.MessageTypeText},
		{IsUser: false, Content: "b", MessageType: model.MessageTypeText},
	}
	newTurn := ai.ChatMessage{Role: "user", Content: "c"}

	got := BuildConversationContext(history, session, newTurn)

	if len(got) != 4 {
		t.Fatalf("context has %d entries, want 4", len(got))
	}
	memory := got[0]
	if memory.Role != "user" {
		t.Errorf("memory block role = %q, want user", memory.Role)
	}
	if !strings.Contains(memory.Content, "syllabus.pdf") {
		t.Errorf("memory block missing file name: %q", memory.Content)
	}
	if !strings.Contains(memory.Content, "Begin File Content") ||
		!strings.Contains(memory.Content, "End File Content") {
		t.Errorf("memory block missing delimiters: %q", memory.Content)
	}
	if !strings.Contains(memory.Content, "X") {
		t.Errorf("memory block missing file text: %q", memory.Content)
	}

	rest := got[1:]
	want := []ai.ChatMessage{
		{Role: "user", Content: "a"},
		{Role: "assistant", Content: "b"},
		{Role: "user", Content: "c"},
	}
	if !reflect.DeepEqual(rest, want) {
		t.Errorf("history entries = %+v, want %+v", rest, want)
	}
}

func TestBuildConversationContextFileMessageMapping(t *testing.T) {
	history := []model.Message{
		{
			IsUser:      true,
			Content:     "look at this",
			MessageType: model.MessageTypeFile,
			File: model.FileAttachment{
				OriginalName:  "notes.txt",
				ExtractedText: "hello world",
			},
		},
	}
	newTurn := ai.ChatMessage{Role: "user", Content: "summarize"}

	got := BuildConversationContext(history, &model.Session{}, newTurn)

	if len(got) != 2 {
		t.Fatalf("context has %d entries, want 2", len(got))
	}
	if got[0].Role != "user" {
		t.Errorf("file entry role = %q, want user", got[0].Role)
	}
	wantContent := "Uploaded File: notes.txt\n\nhello world"
	if got[0].Content != wantContent {
		t.Errorf("file entry content = %q, want %q", got[0].Content, wantContent)
	}
}

func TestBuildConversationContextFileMessageUnknownName(t *testing.T) {
	history := []model.Message{
		{IsUser: true, MessageType: model.MessageTypeFile, File: model.FileAttachment{ExtractedText: "body"}},
	}

	got := BuildConversationContext(history, &model.Session{}, ai.ChatMessage{Role: "user", Content: "q"})
	if !strings.HasPrefix(got[0].Content, "Uploaded File: Unknown\n\n") {
		t.Errorf("file entry content = %q, want Unknown fallback", got[0].Content)
	}
}

func TestBuildConversationContextMemoryReflectsCurrentPointer(t *testing.T) {
	// The memory block comes from the session's latest file, not from where
	// an older upload sits in history.
	session := &model.Session{
		LatestFileName: "second.pdf",
		LatestFileText: "newer content",
	}
	history := []model.Message{
		{
			IsUser:      true,
			MessageType: model.MessageTypeFile,
			File:        model.FileAttachment{OriginalName: "first.pdf", ExtractedText: "older content"},
		},
		{IsUser: false, Content: "got it", MessageType: model.MessageTypeText},
	}

	got := BuildConversationContext(history, session, ai.ChatMessage{Role: "user", Content: "next"})

	if !strings.Contains(got[0].Content, "second.pdf") {
		t.Errorf("memory block = %q, want it built from second.pdf", got[0].Content)
	}
	if !strings.Contains(got[1].Content, "first.pdf") {
		t.Errorf("history entry = %q, want inline first.pdf mapping preserved", got[1].Content)
	}
}

func TestBuildConversationContextIdempotent(t *testing.T) {
	session := &model.Session{LatestFileName: "f.txt", LatestFileText: "body"}
	history := []model.Message{
		{IsUser: true, Content: "a", MessageType: model.MessageTypeText},
		{IsUser: false, Content: "b", MessageType: model.MessageTypeText},
	}
	newTurn := ai.ChatMessage{Role: "user", Content: "c"}

	first := BuildConversationContext(history, session, newTurn)
	second := BuildConversationContext(history, session, newTurn)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated builds differ:\n%+v\n%+v", first, second)
	}
}
