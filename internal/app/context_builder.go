package app

import (
	"fmt"

	"aitutor-server/internal/ai"
	"aitutor-server/internal/model"
)

// fileMemoryTemplate pins the session's most recent upload ahead of the
// chat history on every completion request, so the document stays in reach
// no matter how long the conversation grows afterwards.
const fileMemoryTemplate = `Previously uploaded file: %s

------------------ Begin File Content ------------------
%s
------------------- End File Content ------------------

Please use this file as context for this and future questions.`

// BuildConversationContext turns a session's persisted history into the
// ordered role-tagged entries sent to the completion service:
//
//  1. if the session has file memory, one synthetic user entry built from
//     the current latest file comes first — rebuilt fresh per request, never
//     persisted, and independent of where that file sits in history;
//  2. every stored message follows in creation order, file messages mapped
//     to an "Uploaded File" entry carrying name and extracted text;
//  3. the new turn goes last.
//
// A session with no history and no file memory yields just the new turn.
func BuildConversationContext(history []model.Message, session *model.Session, newTurn ai.ChatMessage) []ai.ChatMessage {
	entries := make([]ai.ChatMessage, 0, len(history)+2)

	if session.HasLatestFile() {
		entries = append(entries, fileMemoryBlock(session.LatestFileName, session.LatestFileText))
	}
	for i := range history {
		entries = append(entries, historyEntry(&history[i]))
	}
	return append(entries, newTurn)
}

func fileMemoryBlock(name, content string) ai.ChatMessage {
	return ai.ChatMessage{
		Role:    "user",
		Content: fmt.Sprintf(fileMemoryTemplate, name, content),
	}
}

func historyEntry(msg *model.Message) ai.ChatMessage {
	if msg.IsFile() {
		name := msg.File.OriginalName
		if name == "" {
			name = "Unknown"
		}
		return ai.ChatMessage{
			Role:    "user",
			Content: fmt.Sprintf("Uploaded File: %s\n\n%s", name, msg.File.ExtractedText),
		}
	}
	role := "assistant"
	if msg.IsUser {
		role = "user"
	}
	return ai.ChatMessage{Role: role, Content: msg.Content}
}
