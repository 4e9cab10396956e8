package model

import "encoding/json"

// SpeakerUser is the speaker name of the injected initial task message.
const SpeakerUser = "user"

// Message is a single entry of a conversation transcript. Every completion
// client populates both fields uniformly; downstream code never probes
// alternative field names.
type Message struct {
	Speaker string `json:"name"`
	Content string `json:"content"`
}

// Transcript is the ordered sequence of all messages produced during one
// evaluation run, starting with the injected task message.
type Transcript []Message

// FinalText returns the content of the last message, or an empty string for
// an empty transcript.
func (t Transcript) FinalText() string {
	if len(t) == 0 {
		return ""
	}
	return t[len(t)-1].Content
}

// FinalJSON attempts a strict JSON decode of the final message content into
// an object. A nil result is routine, not exceptional: plain prose, malformed
// JSON, and non-object documents all degrade to nil.
func (t Transcript) FinalJSON() map[string]any {
	text := t.FinalText()
	if text == "" {
		return nil
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil
	}
	return doc
}
