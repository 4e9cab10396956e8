package model

import "time"

// Evaluation is one durable record of a chapter evaluation run. It is
// written once after the run fully completes and never updated.
type Evaluation struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Provider string `json:"provider"`
	Model    string `json:"model"`
	Lang     string `json:"lang"`
	Rounds   int    `json:"rounds"`

	// Token counts are whitespace-split estimates, for display only.
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`

	ChapterText string         `json:"chapter_text"`
	FinalText   string         `json:"final_text"`
	FinalJSON   map[string]any `json:"final_json,omitempty"`
}

// EvaluationSummary is the search result shape. Both the vector path and the
// substring fallback return it; consumers cannot tell the paths apart.
type EvaluationSummary struct {
	ID        int64          `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Provider  string         `json:"provider"`
	Model     string         `json:"model"`
	Lang      string         `json:"lang"`
	Rounds    int            `json:"rounds"`
	FinalText string         `json:"final_text"`
	FinalJSON map[string]any `json:"final_json,omitempty"`
}
