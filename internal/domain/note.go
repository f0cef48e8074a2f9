package domain

import "time"

// Note is a user-owned text document.
type Note struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Summary   *string   `json:"summary,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NoteUpdate carries the fields to change; nil leaves a field unchanged.
type NoteUpdate struct {
	Title   *string
	Content *string
}

// EstimateTokens approximates the LLM token count of text.
func EstimateTokens(text string) int64 {
	return int64(len(text) / 4)
}
