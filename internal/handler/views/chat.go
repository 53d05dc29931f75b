package views

import (
	"html/template"
	"time"

	"github.com/pavelanni/reviewer/internal/model"
)

// Turn is a rendered chat transcript entry.
type Turn struct {
	User bool
	Text string
	HTML template.HTML
	At   time.Time
}

// NewTurns renders the transcript. Assistant turns are markdown.
func NewTurns(turns []model.ChatTurn) []Turn {
	out := make([]Turn, 0, len(turns))
	for _, t := range turns {
		rt := Turn{User: t.Role == model.RoleUser, Text: t.Content, At: t.CreatedAt}
		if !rt.User {
			rt.HTML = Markdown(t.Content)
		}
		out = append(out, rt)
	}
	return out
}

// QuickQuestion is a one-click chat prompt.
type QuickQuestion struct {
	Key     string
	LabelID string
}

// Chat is the data for the follow-up chat page.
type Chat struct {
	Header         Header
	Turns          []Turn
	QuickQuestions []QuickQuestion
	Flash          []string
}
