// Package session holds the per-visitor record binding selections, the
// captured photo and the print outcome.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrMissingField is returned when an operation needs a field the visitor
// has not provided yet.
var ErrMissingField = errors.New("missing required field")

// ChoiceCount is the number of options per selection axis.
const ChoiceCount = 4

// Session is one kiosk interaction. Optional fields are pointers; nil means
// the visitor has not made that choice yet. PhotoPath is set exactly once by
// the capture step and CopiesPrinted only ever grows; both invariants are
// enforced by the Store, not by handler discipline.
type Session struct {
	ID            string  `json:"id"`
	GroupName     *string `json:"group_name,omitempty"`
	CreatedAt     string  `json:"created_at"`
	Weapon        *int    `json:"weapon,omitempty"`
	Land          *int    `json:"land,omitempty"`
	Companion     *int    `json:"companion,omitempty"`
	Email         *string `json:"email,omitempty"`
	PhotoPath     *string `json:"photo_path,omitempty"`
	CopiesPrinted int     `json:"copies_printed"`
	StoryText     *string `json:"story_text,omitempty"`
	Headline      *string `json:"headline,omitempty"`
}

// New creates an empty session with a fresh id and creation timestamp.
func New() *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// ValidateChoice checks a selection value against the axis range.
func ValidateChoice(name string, v int) error {
	if v < 0 || v >= ChoiceCount {
		return fmt.Errorf("%w: %s must be 0..%d, got %d", ErrMissingField, name, ChoiceCount-1, v)
	}
	return nil
}

// Complete reports whether every field needed for a finished card is set.
func (s *Session) Complete() bool {
	return s.GroupName != nil &&
		s.Weapon != nil &&
		s.Land != nil &&
		s.Companion != nil &&
		s.Email != nil &&
		s.PhotoPath != nil &&
		s.StoryText != nil &&
		s.Headline != nil
}
