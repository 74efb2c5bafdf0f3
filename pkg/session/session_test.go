package session

import (
	"strings"
	"testing"
)

func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }

func TestNewSessionHasIDAndTimestamp(t *testing.T) {
	s := New()
	if s.ID == "" {
		t.Fatal("expected a generated id")
	}
	if s.CreatedAt == "" {
		t.Fatal("expected a creation timestamp")
	}
	if s.CopiesPrinted != 0 {
		t.Fatalf("expected zero prints, got %d", s.CopiesPrinted)
	}
}

func TestValidateChoice(t *testing.T) {
	for _, v := range []int{0, 1, 2, 3} {
		if err := ValidateChoice("weapon", v); err != nil {
			t.Errorf("ValidateChoice(%d) = %v, want nil", v, err)
		}
	}
	for _, v := range []int{-1, 4, 100} {
		if err := ValidateChoice("weapon", v); err == nil {
			t.Errorf("ValidateChoice(%d) = nil, want error", v)
		}
	}
}

func TestStoryForSubstitutesLand(t *testing.T) {
	for land, want := range lands {
		story, _ := StoryFor(0, land, 0, 0)
		if !strings.Contains(story, want) {
			t.Errorf("land %d: story does not mention %q:\n%s", land, want, story)
		}
		if strings.Contains(story, "{land}") {
			t.Errorf("land %d: placeholder left in story", land)
		}
	}
}

func TestStoryForHeadlinePerDeed(t *testing.T) {
	seen := map[string]bool{}
	for weapon := 0; weapon < ChoiceCount; weapon++ {
		for companion := 0; companion < ChoiceCount; companion++ {
			_, headline := StoryFor(weapon, 0, companion, 0)
			if headline == "" {
				t.Fatalf("weapon=%d companion=%d: empty headline", weapon, companion)
			}
			if seen[headline] {
				t.Errorf("headline %q reused", headline)
			}
			seen[headline] = true
		}
	}
	if len(seen) != 16 {
		t.Fatalf("expected 16 distinct headlines, got %d", len(seen))
	}
}

func TestStoryForOutOfRangeFallsBack(t *testing.T) {
	story, headline := StoryFor(-1, 0, 0, 0)
	if headline != defaultHeadline {
		t.Errorf("headline = %q, want %q", headline, defaultHeadline)
	}
	if !strings.Contains(story, lands[0]) {
		t.Errorf("fallback story does not mention the land:\n%s", story)
	}

	story, _ = StoryFor(0, 99, 0, 0)
	if !strings.Contains(story, "the empty wilderness") {
		t.Errorf("unknown land should use the generic backdrop, got:\n%s", story)
	}
}

func TestStoryForVariantsDiffer(t *testing.T) {
	a, _ := StoryFor(1, 1, 1, 0)
	b, _ := StoryFor(1, 1, 1, 1)
	if a == b {
		t.Error("expected different captions for different variants")
	}
	// Negative variants wrap instead of panicking.
	c, _ := StoryFor(1, 1, 1, -3)
	d, _ := StoryFor(1, 1, 1, 1)
	if c != d {
		t.Errorf("variant -3 should match variant 1")
	}
}

func TestGenerateStoryRequiresSelections(t *testing.T) {
	s := New()
	if err := s.GenerateStory(); err == nil {
		t.Fatal("expected error with no selections")
	}

	s.Weapon = intp(2)
	s.Land = intp(1)
	if err := s.GenerateStory(); err == nil {
		t.Fatal("expected error with missing companion")
	}

	s.Companion = intp(3)
	if err := s.GenerateStory(); err != nil {
		t.Fatalf("GenerateStory: %v", err)
	}
	if s.StoryText == nil || s.Headline == nil {
		t.Fatal("story fields not set")
	}
	if !strings.Contains(*s.StoryText, lands[1]) {
		t.Errorf("story does not mention the selected land:\n%s", *s.StoryText)
	}
}

func TestComplete(t *testing.T) {
	s := New()
	if s.Complete() {
		t.Fatal("fresh session reported complete")
	}
	s.GroupName = strp("The Dalton Gang")
	s.Weapon = intp(0)
	s.Land = intp(1)
	s.Companion = intp(2)
	s.Email = strp("gang@example.com")
	s.PhotoPath = strp("/var/lib/booth/cap_1.jpg")
	s.StoryText = strp("some story")
	s.Headline = strp("some headline")
	if !s.Complete() {
		t.Fatal("fully populated session reported incomplete")
	}
}
