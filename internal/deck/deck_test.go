package deck

import (
	"strings"
	"testing"
)

const validYAML = `
title: Photosynthesis
slides:
  - id: intro
    title: What is photosynthesis?
    bullets:
      - Light energy becomes chemical energy
      - Happens in chloroplasts
    script: Plants convert light into sugar.
  - id: light-reactions
    title: The light reactions
    script: Water is split and ATP is produced.
    quiz:
      question: What molecule is split in the light reactions?
      answer: Water
`

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()

	d, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if d.Title() != "Photosynthesis" {
		t.Errorf("title = %q", d.Title())
	}
	if d.Len() != 2 {
		t.Fatalf("len = %d, want 2", d.Len())
	}

	s, err := d.Slide(1)
	if err != nil {
		t.Fatalf("Slide(1): %v", err)
	}
	if s.ID != "light-reactions" || s.Quiz == nil || s.Quiz.Answer != "Water" {
		t.Errorf("slide = %+v", s)
	}
	if d.Number(1) != 2 {
		t.Errorf("display number = %d, want 2", d.Number(1))
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()

	_, err := LoadFromReader(strings.NewReader(`
title: X
slides:
  - id: a
    script: hi
    narrator_voice: Aoede
`))
	if err == nil {
		t.Fatal("unknown field should be rejected")
	}
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	t.Parallel()

	_, err := New("broken", []Slide{
		{ID: "a", Script: ""},
		{ID: "a", Script: "dup id"},
		{ID: "", Script: "no id"},
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"script is required", "duplicate", "id is required"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}

func TestNew_EmptyDeckRejected(t *testing.T) {
	t.Parallel()

	if _, err := New("empty", nil); err == nil {
		t.Fatal("empty deck should be rejected")
	}
}

func TestSlide_IndexOutOfRange(t *testing.T) {
	t.Parallel()

	d, err := New("x", []Slide{{ID: "a", Script: "s"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := d.Slide(1); err == nil {
		t.Error("index 1 should be out of range")
	}
	if _, err := d.Slide(-1); err == nil {
		t.Error("index -1 should be out of range")
	}
}

func TestNew_CopiesSlides(t *testing.T) {
	t.Parallel()

	slides := []Slide{{ID: "a", Script: "original"}}
	d, err := New("x", slides)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	slides[0].Script = "mutated"

	s, _ := d.Slide(0)
	if s.Script != "original" {
		t.Error("deck shares backing storage with caller slice")
	}
}
