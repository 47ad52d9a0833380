// Package deck defines the slide records a lecture narrates and the YAML
// loader that produces them.
//
// A [Deck] is an immutable ordered sequence of slides, built once at lecture
// start and never mutated during playback. Slide content itself comes from
// external content-generation agents; this package only carries it.
package deck

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// QA is an optional per-slide quiz question and answer.
type QA struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

// Slide is one record of a lecture deck.
type Slide struct {
	ID      string   `yaml:"id"`
	Title   string   `yaml:"title"`
	Bullets []string `yaml:"bullets"`
	Script  string   `yaml:"script"`
	Quiz    *QA      `yaml:"quiz,omitempty"`
}

// Deck is an immutable ordered sequence of slides. Internally 0-indexed;
// [Deck.Number] converts to the 1-indexed display form.
type Deck struct {
	title  string
	slides []Slide
}

// New builds a Deck from an already validated slide sequence. The slice is
// copied so later mutation by the caller cannot affect the deck.
func New(title string, slides []Slide) (*Deck, error) {
	if err := validate(slides); err != nil {
		return nil, err
	}
	cp := make([]Slide, len(slides))
	copy(cp, slides)
	return &Deck{title: title, slides: cp}, nil
}

// Title returns the deck title.
func (d *Deck) Title() string { return d.title }

// Len returns the number of slides.
func (d *Deck) Len() int { return len(d.slides) }

// Slide returns the slide at index i. The index must be in [0, Len).
func (d *Deck) Slide(i int) (Slide, error) {
	if i < 0 || i >= len(d.slides) {
		return Slide{}, fmt.Errorf("deck: slide index %d out of range [0, %d)", i, len(d.slides))
	}
	return d.slides[i], nil
}

// Number returns the 1-indexed display number for slide index i.
func (d *Deck) Number(i int) int { return i + 1 }

// deckFile is the YAML document shape.
type deckFile struct {
	Title  string  `yaml:"title"`
	Slides []Slide `yaml:"slides"`
}

// Load reads the YAML deck file at path.
func Load(path string) (*Deck, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("deck: open %q: %w", path, err)
	}
	defer f.Close()

	d, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("deck: parse %q: %w", path, err)
	}
	return d, nil
}

// LoadFromReader decodes a YAML deck from r and validates the result.
// Useful in tests where decks are constructed from string literals.
func LoadFromReader(r io.Reader) (*Deck, error) {
	var df deckFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&df); err != nil {
		return nil, fmt.Errorf("deck: decode yaml: %w", err)
	}
	return New(df.Title, df.Slides)
}

// validate checks the slide sequence is coherent. It returns a joined error
// listing all failures found.
func validate(slides []Slide) error {
	var errs []error

	if len(slides) == 0 {
		errs = append(errs, errors.New("deck has no slides"))
	}

	idsSeen := make(map[string]int, len(slides))
	for i, s := range slides {
		prefix := fmt.Sprintf("slides[%d]", i)
		if s.ID == "" {
			errs = append(errs, fmt.Errorf("%s.id is required", prefix))
		} else {
			if prev, ok := idsSeen[s.ID]; ok {
				errs = append(errs, fmt.Errorf("%s.id %q is a duplicate of slides[%d]", prefix, s.ID, prev))
			}
			idsSeen[s.ID] = i
		}
		if s.Script == "" {
			errs = append(errs, fmt.Errorf("%s.script is required", prefix))
		}
		if s.Quiz != nil && (s.Quiz.Question == "" || s.Quiz.Answer == "") {
			errs = append(errs, fmt.Errorf("%s.quiz needs both question and answer", prefix))
		}
	}

	return errors.Join(errs...)
}
