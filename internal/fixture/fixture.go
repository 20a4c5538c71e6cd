// Package fixture reads and writes the YAML entry lists used to seed a
// competition from the command line.
package fixture

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"agility-scorer/internal/competition"
	"agility-scorer/internal/domain"
	"agility-scorer/internal/runorder"

	"gopkg.in/yaml.v3"
)

type Fixture struct {
	Rounds []Round `yaml:"rounds"`
}

type Round struct {
	Name         string  `yaml:"name"`
	Abbreviation string  `yaml:"abbreviation,omitempty"`
	SCT          float64 `yaml:"sct"`
	MCT          float64 `yaml:"mct"`
	Entries      []Entry `yaml:"entries,omitempty"`
}

type Entry struct {
	Dog     string `yaml:"dog"`
	DogID   string `yaml:"dog_id,omitempty"`
	Breed   string `yaml:"breed,omitempty"`
	Handler string `yaml:"handler,omitempty"`
	Size    string `yaml:"size"`
	Icon    string `yaml:"icon,omitempty"`
}

// Summary counts what Apply created.
type Summary struct {
	RoundsAdded  int
	EntriesAdded int
}

func Read(r io.Reader) (Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f Fixture
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return Fixture{}, fmt.Errorf("%w: %v", domain.ErrInvalidImport, err)
	}
	if err := f.Validate(); err != nil {
		return Fixture{}, err
	}
	return f, nil
}

func (f Fixture) Validate() error {
	names := make(map[string]bool, len(f.Rounds))
	for i, r := range f.Rounds {
		name := strings.ToLower(strings.TrimSpace(r.Name))
		if name == "" {
			return fmt.Errorf("%w: round %d has no name", domain.ErrInvalidImport, i+1)
		}
		if names[name] {
			return fmt.Errorf("%w: round %q listed twice", domain.ErrInvalidImport, r.Name)
		}
		names[name] = true
		for j, e := range r.Entries {
			if strings.TrimSpace(e.Dog) == "" {
				return fmt.Errorf("%w: %s entry %d has no dog", domain.ErrInvalidImport, r.Name, j+1)
			}
			if _, err := domain.ParseSize(e.Size); err != nil {
				return fmt.Errorf("%w: %s entry %s: %v", domain.ErrInvalidImport, r.Name, e.Dog, err)
			}
		}
	}
	return nil
}

// Apply adds the fixture's rounds and entries to store. Rounds that already
// exist by name are reused and get the fixture's course times.
func Apply(store *competition.Store, f Fixture) (Summary, error) {
	var sum Summary
	for _, fr := range f.Rounds {
		ct := domain.CourseTime{SCT: fr.SCT, MCT: fr.MCT}
		r, ok := store.RoundByName(fr.Name)
		if ok {
			if err := store.UpdateCourseTime(r.ID, ct); err != nil {
				return sum, fmt.Errorf("failed to set course time for %s: %w", fr.Name, err)
			}
		} else {
			var err error
			if r, err = store.AddRound(fr.Name, ct); err != nil {
				return sum, fmt.Errorf("failed to add round %s: %w", fr.Name, err)
			}
			sum.RoundsAdded++
		}
		if fr.Abbreviation != "" {
			if err := store.SetAbbreviation(r.ID, fr.Abbreviation); err != nil {
				return sum, err
			}
		}
		for _, e := range fr.Entries {
			size, _ := domain.ParseSize(e.Size)
			_, err := store.AddCompetitor(competition.NewCompetitor{
				RoundID: r.ID,
				Size:    size,
				DogID:   e.DogID,
				DogName: e.Dog,
				Breed:   e.Breed,
				Handler: e.Handler,
				Icon:    e.Icon,
			})
			if err != nil {
				return sum, fmt.Errorf("failed to add %s to %s: %w", e.Dog, fr.Name, err)
			}
			sum.EntriesAdded++
		}
	}
	return sum, nil
}

// FromState lists rounds in position order with entries in running order.
func FromState(st domain.State) Fixture {
	var f Fixture
	for _, r := range st.Rounds {
		ct := st.CourseTime(r.ID)
		fr := Round{Name: r.Name, Abbreviation: r.Abbreviation, SCT: ct.SCT, MCT: ct.MCT}
		for _, size := range domain.AllSizes {
			for _, c := range runorder.Members(st.Competitors, r.ID, size) {
				e := Entry{
					Dog:     c.DogName,
					DogID:   c.DogID,
					Breed:   c.Breed,
					Handler: c.Handler,
					Size:    string(c.Size),
				}
				if c.Icon != nil {
					e.Icon = *c.Icon
				}
				fr.Entries = append(fr.Entries, e)
			}
		}
		f.Rounds = append(f.Rounds, fr)
	}
	return f
}

func Write(w io.Writer, f Fixture) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&f); err != nil {
		return fmt.Errorf("failed to encode fixture: %w", err)
	}
	return enc.Close()
}
