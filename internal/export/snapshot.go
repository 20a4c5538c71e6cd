package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"agility-scorer/internal/domain"
	"agility-scorer/internal/scoring"
)

// Snapshot is the JSON backup format.
type Snapshot struct {
	Competitors      []domain.Competitor          `json:"competitors"`
	Rounds           []domain.Round               `json:"rounds"`
	CourseTimeConfig map[string]domain.CourseTime `json:"courseTimeConfig"`
	ExportDate       time.Time                    `json:"exportDate"`
}

// NewSnapshot captures the shared state in scope.
func NewSnapshot(st domain.State, scope Scope, exportDate time.Time) Snapshot {
	snap := Snapshot{
		Competitors:      []domain.Competitor{},
		Rounds:           []domain.Round{},
		CourseTimeConfig: map[string]domain.CourseTime{},
		ExportDate:       exportDate.UTC(),
	}
	for _, r := range st.Rounds {
		if scope.RoundID != "" && r.ID != scope.RoundID {
			continue
		}
		snap.Rounds = append(snap.Rounds, r)
		if ct, ok := st.CourseTimes[r.ID]; ok {
			snap.CourseTimeConfig[r.ID] = ct
		}
	}
	for _, c := range st.Competitors {
		if scope.RoundID != "" && c.RoundID != scope.RoundID {
			continue
		}
		if scope.Size != "" && c.Size != scope.Size {
			continue
		}
		snap.Competitors = append(snap.Competitors, c.Clone())
	}
	return snap
}

func WriteSnapshot(w io.Writer, snap Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// ParseSnapshot decodes and fully validates a snapshot. Nothing is returned
// unless the whole file is usable.
func ParseSnapshot(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", domain.ErrInvalidImport, err)
	}
	if snap.CourseTimeConfig == nil {
		snap.CourseTimeConfig = map[string]domain.CourseTime{}
	}
	if err := snap.Validate(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (s Snapshot) Validate() error {
	rounds := make(map[string]bool, len(s.Rounds))
	names := make(map[string]bool, len(s.Rounds))
	for i, r := range s.Rounds {
		name := strings.ToLower(strings.TrimSpace(r.Name))
		switch {
		case r.ID == "":
			return fmt.Errorf("%w: round %d has no id", domain.ErrInvalidImport, i)
		case rounds[r.ID]:
			return fmt.Errorf("%w: duplicate round id %s", domain.ErrInvalidImport, r.ID)
		case name == "":
			return fmt.Errorf("%w: round %s has no name", domain.ErrInvalidImport, r.ID)
		case names[name]:
			return fmt.Errorf("%w: duplicate round name %s", domain.ErrInvalidImport, r.Name)
		}
		rounds[r.ID] = true
		names[name] = true
	}

	seen := make(map[string]bool, len(s.Competitors))
	for i, c := range s.Competitors {
		switch {
		case c.ID == "":
			return fmt.Errorf("%w: competitor %d has no id", domain.ErrInvalidImport, i)
		case seen[c.ID]:
			return fmt.Errorf("%w: duplicate competitor id %s", domain.ErrInvalidImport, c.ID)
		case !rounds[c.RoundID]:
			return fmt.Errorf("%w: competitor %s references unknown round %q", domain.ErrInvalidImport, c.ID, c.RoundID)
		case !c.Size.Valid():
			return fmt.Errorf("%w: competitor %s has size %q", domain.ErrInvalidImport, c.ID, c.Size)
		}
		seen[c.ID] = true
		in := scoring.ScoreInput{CourseFaults: c.CourseFaults, Refusals: c.Refusals, Time: c.Time}
		if err := scoring.ValidateInput(in); err != nil {
			return fmt.Errorf("%w: competitor %s: %v", domain.ErrInvalidImport, c.ID, err)
		}
	}

	for id, ct := range s.CourseTimeConfig {
		if !rounds[id] {
			return fmt.Errorf("%w: course time for unknown round %q", domain.ErrInvalidImport, id)
		}
		if err := scoring.ValidateCourseTime(ct); err != nil {
			return fmt.Errorf("%w: round %s: %v", domain.ErrInvalidImport, id, err)
		}
	}
	return nil
}
