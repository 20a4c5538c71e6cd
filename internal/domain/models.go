package domain

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"
	"unicode"
)

type SizeClass string

const (
	SizeSmall        SizeClass = "S"
	SizeMedium       SizeClass = "M"
	SizeIntermediate SizeClass = "I"
	SizeLarge        SizeClass = "L"
)

// AllSizes is the display and processing order.
var AllSizes = []SizeClass{SizeSmall, SizeMedium, SizeIntermediate, SizeLarge}

func (s SizeClass) Order() int {
	switch s {
	case SizeSmall:
		return 0
	case SizeMedium:
		return 1
	case SizeIntermediate:
		return 2
	case SizeLarge:
		return 3
	}
	return len(AllSizes)
}

func (s SizeClass) Valid() bool {
	return s.Order() < len(AllSizes)
}

func (s SizeClass) Label() string {
	switch s {
	case SizeSmall:
		return "Small"
	case SizeMedium:
		return "Medium"
	case SizeIntermediate:
		return "Intermediate"
	case SizeLarge:
		return "Large"
	}
	return string(s)
}

func ParseSize(v string) (SizeClass, error) {
	s := SizeClass(strings.ToUpper(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown size class %q", v)
	}
	return s, nil
}

type Round struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Abbreviation string `json:"abbreviation" yaml:"abbreviation"` // at most 4 runes
	Position     int    `json:"position" yaml:"position"`
}

// CourseTime holds the per-round thresholds in seconds. MCT 0 means no maximum.
type CourseTime struct {
	SCT float64 `json:"sct" yaml:"sct"`
	MCT float64 `json:"mct" yaml:"mct"`
}

type Competitor struct {
	ID       string    `json:"id"`
	RoundID  string    `json:"round_id"`
	Size     SizeClass `json:"size"`
	DogID    string    `json:"dog_id"`
	DogName  string    `json:"dog_name"`
	Breed    string    `json:"breed"`
	Handler  string    `json:"handler"`
	Icon     *string   `json:"icon"`
	RunOrder int       `json:"run_order"`

	CourseFaults *int     `json:"course_faults"`
	Refusals     *int     `json:"refusals"`
	Time         *float64 `json:"time"`
	TimeFault    *int     `json:"time_fault"`
	TotalFault   *int     `json:"total_fault"`
	Eliminated   bool     `json:"eliminated"`
}

// Pending reports whether the competitor has not run yet.
func (c Competitor) Pending() bool {
	return c.TotalFault == nil && !c.Eliminated
}

func (c Competitor) DisplayIcon() string {
	if c.Icon != nil && *c.Icon != "" {
		return *c.Icon
	}
	return DefaultIcon(c.DogName)
}

func (c Competitor) Status() string {
	switch {
	case c.Eliminated:
		return "Eliminated"
	case c.TotalFault != nil:
		return "Done"
	}
	return "Pending"
}

// Clone returns a copy that shares no pointers with c.
func (c Competitor) Clone() Competitor {
	out := c
	out.Icon = clonePtr(c.Icon)
	out.CourseFaults = clonePtr(c.CourseFaults)
	out.Refusals = clonePtr(c.Refusals)
	out.Time = clonePtr(c.Time)
	out.TimeFault = clonePtr(c.TimeFault)
	out.TotalFault = clonePtr(c.TotalFault)
	return out
}

type RankedCompetitor struct {
	Competitor
	Rank *int `json:"rank"`
}

// SharedState is the part of the competition replicated between devices.
type SharedState struct {
	Competitors []Competitor          `json:"competitors"`
	CourseTimes map[string]CourseTime `json:"course_times"`
	Rounds      []Round               `json:"rounds"`
}

type State struct {
	Rounds         []Round
	CourseTimes    map[string]CourseTime
	Competitors    []Competitor
	CurrentRoundID string
	LiveRoundID    string
}

func (s State) Clone() State {
	out := State{
		Rounds:         append([]Round(nil), s.Rounds...),
		CourseTimes:    make(map[string]CourseTime, len(s.CourseTimes)),
		Competitors:    CloneCompetitors(s.Competitors),
		CurrentRoundID: s.CurrentRoundID,
		LiveRoundID:    s.LiveRoundID,
	}
	for k, v := range s.CourseTimes {
		out.CourseTimes[k] = v
	}
	return out
}

func (s State) Round(id string) (Round, bool) {
	for _, r := range s.Rounds {
		if r.ID == id {
			return r, true
		}
	}
	return Round{}, false
}

func (s State) CourseTime(roundID string) CourseTime {
	return s.CourseTimes[roundID]
}

// PersistedStateVersion is bumped whenever the stored shape changes incompatibly.
const PersistedStateVersion = 2

type PersistedState struct {
	Version     int                   `json:"version"`
	Rounds      []Round               `json:"rounds"`
	CourseTimes map[string]CourseTime `json:"course_times"`
	Competitors []Competitor          `json:"competitors"`
	LiveRoundID string                `json:"live_round_id"`
}

type SessionRecord struct {
	Code      string      `json:"code"`
	DeviceID  string      `json:"device_id"`
	State     SharedState `json:"state"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func CloneCompetitors(in []Competitor) []Competitor {
	if in == nil {
		return nil
	}
	out := make([]Competitor, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

var iconPalette = []string{"🐕", "🐩", "🦮", "🐕‍🦺", "🐶", "🐾", "🦴", "🏅", "⭐", "🔥", "⚡", "🌟"}

// DefaultIcon picks a stable icon for dogs without an explicit one.
func DefaultIcon(dogName string) string {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(dogName))))
	return iconPalette[h.Sum32()%uint32(len(iconPalette))]
}

// DogIDFromName derives the weak dog identity used when none is supplied.
func DogIDFromName(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return "dog-" + strings.TrimSuffix(b.String(), "-")
}

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func Ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
