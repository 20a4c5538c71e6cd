// Package export renders competition results as spreadsheet, document,
// raster image and JSON snapshot. Every renderer is deterministic for a
// given state and export date.
package export

import (
	"strconv"

	"agility-scorer/internal/domain"
	"agility-scorer/internal/ranking"
	"agility-scorer/internal/runorder"
)

// Scope narrows an export. Zero values select everything.
type Scope struct {
	RoundID string
	Size    domain.SizeClass
}

// Section is one ranked (round, size) table.
type Section struct {
	Round      domain.Round
	Size       domain.SizeClass
	CourseTime domain.CourseTime
	Ranked     []domain.RankedCompetitor
}

var Columns = []string{
	"Rank", "Size", "Run", "Dog", "Breed", "Handler",
	"Course Faults", "Refusals", "Time Faults", "Total Faults", "Time", "Status",
}

// Sections lists every group in scope that has entrants, by round position
// then size order.
func Sections(st domain.State, scope Scope) []Section {
	var out []Section
	for _, r := range st.Rounds {
		if scope.RoundID != "" && r.ID != scope.RoundID {
			continue
		}
		for _, size := range domain.AllSizes {
			if scope.Size != "" && size != scope.Size {
				continue
			}
			members := runorder.Members(st.Competitors, r.ID, size)
			if len(members) == 0 {
				continue
			}
			out = append(out, Section{
				Round:      r,
				Size:       size,
				CourseTime: st.CourseTime(r.ID),
				Ranked:     ranking.Rank(members),
			})
		}
	}
	return out
}

// Cells formats one ranked row in Columns order.
func Cells(rc domain.RankedCompetitor) []string {
	return []string{
		rankText(rc.Rank),
		string(rc.Size),
		strconv.Itoa(rc.RunOrder),
		rc.DogName,
		rc.Breed,
		rc.Handler,
		intText(rc.CourseFaults),
		intText(rc.Refusals),
		intText(rc.TimeFault),
		intText(rc.TotalFault),
		timeText(rc.Time),
		rc.Status(),
	}
}

func rankText(r *int) string {
	if r == nil {
		return "-"
	}
	return strconv.Itoa(*r)
}

func intText(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func timeText(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

// SecondsText renders a course time; an unset time is "-".
func SecondsText(v float64) string {
	if v == 0 {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', -1, 64) + "s"
}
