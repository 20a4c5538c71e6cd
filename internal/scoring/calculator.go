// Package scoring turns raw run inputs into time faults, total faults and
// the elimination decision for one round's course times.
package scoring

import (
	"fmt"
	"math"

	"agility-scorer/internal/domain"
)

type Outcome string

const (
	OutcomeSaved      Outcome = "saved"
	OutcomeEliminated Outcome = "eliminated_over_mct"
)

// ScoreInput is what the judge enters. Nil faults are stored as 0.
type ScoreInput struct {
	CourseFaults *int
	Refusals     *int
	Time         *float64
}

// TimeFault is one point per full second over SCT.
func TimeFault(t *float64, sct float64) int {
	if t == nil || *t <= sct {
		return 0
	}
	return int(math.Floor(*t - sct))
}

func IsOverMaxTime(t *float64, mct float64) bool {
	return t != nil && mct > 0 && *t > mct
}

// ComputeScore derives time fault, total fault and elimination from the raw
// fields already on c. A competitor without a time is returned unchanged.
func ComputeScore(c domain.Competitor, ct domain.CourseTime) domain.Competitor {
	out := c.Clone()
	if out.Time == nil {
		out.TimeFault = nil
		out.TotalFault = nil
		return out
	}
	if IsOverMaxTime(out.Time, ct.MCT) {
		out.Eliminated = true
		out.TimeFault = nil
		out.TotalFault = nil
		return out
	}

	tf := TimeFault(out.Time, ct.SCT)
	out.TimeFault = domain.Ptr(tf)
	out.TotalFault = domain.Ptr(deref(out.CourseFaults) + deref(out.Refusals) + tf)
	out.Eliminated = false
	return out
}

// ApplyScore stores the raw inputs verbatim and recomputes everything derived.
func ApplyScore(c domain.Competitor, in ScoreInput, ct domain.CourseTime) (domain.Competitor, Outcome) {
	out := c.Clone()
	out.CourseFaults = domain.Ptr(deref(in.CourseFaults))
	out.Refusals = domain.Ptr(deref(in.Refusals))
	out.Time = nil
	if in.Time != nil {
		// only a timed run lifts a previous manual elimination
		out.Time = domain.Ptr(*in.Time)
		out.Eliminated = false
	}

	out = ComputeScore(out, ct)
	if in.Time != nil && out.Eliminated {
		return out, OutcomeEliminated
	}
	return out, OutcomeSaved
}

// Eliminate is the manual disqualification: all score fields are cleared.
func Eliminate(c domain.Competitor) domain.Competitor {
	out := c.Clone()
	out.CourseFaults = nil
	out.Refusals = nil
	out.Time = nil
	out.TimeFault = nil
	out.TotalFault = nil
	out.Eliminated = true
	return out
}

// Recompute re-derives every timed competitor of roundID after a course time
// change. Untimed competitors, including manual eliminations, are untouched.
func Recompute(competitors []domain.Competitor, roundID string, ct domain.CourseTime) []domain.Competitor {
	out := make([]domain.Competitor, len(competitors))
	for i, c := range competitors {
		if c.RoundID == roundID && c.Time != nil {
			out[i] = ComputeScore(c, ct)
			continue
		}
		out[i] = c.Clone()
	}
	return out
}

func ValidateCourseTime(ct domain.CourseTime) error {
	if !finite(ct.SCT) || !finite(ct.MCT) || ct.SCT < 0 || ct.MCT < 0 {
		return fmt.Errorf("%w: times must be non-negative", domain.ErrInvalidCourseTime)
	}
	if ct.MCT > 0 && ct.MCT < ct.SCT {
		return fmt.Errorf("%w: MCT %.2f is below SCT %.2f", domain.ErrInvalidCourseTime, ct.MCT, ct.SCT)
	}
	return nil
}

func ValidateInput(in ScoreInput) error {
	if in.CourseFaults != nil && *in.CourseFaults < 0 {
		return fmt.Errorf("%w: course faults must be non-negative", domain.ErrInvalidScore)
	}
	if in.Refusals != nil && *in.Refusals < 0 {
		return fmt.Errorf("%w: refusals must be non-negative", domain.ErrInvalidScore)
	}
	if in.Time != nil && (!finite(*in.Time) || *in.Time < 0) {
		return fmt.Errorf("%w: time must be a non-negative number", domain.ErrInvalidScore)
	}
	return nil
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
