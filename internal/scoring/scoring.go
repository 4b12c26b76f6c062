// Package scoring aggregates compliance issues and structural checks
// into a pass/fail decision, a 0–100 score, and deterministic feedback
// text for the next generation attempt.
package scoring

import (
	"fmt"
	"math"

	"github.com/planwright/planwright/internal/geometry"
	"github.com/planwright/planwright/internal/plan"
	"github.com/planwright/planwright/internal/rules"
)

// Options holds the penalty magnitudes and the pass threshold. These are
// tuned values, not derived ones; keep them overridable rather than
// reading more meaning into them.
type Options struct {
	CriticalPenalty       int `yaml:"critical_penalty"`
	ErrorPenalty          int `yaml:"error_penalty"`
	WarningPenalty        int `yaml:"warning_penalty"`
	MissingRoomPenalty    int `yaml:"missing_room_penalty"`
	MissingKeyRoomPenalty int `yaml:"missing_key_room_penalty"`
	OverlapPenalty        int `yaml:"overlap_penalty"`
	EnvelopePenalty       int `yaml:"envelope_penalty"`
	AdjacencyPenalty      int `yaml:"adjacency_penalty"`
	PassThreshold         int `yaml:"pass_threshold"`
}

func DefaultOptions() Options {
	return Options{
		CriticalPenalty:       15,
		ErrorPenalty:          8,
		WarningPenalty:        3,
		MissingRoomPenalty:    15,
		MissingKeyRoomPenalty: 20,
		OverlapPenalty:        10,
		EnvelopePenalty:       10,
		AdjacencyPenalty:      8,
		PassThreshold:         50,
	}
}

// Result is the outcome of validating one layout. It is ephemeral: the
// correction loop keeps only the best one across attempts.
type Result struct {
	Passed       bool          `json:"passed"`
	Score        int           `json:"score"`
	HardFailures []string      `json:"hard_failures,omitempty"`
	SoftFailures []string      `json:"soft_failures,omitempty"`
	Issues       []rules.Issue `json:"issues,omitempty"`
	Feedback     string        `json:"feedback,omitempty"`
}

// CriticalCount returns how many rule issues are CRITICAL.
func (r *Result) CriticalCount() int {
	n := 0
	for _, is := range r.Issues {
		if is.Severity == rules.SeverityCritical {
			n++
		}
	}
	return n
}

// Score validates a layout against the catalog and requirements.
//
// The decision is three independent gates: no structural hard failures,
// no CRITICAL rule issues, and score at or above the threshold. A high
// score never overrides a CRITICAL issue.
func Score(l *plan.Layout, req *plan.Requirements, catalog *rules.Catalog, opts Options) *Result {
	res := &Result{Score: 100}

	res.Issues = rules.CheckCompliance(l, catalog)
	for _, is := range res.Issues {
		switch is.Severity {
		case rules.SeverityCritical:
			res.Score -= opts.CriticalPenalty
		case rules.SeverityError:
			res.Score -= opts.ErrorPenalty
		case rules.SeverityWarning:
			res.Score -= opts.WarningPenalty
		}
	}

	res.Score -= applyStructuralChecks(res, l, req, catalog, opts)

	if res.Score < 0 {
		res.Score = 0
	}
	if res.Score > 100 {
		res.Score = 100
	}

	res.Passed = len(res.HardFailures) == 0 &&
		res.CriticalCount() == 0 &&
		res.Score >= opts.PassThreshold

	res.Feedback = RenderFeedback(res)
	return res
}

// applyStructuralChecks fills HardFailures/SoftFailures and returns the
// total structural penalty.
func applyStructuralChecks(res *Result, l *plan.Layout, req *plan.Requirements, catalog *rules.Catalog, opts Options) int {
	penalty := 0

	hard := func(p int, format string, args ...any) {
		res.HardFailures = append(res.HardFailures, fmt.Sprintf(format, args...))
		penalty += p
	}
	soft := func(p int, format string, args ...any) {
		res.SoftFailures = append(res.SoftFailures, fmt.Sprintf(format, args...))
		penalty += p
	}

	penalty += checkRoomCounts(res, l, req, opts)

	env := geometry.Envelope{Width: l.Envelope.Width, Depth: l.Envelope.Depth}
	for i := range l.Rooms {
		for j := i + 1; j < len(l.Rooms); j++ {
			a, b := &l.Rooms[i], &l.Rooms[j]
			if a.Storey != b.Storey {
				continue
			}
			if geometry.Overlap(a.Bounds(), b.Bounds(), catalog.OverlapTol) {
				hard(opts.OverlapPenalty, "%s overlaps %s", a.Label(), b.Label())
			}
		}
	}

	for i := range l.Rooms {
		r := &l.Rooms[i]
		if !geometry.WithinEnvelope(r.Bounds(), env, catalog.EdgeTol) {
			hard(opts.EnvelopePenalty, "%s extends outside the building envelope", r.Label())
		}
	}

	for _, rule := range catalog.HardAdjacency {
		for _, a := range l.RoomsOfType(rule.A) {
			satisfied := false
			for _, b := range l.RoomsOfType(rule.B) {
				if a.Storey == b.Storey && geometry.Adjacent(a.Bounds(), b.Bounds(), catalog.EdgeTol) {
					satisfied = true
					break
				}
			}
			if !satisfied && len(l.RoomsOfType(rule.B)) > 0 {
				soft(opts.AdjacencyPenalty, "%s should share a wall with %s", a.Label(), rule.B)
			}
		}
	}

	for _, rule := range catalog.SoftAdjacency {
		as := l.RoomsOfType(rule.A)
		bs := l.RoomsOfType(rule.B)
		if len(as) == 0 || len(bs) == 0 {
			continue
		}
		satisfied := false
		for _, a := range as {
			for _, b := range bs {
				if a.Storey == b.Storey && geometry.Adjacent(a.Bounds(), b.Bounds(), catalog.EdgeTol) {
					satisfied = true
					break
				}
			}
		}
		if !satisfied {
			soft(0, "consider placing %s next to %s", rule.A, rule.B)
		}
	}

	return penalty
}

func checkRoomCounts(res *Result, l *plan.Layout, req *plan.Requirements, opts Options) int {
	penalty := 0
	hard := func(p int, format string, args ...any) {
		res.HardFailures = append(res.HardFailures, fmt.Sprintf(format, args...))
		penalty += p
	}

	bedrooms := l.CountOfType(plan.RoomBedroom) + l.CountOfType(plan.RoomMasterBedroom)
	if bedrooms < req.Bedrooms {
		hard(opts.MissingRoomPenalty, "requires %d bedrooms, layout has %d", req.Bedrooms, bedrooms)
	}

	bathrooms := 0.0
	for i := range l.Rooms {
		switch l.Rooms[i].Type {
		case plan.RoomBathroom, plan.RoomEnsuite:
			bathrooms += 1
		case plan.RoomPowder:
			bathrooms += 0.5
		}
	}
	if bathrooms < req.Bathrooms {
		hard(opts.MissingRoomPenalty, "requires %.1f bathrooms, layout has %.1f", req.Bathrooms, bathrooms)
	}

	if req.GarageSpaces > 0 {
		garages := l.RoomsOfType(plan.RoomGarage)
		if len(garages) == 0 {
			hard(opts.MissingRoomPenalty, "requires a %d-car garage, layout has none", req.GarageSpaces)
		} else {
			// 3m of width per car is the planning convention.
			widest := 0.0
			for _, g := range garages {
				widest = math.Max(widest, math.Max(g.Width, g.Depth))
			}
			if widest < float64(req.GarageSpaces)*3.0-0.1 {
				hard(opts.MissingRoomPenalty, "garage fits fewer than %d cars", req.GarageSpaces)
			}
		}
	}

	kitchens := l.CountOfType(plan.RoomKitchen)
	living := l.CountOfType(plan.RoomLiving) + l.CountOfType(plan.RoomFamily)
	switch {
	case kitchens == 0 && living == 0:
		hard(opts.MissingKeyRoomPenalty, "layout has no kitchen or living space")
	case kitchens == 0:
		hard(opts.MissingKeyRoomPenalty, "layout has no kitchen")
	case living == 0:
		hard(opts.MissingKeyRoomPenalty, "layout has no living space")
	}

	return penalty
}
