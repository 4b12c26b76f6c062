package rules

import (
	"fmt"

	"github.com/planwright/planwright/internal/geometry"
	"github.com/planwright/planwright/internal/plan"
)

// checkFunc is one independent compliance rule. Checks never mutate the
// layout and never see each other's output.
type checkFunc func(*plan.Layout, *Catalog) []Issue

// orderedChecks fixes the evaluation (and therefore issue) order.
var orderedChecks = []checkFunc{
	checkRoomAreas,
	checkRoomDimensions,
	checkNaturalLight,
	checkWindowPlacement,
	checkDoorPlacement,
	checkCirculation,
	checkWetAreas,
	checkKitchen,
}

// CheckCompliance runs the full rule set against a layout and returns
// the issues in rule order.
func CheckCompliance(l *plan.Layout, c *Catalog) []Issue {
	var issues []Issue
	for _, check := range orderedChecks {
		issues = append(issues, check(l, c)...)
	}
	return issues
}

func env(l *plan.Layout) geometry.Envelope {
	return geometry.Envelope{Width: l.Envelope.Width, Depth: l.Envelope.Depth}
}

// wallIsExternal reports whether the given wall of a room sits on the
// envelope boundary, within the catalog edge tolerance.
func wallIsExternal(r *plan.Room, e geometry.Envelope, side plan.WallSide, tol float64) bool {
	b := r.Bounds()
	switch side {
	case plan.WallWest:
		return b.X <= tol
	case plan.WallEast:
		return e.Width-b.Right() <= tol
	case plan.WallNorth:
		return b.Y <= tol
	case plan.WallSouth:
		return e.Depth-b.Bottom() <= tol
	}
	return false
}

func checkRoomAreas(l *plan.Layout, c *Catalog) []Issue {
	var issues []Issue
	for i := range l.Rooms {
		r := &l.Rooms[i]
		min, ok := c.MinAreas[r.Type]
		if !ok || r.Area >= min {
			continue
		}
		issues = append(issues, Issue{
			Code:     "ROOM_TOO_SMALL",
			Message:  fmt.Sprintf("%s is %.1fm², minimum is %.1fm²", r.Label(), r.Area, min),
			Severity: SeverityCritical,
			Room:     r.Label(),
			Rule:     "NCC 3.8.2",
		})
	}
	return issues
}

func checkRoomDimensions(l *plan.Layout, c *Catalog) []Issue {
	var issues []Issue
	for i := range l.Rooms {
		r := &l.Rooms[i]
		min, ok := c.MinDimensions[r.Type]
		if !ok || r.MinDimension() >= min {
			continue
		}
		issues = append(issues, Issue{
			Code:     "DIMENSION_TOO_SMALL",
			Message:  fmt.Sprintf("%s narrowest side is %.2fm, minimum is %.2fm", r.Label(), r.MinDimension(), min),
			Severity: SeverityCritical,
			Room:     r.Label(),
			Rule:     "NCC 3.8.2",
		})
	}
	return issues
}

func checkNaturalLight(l *plan.Layout, c *Catalog) []Issue {
	var issues []Issue
	e := env(l)
	for i := range l.Rooms {
		r := &l.Rooms[i]
		if !c.IsHabitable(r.Type) {
			continue
		}

		extWall := geometry.ExternalWallLength(r.Bounds(), e, c.EdgeTol)
		if extWall <= 0 {
			issues = append(issues, Issue{
				Code:     "NO_NATURAL_LIGHT",
				Message:  fmt.Sprintf("%s has no external wall for natural light", r.Label()),
				Severity: SeverityCritical,
				Room:     r.Label(),
				Rule:     "NCC 3.8.4",
			})
			continue
		}

		if len(r.Windows) > 0 {
			glazed := 0.0
			for _, w := range r.Windows {
				glazed += w.Width * w.Height
			}
			required := c.MinWindowAreaRatio * r.Area
			if glazed < required {
				issues = append(issues, Issue{
					Code:     "WINDOW_AREA_SHORT",
					Message:  fmt.Sprintf("%s window area %.2fm² is below %.0f%% of floor area (%.2fm²)", r.Label(), glazed, c.MinWindowAreaRatio*100, required),
					Severity: SeverityWarning,
					Room:     r.Label(),
					Rule:     "NCC 3.8.4",
				})
			}
		} else if extWall < c.MinExternalWallLength {
			issues = append(issues, Issue{
				Code:     "LIMITED_EXTERNAL_WALL",
				Message:  fmt.Sprintf("%s has only %.1fm of external wall for glazing", r.Label(), extWall),
				Severity: SeverityWarning,
				Room:     r.Label(),
				Rule:     "NCC 3.8.4",
			})
		}
	}
	return issues
}

func checkWindowPlacement(l *plan.Layout, c *Catalog) []Issue {
	var issues []Issue
	e := env(l)
	for i := range l.Rooms {
		r := &l.Rooms[i]
		flaggedInternal := false
		flaggedOverflow := false
		for _, w := range r.Windows {
			if !flaggedInternal && !wallIsExternal(r, e, w.Wall, c.EdgeTol) {
				issues = append(issues, Issue{
					Code:     "WINDOW_ON_INTERNAL_WALL",
					Message:  fmt.Sprintf("%s has a window on its %s wall, which is not external", r.Label(), w.Wall),
					Severity: SeverityError,
					Room:     r.Label(),
				})
				flaggedInternal = true
			}
			if !flaggedOverflow && w.Offset+w.Width > r.WallLength(w.Wall) {
				issues = append(issues, Issue{
					Code:     "WINDOW_OVERFLOWS_WALL",
					Message:  fmt.Sprintf("%s window at offset %.2fm does not fit its %.2fm wall", r.Label(), w.Offset, r.WallLength(w.Wall)),
					Severity: SeverityError,
					Room:     r.Label(),
				})
				flaggedOverflow = true
			}
		}
	}
	return issues
}

func checkDoorPlacement(l *plan.Layout, c *Catalog) []Issue {
	var issues []Issue
	for i := range l.Rooms {
		r := &l.Rooms[i]

		if len(r.Doors) == 0 {
			if c.IsHabitable(r.Type) {
				issues = append(issues, Issue{
					Code:     "NO_DOOR",
					Message:  fmt.Sprintf("%s has no door specified", r.Label()),
					Severity: SeverityInfo,
					Room:     r.Label(),
				})
			}
			continue
		}

		flaggedNarrow := false
		flaggedOverflow := false
		for _, d := range r.Doors {
			cat, minMM := c.DoorMinimumMM(r, d)
			if !flaggedNarrow && minMM > 0 && d.WidthMM < minMM {
				issues = append(issues, Issue{
					Code:     "DOOR_TOO_NARROW",
					Message:  fmt.Sprintf("%s %s door is %dmm, minimum is %dmm", r.Label(), cat, d.WidthMM, minMM),
					Severity: SeverityError,
					Room:     r.Label(),
					Rule:     "NCC 3.9.3",
				})
				flaggedNarrow = true
			}
			if !flaggedOverflow && d.Offset+float64(d.WidthMM)/1000 > r.WallLength(d.Wall) {
				issues = append(issues, Issue{
					Code:     "DOOR_OVERFLOWS_WALL",
					Message:  fmt.Sprintf("%s door at offset %.2fm does not fit its %.2fm wall", r.Label(), d.Offset, r.WallLength(d.Wall)),
					Severity: SeverityError,
					Room:     r.Label(),
				})
				flaggedOverflow = true
			}
		}

		if r.MinDimension() < c.MinDoorSwingDimension {
			issues = append(issues, Issue{
				Code:     "DOOR_SWING_CLEARANCE",
				Message:  fmt.Sprintf("%s is %.2fm at its narrowest, door swing may be obstructed", r.Label(), r.MinDimension()),
				Severity: SeverityWarning,
				Room:     r.Label(),
			})
		}
	}
	return issues
}

// bedroomIsolationCap bounds how many unreachable bedrooms are reported;
// beyond the first couple the feedback is noise.
const bedroomIsolationCap = 2

// carriesReachability reports whether a reachable room of this type
// extends the reachable set to its own neighbours.
func carriesReachability(t plan.RoomType) bool {
	switch t {
	case plan.RoomEntry, plan.RoomHallway, plan.RoomBedroom, plan.RoomMasterBedroom:
		return true
	}
	return false
}

func checkCirculation(l *plan.Layout, c *Catalog) []Issue {
	var issues []Issue

	for i := range l.Rooms {
		r := &l.Rooms[i]
		if r.Type != plan.RoomHallway {
			continue
		}
		switch {
		case r.MinDimension() < c.MinHallwayWidth:
			issues = append(issues, Issue{
				Code:     "HALLWAY_TOO_NARROW",
				Message:  fmt.Sprintf("%s is %.2fm wide, minimum is %.2fm", r.Label(), r.MinDimension(), c.MinHallwayWidth),
				Severity: SeverityCritical,
				Room:     r.Label(),
				Rule:     "NCC 3.9.3",
			})
		case r.MinDimension() < c.RecommendedHallwayWidth:
			issues = append(issues, Issue{
				Code:     "HALLWAY_BELOW_RECOMMENDED",
				Message:  fmt.Sprintf("%s is %.2fm wide, %.2fm is recommended", r.Label(), r.MinDimension(), c.RecommendedHallwayWidth),
				Severity: SeverityWarning,
				Room:     r.Label(),
			})
		}
	}

	circulation := l.RoomsOfType(plan.RoomHallway, plan.RoomEntry)
	if len(circulation) == 0 && len(l.Rooms) > c.CirculationRoomCount {
		issues = append(issues, Issue{
			Code:     "NO_CIRCULATION_SPACE",
			Message:  fmt.Sprintf("%d rooms with no hallway or entry for circulation", len(l.Rooms)),
			Severity: SeverityWarning,
		})
	}

	issues = append(issues, checkBedroomReachability(l, c)...)
	return issues
}

// checkBedroomReachability flood-fills the adjacency graph from entry
// and hallway rooms and flags bedrooms outside the reachable set. Only
// entries, hallways and bedrooms carry reachability onward; walking
// through a living room does not make the rooms beyond it reachable.
// Rooms on different storeys are never adjacent (stairs are not
// modeled, so a hallway on each storey seeds its own flood).
func checkBedroomReachability(l *plan.Layout, c *Catalog) []Issue {
	reachable := make([]bool, len(l.Rooms))
	queue := make([]int, 0, len(l.Rooms))

	for i := range l.Rooms {
		t := l.Rooms[i].Type
		if t == plan.RoomEntry || t == plan.RoomHallway {
			reachable[i] = true
			queue = append(queue, i)
		}
	}
	if len(queue) == 0 {
		return nil
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for j := range l.Rooms {
			if reachable[j] || l.Rooms[j].Storey != l.Rooms[cur].Storey {
				continue
			}
			if geometry.Adjacent(l.Rooms[cur].Bounds(), l.Rooms[j].Bounds(), c.EdgeTol) {
				reachable[j] = true
				if carriesReachability(l.Rooms[j].Type) {
					queue = append(queue, j)
				}
			}
		}
	}

	var issues []Issue
	for i := range l.Rooms {
		t := l.Rooms[i].Type
		if t != plan.RoomBedroom && t != plan.RoomMasterBedroom {
			continue
		}
		if reachable[i] {
			continue
		}
		issues = append(issues, Issue{
			Code:     "BEDROOM_ISOLATED",
			Message:  fmt.Sprintf("%s is not reachable from the entry or a hallway", l.Rooms[i].Label()),
			Severity: SeverityWarning,
			Room:     l.Rooms[i].Label(),
		})
		if len(issues) >= bedroomIsolationCap {
			break
		}
	}
	return issues
}

func checkWetAreas(l *plan.Layout, c *Catalog) []Issue {
	var issues []Issue

	for i := range l.Rooms {
		r := &l.Rooms[i]
		if r.Type != plan.RoomBathroom && r.Type != plan.RoomEnsuite {
			continue
		}
		if r.MinDimension() < c.MinWetAreaDimension {
			issues = append(issues, Issue{
				Code:     "WET_AREA_TOO_TIGHT",
				Message:  fmt.Sprintf("%s is %.2fm at its narrowest, %.2fm clear is required", r.Label(), r.MinDimension(), c.MinWetAreaDimension),
				Severity: SeverityError,
				Room:     r.Label(),
				Rule:     "NCC 3.8.3",
			})
		}
	}

	masters := l.RoomsOfType(plan.RoomMasterBedroom)
	for _, ens := range l.RoomsOfType(plan.RoomEnsuite) {
		attached := false
		for _, m := range masters {
			if m.Storey == ens.Storey && geometry.Adjacent(ens.Bounds(), m.Bounds(), c.EdgeTol) {
				attached = true
				break
			}
		}
		if !attached {
			issues = append(issues, Issue{
				Code:     "ENSUITE_NOT_ADJACENT",
				Message:  fmt.Sprintf("%s does not share a wall with the master bedroom", ens.Label()),
				Severity: SeverityError,
				Room:     ens.Label(),
			})
		}
	}

	return issues
}

func checkKitchen(l *plan.Layout, c *Catalog) []Issue {
	var issues []Issue

	kitchens := l.RoomsOfType(plan.RoomKitchen)
	for _, k := range kitchens {
		if k.MinDimension() < c.MinKitchenWidth {
			issues = append(issues, Issue{
				Code:     "KITCHEN_TOO_NARROW",
				Message:  fmt.Sprintf("%s is %.2fm at its narrowest, %.2fm clear is required", k.Label(), k.MinDimension(), c.MinKitchenWidth),
				Severity: SeverityError,
				Room:     k.Label(),
			})
		}
	}

	for _, p := range l.RoomsOfType(plan.RoomPantry) {
		attached := false
		for _, k := range kitchens {
			if k.Storey == p.Storey && geometry.Adjacent(p.Bounds(), k.Bounds(), c.EdgeTol) {
				attached = true
				break
			}
		}
		if !attached {
			issues = append(issues, Issue{
				Code:     "PANTRY_NOT_ADJACENT",
				Message:  fmt.Sprintf("%s does not share a wall with the kitchen", p.Label()),
				Severity: SeverityWarning,
				Room:     p.Label(),
			})
		}
	}

	return issues
}
