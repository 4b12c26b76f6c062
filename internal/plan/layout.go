package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Setback allowances subtracted from the land dimensions to derive the
// buildable envelope. Council schedules vary; these are the defaults for
// a standard residential zone and can be overridden in the rule catalog.
const (
	SideSetback  = 0.9
	FrontSetback = 4.0
	RearSetback  = 3.0
)

// Envelope is the buildable rectangular footprint.
type Envelope struct {
	Width float64 `json:"width"`
	Depth float64 `json:"depth"`
}

// EnvelopeFromLand derives the envelope from land dimensions minus the
// fixed setback allowances. Degenerate lots clamp to a 1m minimum so the
// generator never divides by zero.
func EnvelopeFromLand(landWidth, landDepth float64) Envelope {
	w := landWidth - 2*SideSetback
	d := landDepth - FrontSetback - RearSetback
	if w < 1 {
		w = 1
	}
	if d < 1 {
		d = 1
	}
	return Envelope{Width: w, Depth: d}
}

// Variant is metadata describing which generation strategy produced a
// layout.
type Variant struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Scale       float64 `json:"scale"`
}

// Layout is one floor-plan draft: an envelope, an ordered set of rooms
// (insertion order is generation order, with no semantic meaning), and
// derived totals. Layouts are immutable once produced.
type Layout struct {
	ID         string  `json:"id"`
	Envelope   Envelope `json:"envelope"`
	Rooms      []Room  `json:"rooms"`
	Variant    Variant `json:"variant"`
	TotalArea  float64 `json:"total_area"`
	LivingArea float64 `json:"living_area"`
}

// RoomsOfType returns the rooms matching any of the given types, in
// layout order.
func (l *Layout) RoomsOfType(types ...RoomType) []*Room {
	var out []*Room
	for i := range l.Rooms {
		for _, t := range types {
			if l.Rooms[i].Type == t {
				out = append(out, &l.Rooms[i])
				break
			}
		}
	}
	return out
}

// CountOfType returns how many rooms match the given type.
func (l *Layout) CountOfType(t RoomType) int {
	n := 0
	for i := range l.Rooms {
		if l.Rooms[i].Type == t {
			n++
		}
	}
	return n
}

// ComputeTotals recalculates total_area (all non-outdoor rooms) and
// living_area (living/kitchen/dining/family rooms). The generator calls
// this once before publishing a layout.
func (l *Layout) ComputeTotals() {
	total := 0.0
	living := 0.0
	for i := range l.Rooms {
		r := &l.Rooms[i]
		if !r.Type.IsOutdoor() {
			total += r.Area
		}
		if r.Type.IsLivingArea() {
			living += r.Area
		}
	}
	l.TotalArea = total
	l.LivingArea = living
}

// Fingerprint returns a stable hash of the layout geometry, used to key
// validation caches. Two layouts with identical rooms and envelope hash
// the same regardless of ID.
func (l *Layout) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "%.3fx%.3f", l.Envelope.Width, l.Envelope.Depth)
	for i := range l.Rooms {
		r := &l.Rooms[i]
		fmt.Fprintf(h, "|%s:%.3f,%.3f,%.3f,%.3f,%d", r.Type, r.X, r.Y, r.Width, r.Depth, r.Storey)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// MarshalJSONIndent renders the layout for file output.
func (l *Layout) MarshalJSONIndent() ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// DecodeLayout parses a layout previously produced by this package.
// Room count, types, and coordinates round-trip exactly.
func DecodeLayout(data []byte) (*Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decode layout: %w", err)
	}
	return &l, nil
}
