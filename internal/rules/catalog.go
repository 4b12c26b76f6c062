// Package rules holds the building-code rule catalog and the compliance
// checks that run a layout against it. The catalog is data: tables keyed
// by room type plus a handful of scalar limits, loadable from YAML per
// jurisdiction. The checks are a fixed, ordered list of independent pure
// functions; each emits at most one issue per (rule, room) pair.
package rules

import (
	"encoding/json"
	"fmt"

	"github.com/planwright/planwright/internal/geometry"
	"github.com/planwright/planwright/internal/plan"
)

// Severity orders compliance issues: Critical > Error > Warning > Info.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "CRITICAL"
	case SeverityError:
		return "ERROR"
	case SeverityWarning:
		return "WARNING"
	default:
		return "INFO"
	}
}

func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "CRITICAL":
		return SeverityCritical, nil
	case "ERROR":
		return SeverityError, nil
	case "WARNING":
		return SeverityWarning, nil
	case "INFO":
		return SeverityInfo, nil
	}
	return SeverityInfo, fmt.Errorf("unknown severity %q", s)
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	sev, err := ParseSeverity(str)
	if err != nil {
		return err
	}
	*s = sev
	return nil
}

// Issue is one compliance finding. Issues are ephemeral: produced fresh
// on every validation call and never mutated.
type Issue struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Room     string   `json:"room,omitempty"`
	Rule     string   `json:"rule,omitempty"`
}

// AdjacencyRule requires (hard) or prefers (soft) that a room of type A
// shares a wall with a room of type B.
type AdjacencyRule struct {
	A plan.RoomType `yaml:"a" json:"a"`
	B plan.RoomType `yaml:"b" json:"b"`
}

// Catalog is the rule data for one jurisdiction. Zero-valued fields in a
// loaded overlay fall back to the defaults; see Merge.
type Catalog struct {
	Jurisdiction string `yaml:"jurisdiction" json:"jurisdiction"`

	MinAreas        map[plan.RoomType]float64    `yaml:"min_areas" json:"min_areas"`
	MinDimensions   map[plan.RoomType]float64    `yaml:"min_dimensions" json:"min_dimensions"`
	Habitable       map[plan.RoomType]bool       `yaml:"habitable" json:"habitable"`
	MinDoorWidthsMM map[plan.DoorCategory]int    `yaml:"min_door_widths_mm" json:"min_door_widths_mm"`

	MinHallwayWidth         float64 `yaml:"min_hallway_width" json:"min_hallway_width"`
	RecommendedHallwayWidth float64 `yaml:"recommended_hallway_width" json:"recommended_hallway_width"`
	MinCeilingHeight        float64 `yaml:"min_ceiling_height" json:"min_ceiling_height"`
	MinWetAreaDimension     float64 `yaml:"min_wet_area_dimension" json:"min_wet_area_dimension"`
	MinKitchenWidth         float64 `yaml:"min_kitchen_width" json:"min_kitchen_width"`
	MinWindowAreaRatio      float64 `yaml:"min_window_area_ratio" json:"min_window_area_ratio"`
	MinExternalWallLength   float64 `yaml:"min_external_wall_length" json:"min_external_wall_length"`
	MinDoorSwingDimension   float64 `yaml:"min_door_swing_dimension" json:"min_door_swing_dimension"`
	CirculationRoomCount    int     `yaml:"circulation_room_count" json:"circulation_room_count"`

	OverlapTol float64 `yaml:"overlap_tol" json:"overlap_tol"`
	EdgeTol    float64 `yaml:"edge_tol" json:"edge_tol"`

	HardAdjacency []AdjacencyRule `yaml:"hard_adjacency" json:"hard_adjacency"`
	SoftAdjacency []AdjacencyRule `yaml:"soft_adjacency" json:"soft_adjacency"`
}

// DefaultCatalog returns the built-in national-baseline catalog. Loaded
// jurisdiction files overlay these values, never replace them wholesale.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Jurisdiction: "default",
		MinAreas: map[plan.RoomType]float64{
			plan.RoomBedroom:       9.0,
			plan.RoomMasterBedroom: 12.0,
			plan.RoomBathroom:      3.0,
			plan.RoomEnsuite:       2.5,
			plan.RoomKitchen:       8.0,
			plan.RoomLiving:        16.0,
			plan.RoomDining:        9.0,
			plan.RoomFamily:        12.0,
			plan.RoomGarage:        18.0,
			plan.RoomLaundry:       3.0,
			plan.RoomEntry:         2.0,
			plan.RoomStudy:         6.0,
			plan.RoomHomeOffice:    6.0,
			plan.RoomTheatre:       10.0,
			plan.RoomWIR:           2.0,
			plan.RoomPantry:        1.5,
			plan.RoomPowder:        1.5,
			plan.RoomAlfresco:      6.0,
		},
		MinDimensions: map[plan.RoomType]float64{
			plan.RoomBedroom:       2.6,
			plan.RoomMasterBedroom: 3.0,
			plan.RoomBathroom:      1.5,
			plan.RoomEnsuite:       1.5,
			plan.RoomKitchen:       1.8,
			plan.RoomLiving:        3.0,
			plan.RoomDining:        2.4,
			plan.RoomFamily:        3.0,
			plan.RoomGarage:        3.0,
			plan.RoomLaundry:       1.2,
			plan.RoomStudy:         2.0,
			plan.RoomHomeOffice:    2.0,
			plan.RoomTheatre:       2.8,
		},
		Habitable: map[plan.RoomType]bool{
			plan.RoomBedroom:       true,
			plan.RoomMasterBedroom: true,
			plan.RoomKitchen:       true,
			plan.RoomLiving:        true,
			plan.RoomDining:        true,
			plan.RoomFamily:        true,
			plan.RoomStudy:         true,
			plan.RoomHomeOffice:    true,
			plan.RoomTheatre:       true,
		},
		MinDoorWidthsMM: map[plan.DoorCategory]int{
			plan.DoorEntry:      870,
			plan.DoorInternal:   720,
			plan.DoorBathroom:   720,
			plan.DoorGarage:     820,
			plan.DoorAccessible: 850,
		},
		MinHallwayWidth:         1.0,
		RecommendedHallwayWidth: 1.2,
		MinCeilingHeight:        2.4,
		MinWetAreaDimension:     1.5,
		MinKitchenWidth:         1.8,
		MinWindowAreaRatio:      0.10,
		MinExternalWallLength:   1.5,
		MinDoorSwingDimension:   1.5,
		CirculationRoomCount:    6,
		OverlapTol:              geometry.DefaultOverlapTol,
		EdgeTol:                 geometry.DefaultEdgeTol,
		HardAdjacency: []AdjacencyRule{
			{A: plan.RoomEnsuite, B: plan.RoomMasterBedroom},
			{A: plan.RoomWIR, B: plan.RoomMasterBedroom},
			{A: plan.RoomPantry, B: plan.RoomKitchen},
		},
		SoftAdjacency: []AdjacencyRule{
			{A: plan.RoomKitchen, B: plan.RoomFamily},
			{A: plan.RoomFamily, B: plan.RoomAlfresco},
			{A: plan.RoomKitchen, B: plan.RoomDining},
		},
	}
}

// Validate reports whether the catalog is usable. A malformed catalog is
// a fatal configuration error, distinct from any validation outcome.
func (c *Catalog) Validate() error {
	if c.OverlapTol <= 0 || c.EdgeTol <= 0 {
		return fmt.Errorf("%w: tolerances must be positive", ErrMalformedCatalog)
	}
	if len(c.MinAreas) == 0 || len(c.MinDimensions) == 0 {
		return fmt.Errorf("%w: missing room size tables", ErrMalformedCatalog)
	}
	if c.MinHallwayWidth <= 0 || c.MinHallwayWidth > c.RecommendedHallwayWidth {
		return fmt.Errorf("%w: hallway widths out of order", ErrMalformedCatalog)
	}
	for _, rule := range append(append([]AdjacencyRule{}, c.HardAdjacency...), c.SoftAdjacency...) {
		if !plan.IsKnownRoomType(rule.A) || !plan.IsKnownRoomType(rule.B) {
			return fmt.Errorf("%w: adjacency rule references unknown room type %s/%s", ErrMalformedCatalog, rule.A, rule.B)
		}
	}
	return nil
}

// Merge overlays non-zero fields of o onto a copy of c. Map entries are
// merged key by key; adjacency lists replace only when provided.
func (c *Catalog) Merge(o *Catalog) *Catalog {
	out := *c
	out.MinAreas = mergeMap(c.MinAreas, o.MinAreas)
	out.MinDimensions = mergeMap(c.MinDimensions, o.MinDimensions)
	out.Habitable = mergeMap(c.Habitable, o.Habitable)
	out.MinDoorWidthsMM = mergeMap(c.MinDoorWidthsMM, o.MinDoorWidthsMM)

	if o.Jurisdiction != "" {
		out.Jurisdiction = o.Jurisdiction
	}
	if o.MinHallwayWidth > 0 {
		out.MinHallwayWidth = o.MinHallwayWidth
	}
	if o.RecommendedHallwayWidth > 0 {
		out.RecommendedHallwayWidth = o.RecommendedHallwayWidth
	}
	if o.MinCeilingHeight > 0 {
		out.MinCeilingHeight = o.MinCeilingHeight
	}
	if o.MinWetAreaDimension > 0 {
		out.MinWetAreaDimension = o.MinWetAreaDimension
	}
	if o.MinKitchenWidth > 0 {
		out.MinKitchenWidth = o.MinKitchenWidth
	}
	if o.MinWindowAreaRatio > 0 {
		out.MinWindowAreaRatio = o.MinWindowAreaRatio
	}
	if o.MinExternalWallLength > 0 {
		out.MinExternalWallLength = o.MinExternalWallLength
	}
	if o.MinDoorSwingDimension > 0 {
		out.MinDoorSwingDimension = o.MinDoorSwingDimension
	}
	if o.CirculationRoomCount > 0 {
		out.CirculationRoomCount = o.CirculationRoomCount
	}
	if o.OverlapTol > 0 {
		out.OverlapTol = o.OverlapTol
	}
	if o.EdgeTol > 0 {
		out.EdgeTol = o.EdgeTol
	}
	if len(o.HardAdjacency) > 0 {
		out.HardAdjacency = o.HardAdjacency
	}
	if len(o.SoftAdjacency) > 0 {
		out.SoftAdjacency = o.SoftAdjacency
	}
	return &out
}

func mergeMap[K comparable, V any](base, overlay map[K]V) map[K]V {
	out := make(map[K]V, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

// DoorMinimumMM returns the catalog minimum for a door, deriving the
// category from the room type when the door does not carry one.
func (c *Catalog) DoorMinimumMM(room *plan.Room, d plan.Door) (plan.DoorCategory, int) {
	cat := d.Category
	if cat == "" {
		switch room.Type {
		case plan.RoomGarage:
			cat = plan.DoorGarage
		case plan.RoomBathroom, plan.RoomEnsuite, plan.RoomPowder:
			cat = plan.DoorBathroom
		case plan.RoomEntry:
			cat = plan.DoorEntry
		default:
			cat = plan.DoorInternal
		}
	}
	return cat, c.MinDoorWidthsMM[cat]
}

// IsHabitable reports whether the room type needs natural light under
// the catalog.
func (c *Catalog) IsHabitable(t plan.RoomType) bool {
	return c.Habitable[t]
}
