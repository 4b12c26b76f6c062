// Package plan defines the floor-plan data model: rooms, layouts, the
// building envelope, and the requirements spec that drives generation.
// Values are immutable once produced; each generation attempt yields a
// fresh Layout.
package plan

import (
	"github.com/planwright/planwright/internal/geometry"
)

// RoomType is the closed room-type vocabulary.
type RoomType string

const (
	RoomBedroom       RoomType = "bedroom"
	RoomMasterBedroom RoomType = "master_bedroom"
	RoomBathroom      RoomType = "bathroom"
	RoomEnsuite       RoomType = "ensuite"
	RoomKitchen       RoomType = "kitchen"
	RoomLiving        RoomType = "living"
	RoomDining        RoomType = "dining"
	RoomFamily        RoomType = "family"
	RoomGarage        RoomType = "garage"
	RoomLaundry       RoomType = "laundry"
	RoomHallway       RoomType = "hallway"
	RoomEntry         RoomType = "entry"
	RoomAlfresco      RoomType = "alfresco"
	RoomStudy         RoomType = "study"
	RoomTheatre       RoomType = "theatre"
	RoomWIR           RoomType = "wir"
	RoomPantry        RoomType = "pantry"
	RoomPowder        RoomType = "powder"
	RoomHomeOffice    RoomType = "home_office"
)

// KnownRoomTypes lists every type in the vocabulary. External proposers
// are sanitized against this set.
var KnownRoomTypes = []RoomType{
	RoomBedroom, RoomMasterBedroom, RoomBathroom, RoomEnsuite,
	RoomKitchen, RoomLiving, RoomDining, RoomFamily, RoomGarage,
	RoomLaundry, RoomHallway, RoomEntry, RoomAlfresco, RoomStudy,
	RoomTheatre, RoomWIR, RoomPantry, RoomPowder, RoomHomeOffice,
}

// IsKnownRoomType reports whether t belongs to the closed vocabulary.
func IsKnownRoomType(t RoomType) bool {
	for _, k := range KnownRoomTypes {
		if k == t {
			return true
		}
	}
	return false
}

// IsOutdoor reports whether the type is excluded from total_area.
func (t RoomType) IsOutdoor() bool {
	return t == RoomAlfresco
}

// IsLivingArea reports whether the type counts toward living_area.
func (t RoomType) IsLivingArea() bool {
	switch t {
	case RoomLiving, RoomKitchen, RoomDining, RoomFamily:
		return true
	}
	return false
}

// IsBathroomLike reports whether the type counts toward the bathroom
// requirement. Powder rooms count as a half.
func (t RoomType) IsBathroomLike() bool {
	switch t {
	case RoomBathroom, RoomEnsuite, RoomPowder:
		return true
	}
	return false
}

// WallSide identifies one of the four walls of a room. North is the
// front of the lot (y = 0), so a room's north wall is its top edge.
type WallSide string

const (
	WallNorth WallSide = "north"
	WallSouth WallSide = "south"
	WallEast  WallSide = "east"
	WallWest  WallSide = "west"
)

// DoorCategory selects the minimum-width row in the rule catalog.
type DoorCategory string

const (
	DoorEntry      DoorCategory = "entry"
	DoorInternal   DoorCategory = "internal"
	DoorBathroom   DoorCategory = "bathroom"
	DoorGarage     DoorCategory = "garage"
	DoorAccessible DoorCategory = "accessible"
)

// Door is an opening in a room wall. Offset is measured in meters from
// the wall's start (left or top end); WidthMM is the leaf width.
type Door struct {
	Wall     WallSide     `json:"wall"`
	Offset   float64      `json:"offset"`
	WidthMM  int          `json:"width_mm"`
	Category DoorCategory `json:"category,omitempty"`
}

// Window is a glazed opening. Width and Height are in meters.
type Window struct {
	Wall   WallSide `json:"wall"`
	Offset float64  `json:"offset"`
	Width  float64  `json:"width"`
	Height float64  `json:"height"`
}

// Room is one axis-aligned space in a layout. Position is the top-left
// corner in meters, relative to the envelope origin.
type Room struct {
	ID       string   `json:"id"`
	Type     RoomType `json:"type"`
	Name     string   `json:"name"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Width    float64  `json:"width"`
	Depth    float64  `json:"depth"`
	Area     float64  `json:"area"`
	Storey   int      `json:"storey"`
	Doors    []Door   `json:"doors,omitempty"`
	Windows  []Window `json:"windows,omitempty"`
	Features []string `json:"features,omitempty"`
}

// Bounds returns the room footprint as a geometry rectangle.
func (r *Room) Bounds() geometry.Rect {
	return geometry.Rect{X: r.X, Y: r.Y, W: r.Width, D: r.Depth}
}

// MinDimension returns the smaller of width and depth.
func (r *Room) MinDimension() float64 {
	return r.Bounds().MinDimension()
}

// WallLength returns the length of the given wall.
func (r *Room) WallLength(side WallSide) float64 {
	switch side {
	case WallNorth, WallSouth:
		return r.Width
	default:
		return r.Depth
	}
}

// Label returns the display name, falling back to the room type.
func (r *Room) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return string(r.Type)
}
