// Package generate implements the deterministic rule-based layout
// generator. Placement is row-based along the depth axis, left to right
// within a row: entry and garage on the front boundary, bedroom rows in
// the middle with bedrooms at the row ends so every habitable room keeps
// an external wall, and the open-plan living zone across the rear.
//
// Generation is a pure function: identical requirements and variant
// parameters always produce identical layouts, coordinate for
// coordinate. The generator guarantees by construction that no two
// rooms overlap and every room lies inside the envelope; compliance
// beyond that is the checker's verdict, not a promise.
package generate

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/planwright/planwright/internal/plan"
)

// Base cell widths in meters, before row normalization.
const (
	widthMaster   = 4.0
	widthBedroom  = 3.0
	widthEnsuite  = 1.9
	widthWIR      = 1.7
	widthBathroom = 2.4
	widthPowder   = 1.2
	widthEntry    = 2.0
	widthLaundry  = 1.8
	widthStudy    = 3.0
	widthTheatre  = 4.0
	widthAlfresco = 4.5
	perCarWidth   = 3.0
)

// Base row depths in meters, scaled down proportionally when the
// envelope is shallower than the stack of rows.
const (
	depthFrontRow   = 6.0
	depthFrontNoGar = 3.0
	depthHallway    = 1.5
	depthBedroomRow = 3.6
	depthLivingRow  = 4.5
	depthGarage     = 6.0
)

const windowHeight = 1.5

// layoutNamespace seeds deterministic UUIDs so repeated generation of
// the same requirements yields byte-identical layouts.
var layoutNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("planwright/layout"))

// Generator produces candidate layouts from a requirements spec.
type Generator struct{}

func New() *Generator {
	return &Generator{}
}

// Variants returns the generation strategies in preference order.
func (g *Generator) Variants() []plan.Variant {
	return []plan.Variant{
		{Name: "classic", Description: "full-depth rows, generous living zone", Scale: 1.0},
		{Name: "compact", Description: "tighter service core, deeper rear living zone", Scale: 0.92},
	}
}

// Generate produces the preferred (classic) layout for the spec.
func (g *Generator) Generate(req *plan.Requirements) (*plan.Layout, error) {
	return g.GenerateVariant(req, g.Variants()[0])
}

// GenerateAll produces one layout per variant, in variant order.
func (g *Generator) GenerateAll(req *plan.Requirements) ([]*plan.Layout, error) {
	var out []*plan.Layout
	for _, v := range g.Variants() {
		l, err := g.GenerateVariant(req, v)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// GenerateVariant produces the layout for one named variant.
func (g *Generator) GenerateVariant(req *plan.Requirements, variant plan.Variant) (*plan.Layout, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	env := plan.EnvelopeFromLand(req.LandWidth, req.LandDepth)
	b := &builder{req: req, env: env, variant: variant}
	b.compose()

	l := &plan.Layout{
		ID:       uuid.NewSHA1(layoutNamespace, []byte(fmt.Sprintf("%+v|%s", *req, variant.Name))).String(),
		Envelope: plan.Envelope{Width: env.Width, Depth: env.Depth},
		Variant:  variant,
		Rooms:    b.realize(),
	}
	l.ComputeTotals()
	return l, nil
}

// cell is one room slot within a row. Flex cells absorb leftover row
// width; habitable cells are only ever placed at row ends or on
// boundary rows so they keep an external wall.
type cell struct {
	t    plan.RoomType
	name string
	w    float64
	flex bool
}

type row struct {
	cells []cell
	depth float64
}

type builder struct {
	req     *plan.Requirements
	env     plan.Envelope
	variant plan.Variant

	// rows by storey, front to rear
	storeys [][]row
}

func (b *builder) compose() {
	scale := b.variant.Scale
	bedrooms := b.req.Bedrooms
	if bedrooms < 1 {
		bedrooms = 1
	}
	bathrooms := b.req.Bathrooms
	if bathrooms < 1 {
		bathrooms = 1
	}

	ground := []row{b.frontRow(scale), b.hallwayRow(scale, b.req.Alfresco)}

	bedRows := b.bedroomRows(scale, bedrooms, bathrooms)
	if b.req.Storeys == 2 {
		upper := append([]row{b.hallwayRow(scale, false)}, bedRows...)
		ground = append(ground, b.livingRow(scale))
		b.storeys = [][]row{ground, upper}
		return
	}

	ground = append(ground, bedRows...)
	ground = append(ground, b.livingRow(scale))
	b.storeys = [][]row{ground}
}

// frontRow lays the entry (flexing over leftover frontage), the garage
// on the street corner, and any optional front rooms.
func (b *builder) frontRow(scale float64) row {
	depth := depthFrontNoGar
	cells := []cell{{t: plan.RoomEntry, name: "Entry", w: widthEntry, flex: true}}

	if b.req.Study {
		cells = append(cells, cell{t: plan.RoomStudy, name: "Study", w: widthStudy})
	}
	if b.req.HomeOffice {
		cells = append(cells, cell{t: plan.RoomHomeOffice, name: "Home Office", w: widthStudy})
	}
	if b.req.Theatre {
		cells = append(cells, cell{t: plan.RoomTheatre, name: "Theatre", w: widthTheatre})
	}
	if b.req.GarageSpaces > 0 {
		depth = depthFrontRow
		cells = append(cells, cell{
			t:    plan.RoomGarage,
			name: "Garage",
			w:    perCarWidth * float64(b.req.GarageSpaces),
		})
	}

	return row{cells: cells, depth: depth * scale}
}

func (b *builder) hallwayRow(scale float64, alfresco bool) row {
	cells := []cell{{t: plan.RoomHallway, name: "Hallway", w: 4.0, flex: true}}
	if alfresco {
		cells = append(cells, cell{t: plan.RoomAlfresco, name: "Alfresco", w: widthAlfresco})
	}
	return row{cells: cells, depth: depthHallway * scale}
}

// bedroomRows packs the master cluster and the remaining bedrooms into
// rows. Bedrooms claim row ends (external walls); wet areas and robes
// fill the middles.
func (b *builder) bedroomRows(scale float64, bedrooms int, bathrooms float64) []row {
	var service []cell
	extraBaths := bathrooms - 1 // the ensuite covers the first
	n := 1
	for extraBaths >= 1 {
		n++
		name := "Bathroom"
		if n > 2 {
			name = fmt.Sprintf("Bathroom %d", n-1)
		}
		service = append(service, cell{t: plan.RoomBathroom, name: name, w: widthBathroom})
		extraBaths--
	}
	if extraBaths >= 0.5 {
		service = append(service, cell{t: plan.RoomPowder, name: "Powder", w: widthPowder})
	}

	var beds []cell
	for i := 2; i <= bedrooms; i++ {
		beds = append(beds, cell{t: plan.RoomBedroom, name: fmt.Sprintf("Bedroom %d", i), w: widthBedroom, flex: true})
	}

	// Master cluster row: master on the west wall, ensuite and robe
	// against it, the next bedroom holding the east wall.
	first := row{depth: depthBedroomRow * scale, cells: []cell{
		{t: plan.RoomMasterBedroom, name: "Master Bedroom", w: widthMaster, flex: true},
		{t: plan.RoomEnsuite, name: "Ensuite", w: widthEnsuite},
		{t: plan.RoomWIR, name: "Walk-in Robe", w: widthWIR},
	}}
	if len(beds) > 0 {
		first.cells = append(first.cells, beds[0])
		beds = beds[1:]
	}
	rows := []row{first}

	for len(beds) > 0 || len(service) > 0 {
		r := row{depth: depthBedroomRow * scale}
		if len(beds) > 0 {
			r.cells = append(r.cells, beds[0])
			beds = beds[1:]
		}
		for len(service) > 0 && len(r.cells) < 3 {
			r.cells = append(r.cells, service[0])
			service = service[1:]
		}
		if len(beds) > 0 {
			r.cells = append(r.cells, beds[0])
			beds = beds[1:]
		}
		rows = append(rows, r)
	}
	return rows
}

// livingRow spans the rear boundary: kitchen, dining and living (or a
// merged open-plan zone), with the laundry on the trailing edge.
func (b *builder) livingRow(scale float64) row {
	flexW := b.env.Width - widthLaundry
	if flexW < 3 {
		flexW = 3
	}

	var cells []cell
	if b.req.OpenPlan {
		cells = []cell{
			{t: plan.RoomKitchen, name: "Kitchen", w: flexW * 0.35, flex: true},
			{t: plan.RoomLiving, name: "Open Plan Living", w: flexW * 0.65, flex: true},
		}
	} else {
		cells = []cell{
			{t: plan.RoomKitchen, name: "Kitchen", w: flexW * 0.30, flex: true},
			{t: plan.RoomDining, name: "Dining", w: flexW * 0.30, flex: true},
			{t: plan.RoomLiving, name: "Living", w: flexW * 0.40, flex: true},
		}
	}
	cells = append(cells, cell{t: plan.RoomLaundry, name: "Laundry", w: widthLaundry})
	return row{cells: cells, depth: depthLivingRow * scale}
}

// realize turns the row plan into positioned rooms. Row depths are
// scaled to fit the envelope, the last row is stretched to the rear
// boundary, and every row is normalized to the envelope width, so
// containment and non-overlap hold by construction.
func (b *builder) realize() []plan.Room {
	var rooms []plan.Room
	for storey, rows := range b.storeys {
		total := 0.0
		for _, r := range rows {
			total += r.depth
		}
		factor := 1.0
		if total > b.env.Depth {
			factor = b.env.Depth / total
		}

		y := 0.0
		for ri, r := range rows {
			depth := r.depth * factor
			if ri == len(rows)-1 {
				depth = b.env.Depth - y // stretch to the rear boundary
			}
			b.placeRow(&rooms, r, storey+1, y, depth)
			y += depth
		}
	}
	return rooms
}

func (b *builder) placeRow(rooms *[]plan.Room, r row, storey int, y, depth float64) {
	widths := normalizeWidths(r.cells, b.env.Width)

	x := 0.0
	for i, c := range r.cells {
		w := widths[i]
		room := plan.Room{
			ID:     roomID(b.variant.Name, storey, len(*rooms), c.t),
			Type:   c.t,
			Name:   c.name,
			X:      round3(x),
			Y:      round3(y),
			Width:  round3(w),
			Depth:  round3(depth),
			Storey: storey,
		}
		room.Area = round3(room.Width * room.Depth)
		b.fitOut(&room, y == 0)
		*rooms = append(*rooms, room)
		x += w
	}
}

// normalizeWidths fits the row to the envelope width: leftover space is
// split among flex cells, and an over-wide row is scaled down whole.
func normalizeWidths(cells []cell, target float64) []float64 {
	widths := make([]float64, len(cells))
	sum := 0.0
	flexCount := 0
	for i, c := range cells {
		widths[i] = c.w
		sum += c.w
		if c.flex {
			flexCount++
		}
	}

	if sum > target {
		scale := target / sum
		for i := range widths {
			widths[i] *= scale
		}
		return widths
	}

	leftover := target - sum
	if flexCount == 0 {
		// no flex cell; widen the last so the row reaches the east wall
		widths[len(widths)-1] += leftover
		return widths
	}
	share := leftover / float64(flexCount)
	for i, c := range cells {
		if c.flex {
			widths[i] += share
		}
	}
	return widths
}

// fitOut synthesizes doors and windows for a placed room.
func (b *builder) fitOut(room *plan.Room, frontRow bool) {
	interiorWall := plan.WallNorth
	if frontRow {
		interiorWall = plan.WallSouth
	}

	switch room.Type {
	case plan.RoomEntry:
		room.Doors = append(room.Doors, door(room, plan.WallNorth, 920, plan.DoorEntry))
		room.Doors = append(room.Doors, door(room, plan.WallSouth, 870, plan.DoorInternal))
	case plan.RoomGarage:
		room.Doors = append(room.Doors, door(room, plan.WallNorth, int(room.Width*1000)-600, plan.DoorGarage))
	case plan.RoomBathroom, plan.RoomEnsuite, plan.RoomPowder:
		room.Doors = append(room.Doors, door(room, interiorWall, 720, plan.DoorBathroom))
	case plan.RoomHallway, plan.RoomAlfresco:
		// open circulation, no door leaf
	default:
		room.Doors = append(room.Doors, door(room, interiorWall, 820, plan.DoorInternal))
	}

	if side, ok := b.externalWall(room); ok && room.Type != plan.RoomGarage {
		room.Windows = append(room.Windows, window(room, side))
	}
}

// externalWall picks the preferred envelope-boundary wall of the room.
func (b *builder) externalWall(room *plan.Room) (plan.WallSide, bool) {
	const eps = 1e-6
	bounds := room.Bounds()
	switch {
	case b.env.Depth-bounds.Bottom() < eps:
		return plan.WallSouth, true
	case bounds.Y < eps:
		return plan.WallNorth, true
	case bounds.X < eps:
		return plan.WallWest, true
	case b.env.Width-bounds.Right() < eps:
		return plan.WallEast, true
	}
	return "", false
}

func door(room *plan.Room, side plan.WallSide, widthMM int, cat plan.DoorCategory) plan.Door {
	wall := room.WallLength(side)
	minMM := 620
	if widthMM < minMM {
		widthMM = minMM
	}
	if float64(widthMM)/1000 > wall {
		widthMM = int(wall * 1000 * 0.8)
	}
	return plan.Door{
		Wall:     side,
		Offset:   round3(math.Max(0, (wall-float64(widthMM)/1000)/2)),
		WidthMM:  widthMM,
		Category: cat,
	}
}

// window sizes glazing to comfortably clear the 10%-of-floor-area rule
// while fitting the wall.
func window(room *plan.Room, side plan.WallSide) plan.Window {
	wall := room.WallLength(side)
	w := room.Area * 0.12 / windowHeight
	if w < 0.6 {
		w = 0.6
	}
	if w > wall*0.8 {
		w = wall * 0.8
	}
	return plan.Window{
		Wall:   side,
		Offset: round3(math.Max(0, (wall-w)/2)),
		Width:  round3(w),
		Height: windowHeight,
	}
}

func roomID(variant string, storey, index int, t plan.RoomType) string {
	seed := fmt.Sprintf("%s|%d|%d|%s", variant, storey, index, t)
	return uuid.NewSHA1(layoutNamespace, []byte(seed)).String()
}

// round3 keeps coordinates at millimeter precision so serialized
// layouts round-trip exactly.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
