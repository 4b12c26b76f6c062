package scoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planwright/planwright/internal/plan"
	"github.com/planwright/planwright/internal/rules"
)

func room(t plan.RoomType, name string, x, y, w, d float64) plan.Room {
	return plan.Room{
		ID: name, Type: t, Name: name,
		X: x, Y: y, Width: w, Depth: d,
		Area: w * d, Storey: 1,
	}
}

// cleanLayout builds a small plan that clears every rule: entry, kitchen
// and living across the front of a 12x18 envelope.
func cleanLayout() *plan.Layout {
	entry := room(plan.RoomEntry, "Entry", 0, 0, 3, 3)
	entry.Doors = []plan.Door{
		{Wall: plan.WallNorth, Offset: 1, WidthMM: 920, Category: plan.DoorEntry},
		{Wall: plan.WallSouth, Offset: 1, WidthMM: 870, Category: plan.DoorInternal},
	}

	kitchen := room(plan.RoomKitchen, "Kitchen", 3, 0, 4, 5)
	kitchen.Doors = []plan.Door{{Wall: plan.WallWest, Offset: 1, WidthMM: 820, Category: plan.DoorInternal}}
	kitchen.Windows = []plan.Window{{Wall: plan.WallNorth, Offset: 1, Width: 1.5, Height: 1.5}}

	living := room(plan.RoomLiving, "Living", 7, 0, 5, 5)
	living.Doors = []plan.Door{{Wall: plan.WallWest, Offset: 1, WidthMM: 820, Category: plan.DoorInternal}}
	living.Windows = []plan.Window{{Wall: plan.WallNorth, Offset: 1, Width: 3, Height: 1.5}}

	l := &plan.Layout{
		ID:       "clean",
		Envelope: plan.Envelope{Width: 12, Depth: 18},
		Rooms:    []plan.Room{entry, kitchen, living},
	}
	l.ComputeTotals()
	return l
}

func emptyReq() *plan.Requirements {
	return &plan.Requirements{LandWidth: 14, LandDepth: 25, Storeys: 1}
}

func TestScoreCleanLayout(t *testing.T) {
	res := Score(cleanLayout(), emptyReq(), rules.DefaultCatalog(), DefaultOptions())

	assert.True(t, res.Passed)
	assert.Equal(t, 100, res.Score)
	assert.Empty(t, res.HardFailures)
	assert.Empty(t, res.Issues)
	assert.Equal(t, "Layout complies with all checked rules.", res.Feedback)
}

func TestScoreCriticalIssueBlocksPass(t *testing.T) {
	l := cleanLayout()
	// 8.7m² bedroom: under the 9m² minimum, nothing else wrong
	bed := room(plan.RoomBedroom, "Bedroom 2", 0, 3, 3, 2.9)
	l.Rooms = append(l.Rooms, bed)
	l.ComputeTotals()

	res := Score(l, emptyReq(), rules.DefaultCatalog(), DefaultOptions())

	assert.Equal(t, 85, res.Score)
	assert.Equal(t, 1, res.CriticalCount())
	// score clears the threshold, the critical gate still fails it
	assert.False(t, res.Passed)
	assert.True(t, strings.HasPrefix(res.Feedback, "Must fix:"))
}

func TestScoreOverlapIsHardFailure(t *testing.T) {
	l := cleanLayout()
	l.Rooms = append(l.Rooms, room(plan.RoomStudy, "Study", 3.5, 0.5, 3, 3))
	l.ComputeTotals()

	res := Score(l, emptyReq(), rules.DefaultCatalog(), DefaultOptions())

	assert.False(t, res.Passed)
	require.NotEmpty(t, res.HardFailures)
	assert.Contains(t, res.HardFailures[0], "overlaps")
}

func TestScoreOverlapIgnoredAcrossStoreys(t *testing.T) {
	l := cleanLayout()
	upstairs := room(plan.RoomStudy, "Study", 3.5, 0.5, 3, 3)
	upstairs.Storey = 2
	upstairs.Windows = []plan.Window{{Wall: plan.WallNorth, Offset: 0.5, Width: 1.5, Height: 1.5}}
	upstairs.Doors = []plan.Door{{Wall: plan.WallSouth, Offset: 1, WidthMM: 820, Category: plan.DoorInternal}}
	l.Rooms = append(l.Rooms, upstairs)
	l.ComputeTotals()

	res := Score(l, emptyReq(), rules.DefaultCatalog(), DefaultOptions())
	for _, f := range res.HardFailures {
		assert.NotContains(t, f, "overlaps")
	}
}

func TestScoreEnvelopeEscapeIsHardFailure(t *testing.T) {
	l := cleanLayout()
	l.Rooms = append(l.Rooms, room(plan.RoomStudy, "Study", 10, 14, 4, 3.5))
	l.ComputeTotals()

	res := Score(l, emptyReq(), rules.DefaultCatalog(), DefaultOptions())

	assert.False(t, res.Passed)
	found := false
	for _, f := range res.HardFailures {
		if strings.Contains(f, "envelope") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestScoreRoomCountShortfalls(t *testing.T) {
	catalog := rules.DefaultCatalog()

	t.Run("missing bedrooms", func(t *testing.T) {
		req := emptyReq()
		req.Bedrooms = 3
		res := Score(cleanLayout(), req, catalog, DefaultOptions())
		assert.False(t, res.Passed)
		assert.Contains(t, strings.Join(res.HardFailures, "\n"), "bedrooms")
	})

	t.Run("powder room counts as half a bathroom", func(t *testing.T) {
		req := emptyReq()
		req.Bathrooms = 1.5

		l := cleanLayout()
		bath := room(plan.RoomBathroom, "Bathroom", 0, 3, 2, 2.5)
		powder := room(plan.RoomPowder, "Powder", 2, 3, 1.8, 1.8)
		l.Rooms = append(l.Rooms, bath, powder)
		l.ComputeTotals()

		res := Score(l, req, catalog, DefaultOptions())
		assert.NotContains(t, strings.Join(res.HardFailures, "\n"), "bathrooms")
	})

	t.Run("garage too small for the car count", func(t *testing.T) {
		req := emptyReq()
		req.GarageSpaces = 2

		l := cleanLayout()
		l.Rooms = append(l.Rooms, room(plan.RoomGarage, "Garage", 0, 12, 4, 5))
		l.ComputeTotals()

		res := Score(l, req, catalog, DefaultOptions())
		assert.Contains(t, strings.Join(res.HardFailures, "\n"), "fewer than 2 cars")
	})

	t.Run("garage sized for the car count", func(t *testing.T) {
		req := emptyReq()
		req.GarageSpaces = 2

		l := cleanLayout()
		l.Rooms = append(l.Rooms, room(plan.RoomGarage, "Garage", 0, 12, 6, 5.5))
		l.ComputeTotals()

		res := Score(l, req, catalog, DefaultOptions())
		assert.Empty(t, res.HardFailures)
	})

	t.Run("no kitchen", func(t *testing.T) {
		l := cleanLayout()
		l.Rooms = l.Rooms[:1] // entry only
		l.Rooms = append(l.Rooms, room(plan.RoomLiving, "Living", 7, 0, 5, 5))
		l.Rooms[1].Windows = []plan.Window{{Wall: plan.WallNorth, Offset: 1, Width: 3, Height: 1.5}}
		l.Rooms[1].Doors = []plan.Door{{Wall: plan.WallWest, Offset: 1, WidthMM: 820, Category: plan.DoorInternal}}
		l.ComputeTotals()

		res := Score(l, emptyReq(), rules.DefaultCatalog(), DefaultOptions())
		assert.False(t, res.Passed)
		assert.Contains(t, strings.Join(res.HardFailures, "\n"), "no kitchen")
	})

	t.Run("family room counts as living space", func(t *testing.T) {
		l := cleanLayout()
		l.Rooms = l.Rooms[:1] // entry only
		fam := room(plan.RoomFamily, "Family", 7, 0, 5, 5)
		fam.Windows = []plan.Window{{Wall: plan.WallNorth, Offset: 1, Width: 3, Height: 1.5}}
		fam.Doors = []plan.Door{{Wall: plan.WallWest, Offset: 1, WidthMM: 820, Category: plan.DoorInternal}}
		l.Rooms = append(l.Rooms, fam)
		l.ComputeTotals()

		res := Score(l, emptyReq(), rules.DefaultCatalog(), DefaultOptions())
		joined := strings.Join(res.HardFailures, "\n")
		assert.Contains(t, joined, "no kitchen")
		assert.NotContains(t, joined, "living space")
	})
}

func TestScoreHardAdjacencyIsSoftFailure(t *testing.T) {
	l := cleanLayout()
	master := room(plan.RoomMasterBedroom, "Master Bedroom", 0, 3, 4, 3.6)
	master.Windows = []plan.Window{{Wall: plan.WallWest, Offset: 0.5, Width: 1.2, Height: 1.5}}
	master.Doors = []plan.Door{{Wall: plan.WallEast, Offset: 1, WidthMM: 820, Category: plan.DoorInternal}}
	ens := room(plan.RoomEnsuite, "Ensuite", 9, 14, 1.9, 2.4)
	ens.Doors = []plan.Door{{Wall: plan.WallNorth, Offset: 0.5, WidthMM: 720, Category: plan.DoorBathroom}}
	l.Rooms = append(l.Rooms, master, ens)
	l.ComputeTotals()

	res := Score(l, emptyReq(), rules.DefaultCatalog(), DefaultOptions())

	// the miss lands in soft failures: it degrades the score but does not
	// permanently block a pass on its own
	assert.Contains(t, strings.Join(res.SoftFailures, "\n"), "share a wall")
	assert.NotContains(t, strings.Join(res.HardFailures, "\n"), "share a wall")
}

func TestScoreClampsToZero(t *testing.T) {
	// a pile of hopeless rooms
	l := &plan.Layout{Envelope: plan.Envelope{Width: 12, Depth: 18}}
	for i := 0; i < 10; i++ {
		l.Rooms = append(l.Rooms, room(plan.RoomBedroom, "Bedroom", float64(i)*0.5, float64(i)*0.5, 1, 1))
	}
	l.ComputeTotals()

	req := emptyReq()
	req.Bedrooms = 8
	res := Score(l, req, rules.DefaultCatalog(), DefaultOptions())

	assert.Equal(t, 0, res.Score)
	assert.False(t, res.Passed)
}

func TestRenderFeedbackSectionsAndOverflow(t *testing.T) {
	res := &Result{
		HardFailures: []string{"a overlaps b"},
		SoftFailures: []string{"consider placing kitchen next to dining"},
	}
	for i := 0; i < 7; i++ {
		res.Issues = append(res.Issues, rules.Issue{
			Code: "ROOM_TOO_SMALL", Message: "room too small", Severity: rules.SeverityCritical,
		})
	}

	text := RenderFeedback(res)

	assert.True(t, strings.HasPrefix(text, "Must fix:"))
	assert.Contains(t, text, "Structural problems:")
	assert.Contains(t, text, "Suggestions:")
	assert.Contains(t, text, "- and 2 more")
	assert.NotContains(t, text, "Errors:")
}
