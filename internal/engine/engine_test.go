package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planwright/planwright/internal/plan"
	"github.com/planwright/planwright/internal/rules"
	"github.com/planwright/planwright/internal/scoring"
)

func testReq() *plan.Requirements {
	return &plan.Requirements{LandWidth: 14, LandDepth: 25, Storeys: 1}
}

func room(t plan.RoomType, name string, x, y, w, d float64) plan.Room {
	return plan.Room{
		ID: name, Type: t, Name: name,
		X: x, Y: y, Width: w, Depth: d,
		Area: w * d, Storey: 1,
	}
}

// passingLayout clears every rule for testReq.
func passingLayout() *plan.Layout {
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
		ID:       "passing",
		Envelope: plan.Envelope{Width: 12.2, Depth: 18},
		Rooms:    []plan.Room{entry, kitchen, living},
	}
	l.ComputeTotals()
	return l
}

// failingLayout always scores below the threshold: no kitchen, no
// living, and a heap of undersized bedrooms.
func failingLayout() *plan.Layout {
	l := &plan.Layout{Envelope: plan.Envelope{Width: 12.2, Depth: 18}}
	for i := 0; i < 6; i++ {
		l.Rooms = append(l.Rooms, room(plan.RoomBedroom, "Bedroom", float64(i)*2, 0, 1.5, 1.5))
	}
	l.ComputeTotals()
	return l
}

func newTestEngine(t *testing.T, p Proposer) *Engine {
	t.Helper()
	e, err := New(p, rules.DefaultCatalog(), Options{
		MaxIterations:    5,
		IterationTimeout: time.Second,
		Scoring:          scoring.DefaultOptions(),
	})
	require.NoError(t, err)
	return e
}

func TestRunPassesFirstIteration(t *testing.T) {
	e := newTestEngine(t, ProposeFunc(func(ctx context.Context, req *plan.Requirements, feedback string) (*plan.Layout, error) {
		return passingLayout(), nil
	}))

	res, err := e.Run(context.Background(), testReq())
	require.NoError(t, err)

	assert.True(t, res.Passed)
	assert.Equal(t, 1, res.Iterations)
	require.NotNil(t, res.Best)
	assert.Equal(t, 100, res.Best.Result.Score)
	assert.Len(t, res.Attempts, 1)
}

func TestRunFeedsFeedbackForward(t *testing.T) {
	var seen []string
	e := newTestEngine(t, ProposeFunc(func(ctx context.Context, req *plan.Requirements, feedback string) (*plan.Layout, error) {
		seen = append(seen, feedback)
		if len(seen) < 3 {
			return failingLayout(), nil
		}
		return passingLayout(), nil
	}))

	res, err := e.Run(context.Background(), testReq())
	require.NoError(t, err)

	assert.True(t, res.Passed)
	assert.Equal(t, 3, res.Iterations)

	require.Len(t, seen, 3)
	assert.Empty(t, seen[0], "first proposal gets no feedback")
	assert.NotEmpty(t, seen[1])
	assert.NotEmpty(t, seen[2])
}

func TestRunExhaustsBudgetAndKeepsBest(t *testing.T) {
	better := passingLayout()
	// spoil the good layout just enough to fail: drop the kitchen
	better.Rooms = append(better.Rooms[:1], better.Rooms[2])
	better.ComputeTotals()

	call := 0
	e := newTestEngine(t, ProposeFunc(func(ctx context.Context, req *plan.Requirements, feedback string) (*plan.Layout, error) {
		call++
		if call == 3 {
			return better, nil
		}
		return failingLayout(), nil
	}))

	res, err := e.Run(context.Background(), testReq())
	require.NoError(t, err)

	assert.False(t, res.Passed)
	assert.Equal(t, 5, res.Iterations)
	assert.Len(t, res.Attempts, 5)
	require.NotNil(t, res.Best)
	assert.Equal(t, 3, res.Best.Iteration)
}

func TestRunAllProposalsFail(t *testing.T) {
	e := newTestEngine(t, ProposeFunc(func(ctx context.Context, req *plan.Requirements, feedback string) (*plan.Layout, error) {
		return nil, errors.New("model unavailable")
	}))

	res, err := e.Run(context.Background(), testReq())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrNoProposal)
}

func TestRunNilLayoutConsumesIteration(t *testing.T) {
	call := 0
	e := newTestEngine(t, ProposeFunc(func(ctx context.Context, req *plan.Requirements, feedback string) (*plan.Layout, error) {
		call++
		if call == 1 {
			return nil, nil
		}
		return passingLayout(), nil
	}))

	res, err := e.Run(context.Background(), testReq())
	require.NoError(t, err)

	assert.True(t, res.Passed)
	assert.Equal(t, 2, res.Iterations)
	assert.NotEmpty(t, res.Attempts[0].Err)
}

func TestRunIterationTimeout(t *testing.T) {
	e, err := New(ProposeFunc(func(ctx context.Context, req *plan.Requirements, feedback string) (*plan.Layout, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return passingLayout(), nil
		}
	}), rules.DefaultCatalog(), Options{
		MaxIterations:    2,
		IterationTimeout: 20 * time.Millisecond,
		Scoring:          scoring.DefaultOptions(),
	})
	require.NoError(t, err)

	_, err = e.Run(context.Background(), testReq())
	assert.ErrorIs(t, err, ErrNoProposal)
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newTestEngine(t, ProposeFunc(func(ctx context.Context, req *plan.Requirements, feedback string) (*plan.Layout, error) {
		return failingLayout(), nil
	}))

	_, err := e.Run(ctx, testReq())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunRejectsInvalidRequirements(t *testing.T) {
	calls := 0
	e := newTestEngine(t, ProposeFunc(func(ctx context.Context, req *plan.Requirements, feedback string) (*plan.Layout, error) {
		calls++
		return passingLayout(), nil
	}))

	req := testReq()
	req.Bedrooms = 99
	_, err := e.Run(context.Background(), req)

	assert.Error(t, err)
	assert.Zero(t, calls, "no proposal for a malformed brief")
}

func TestNewRejectsMalformedCatalog(t *testing.T) {
	bad := rules.DefaultCatalog()
	bad.EdgeTol = 0

	_, err := New(ProposeFunc(func(ctx context.Context, req *plan.Requirements, feedback string) (*plan.Layout, error) {
		return nil, nil
	}), bad, DefaultOptions())

	assert.ErrorIs(t, err, rules.ErrMalformedCatalog)
}

func TestValidateScoresDirectly(t *testing.T) {
	e := newTestEngine(t, ProposeFunc(func(ctx context.Context, req *plan.Requirements, feedback string) (*plan.Layout, error) {
		return nil, nil
	}))

	res := e.Validate(passingLayout(), testReq())
	assert.True(t, res.Passed)

	res = e.Validate(failingLayout(), testReq())
	assert.False(t, res.Passed)
}
