// Package proposer provides layout proposers for the correction engine:
// a deterministic one backed by the row generator, and an adapter that
// asks an OpenAI-compatible model for a revised layout.
package proposer

import (
	"context"
	"fmt"
	"sync"

	"github.com/planwright/planwright/internal/generate"
	"github.com/planwright/planwright/internal/logger"
	"github.com/planwright/planwright/internal/plan"
)

var log = logger.ForComponent("proposer")

// GeneratorProposer proposes layouts from the deterministic generator,
// rotating through its variants on successive calls so retries don't
// resubmit an identical layout. It is safe for concurrent use.
type GeneratorProposer struct {
	gen *generate.Generator

	mu   sync.Mutex
	next int
}

func NewGeneratorProposer() *GeneratorProposer {
	return &GeneratorProposer{gen: generate.New()}
}

// Propose returns the next variant's layout. Feedback is ignored: the
// generator is not steerable, variety comes from variant rotation.
func (p *GeneratorProposer) Propose(ctx context.Context, req *plan.Requirements, feedback string) (*plan.Layout, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	variants := p.gen.Variants()
	p.mu.Lock()
	variant := variants[p.next%len(variants)]
	p.next++
	p.mu.Unlock()

	layout, err := p.gen.GenerateVariant(req, variant)
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", variant.Name, err)
	}
	log.Debug("generated proposal", "variant", variant.Name, "rooms", len(layout.Rooms))
	return layout, nil
}
