package generation

import (
	"context"

	"go.uber.org/zap"

	"proposals/api/internal/money"
	"proposals/api/internal/proposal"
)

// expectedSections is the section count of a complete proposal, used only to
// estimate progress.
const expectedSections = 6

// MaxStreamingProgress caps progress until the stream has finished.
const MaxStreamingProgress = 95

// Assembler consumes generator snapshots and republishes priced sections.
type Assembler struct {
	primary  Generator
	fallback Generator
	logger   *zap.Logger
}

func NewAssembler(primary, fallback Generator, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{primary: primary, fallback: fallback, logger: logger}
}

// Generate runs one generation request. Each snapshot replaces the previous
// state, has its hours rounded to whole numbers and its prices recomputed from
// the hourly rate, and is reconciled to the project budget when one is given.
// onUpdate receives every assembled snapshot; the last one is returned.
// A primary stream that closes without a single snapshot is treated as a
// failure and the fallback runs once in its place.
func (a *Assembler) Generate(ctx context.Context, in Input, onUpdate UpdateFunc) ([]proposal.Section, error) {
	stream, fromPrimary, err := a.open(ctx, in)
	if err != nil {
		return nil, err
	}

	latest, received := a.consume(stream, in, onUpdate)
	if received > 0 || !fromPrimary || a.fallback == nil {
		return latest, nil
	}
	if err := ctx.Err(); err != nil {
		return latest, err
	}

	a.logger.Warn("generation endpoint returned no sections, using local fallback")
	stream, err = a.fallback.Generate(ctx, in)
	if err != nil {
		return nil, err
	}
	latest, _ = a.consume(stream, in, onUpdate)
	return latest, nil
}

func (a *Assembler) consume(stream <-chan Snapshot, in Input, onUpdate UpdateFunc) ([]proposal.Section, int) {
	latest := []proposal.Section{}
	received := 0
	for snapshot := range stream {
		received++
		latest = Assemble(snapshot.Sections, in)
		if onUpdate != nil {
			onUpdate(Update{Sections: proposal.Clone(latest), Progress: Progress(len(latest))})
		}
	}
	return latest, received
}

func (a *Assembler) open(ctx context.Context, in Input) (<-chan Snapshot, bool, error) {
	if a.primary != nil {
		stream, err := a.primary.Generate(ctx, in)
		if err == nil {
			return stream, true, nil
		}
		if a.fallback == nil {
			return nil, false, err
		}
		a.logger.Warn("generation endpoint failed, using local fallback", zap.Error(err))
	}
	if a.fallback == nil {
		return nil, false, ErrNotConfigured
	}
	stream, err := a.fallback.Generate(ctx, in)
	return stream, false, err
}

// Assemble prices a snapshot. The generator's prices are discarded; only its
// hours, names and descriptions are kept.
func Assemble(sections []proposal.Section, in Input) []proposal.Section {
	out := proposal.Clone(sections)
	rate := in.Rate()
	for si := range out {
		items := out[si].Items
		for ii := range items {
			hours := money.Round(money.OrZero(items[ii].Hours))
			items[ii].Hours = hours
			items[ii].Price = hours * rate
		}
	}
	proposal.RecalculateSubtotals(out)
	if in.ProjectBudget > 0 {
		proposal.AdjustSectionsToMatchBudget(out, in.ProjectBudget, rate, true)
	}
	return out
}

// Progress estimates completion from the number of sections received.
func Progress(sectionCount int) int {
	progress := sectionCount * 100 / expectedSections
	if progress > MaxStreamingProgress {
		return MaxStreamingProgress
	}
	return progress
}
