package generation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proposals/api/internal/proposal"
)

type failingGenerator struct {
	calls int
}

func (f *failingGenerator) Generate(context.Context, Input) (<-chan Snapshot, error) {
	f.calls++
	return nil, errors.New("network down")
}

type countingGenerator struct {
	inner Generator
	calls int
}

func (c *countingGenerator) Generate(ctx context.Context, in Input) (<-chan Snapshot, error) {
	c.calls++
	return c.inner.Generate(ctx, in)
}

func TestAssemblerPublishesEachSnapshot(t *testing.T) {
	srv := streamServer(t,
		`data: {"sections":[{"title":"Scope of Work","items":[{"item":"Build","description":"","hours":"9.6","price":"$5"}]}]}`,
		`data: {"sections":[{"title":"Scope of Work","items":[{"item":"Build","description":"","hours":"9.6","price":"$5"},{"item":"Test","description":"","hours":4,"price":"$1"}]}]}`,
		`data: [DONE]`,
	)

	asm := NewAssembler(NewHTTPGenerator(srv.URL, "", nil), NewFallbackGenerator(0), nil)
	var updates []Update
	result, err := asm.Generate(context.Background(), Input{HourlyRate: 100}, func(u Update) {
		updates = append(updates, u)
	})
	require.NoError(t, err)

	require.Len(t, updates, 2)
	assert.Equal(t, updates[len(updates)-1].Sections, result)

	items := result[0].Items
	assert.Equal(t, 10.0, items[0].Hours)
	assert.Equal(t, 1000.0, items[0].Price)
	assert.Equal(t, 400.0, items[1].Price)
	assert.Equal(t, 1400.0, result[0].Subtotal)
	assert.Equal(t, 16, updates[0].Progress)
}

func TestAssemblerFallsBackOnce(t *testing.T) {
	primary := &failingGenerator{}
	fallback := &countingGenerator{inner: NewFallbackGenerator(0)}
	asm := NewAssembler(primary, fallback, nil)

	calls := 0
	result, err := asm.Generate(context.Background(), Input{Prompt: "Build a portal", HourlyRate: 100, ProjectBudget: 5000}, func(u Update) {
		calls++
		assert.LessOrEqual(t, u.Progress, MaxStreamingProgress)
	})
	require.NoError(t, err)

	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
	assert.Equal(t, expectedSections, calls)
	require.Len(t, result, expectedSections)
	assert.InDelta(t, 5000, proposal.Total(result), float64(proposal.ItemCount(result))*0.5)
}

func TestAssemblerFallsBackWhenEndpointSendsNoSections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":"model overloaded"}`))
	}))
	defer srv.Close()

	fallback := &countingGenerator{inner: NewFallbackGenerator(0)}
	asm := NewAssembler(NewHTTPGenerator(srv.URL, "", nil), fallback, nil)

	calls := 0
	result, err := asm.Generate(context.Background(), Input{Prompt: "Build a portal", HourlyRate: 100}, func(Update) {
		calls++
	})
	require.NoError(t, err)

	assert.Equal(t, 1, fallback.calls)
	assert.Equal(t, expectedSections, calls)
	require.Len(t, result, expectedSections)
	assert.Equal(t, "Introduction", result[0].Title)
}

func TestAssemblerFallsBackWhenStreamEndsEmpty(t *testing.T) {
	srv := streamServer(t, `data: {"partial":`, `data: [DONE]`)

	fallback := &countingGenerator{inner: NewFallbackGenerator(0)}
	asm := NewAssembler(NewHTTPGenerator(srv.URL, "", nil), fallback, nil)

	result, err := asm.Generate(context.Background(), Input{HourlyRate: 100}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, fallback.calls)
	assert.Len(t, result, expectedSections)
}

func TestAssemblerDoesNotRetryEmptyFallback(t *testing.T) {
	empty := &countingGenerator{inner: emptyGenerator{}}
	asm := NewAssembler(nil, empty, nil)

	result, err := asm.Generate(context.Background(), Input{}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, empty.calls)
	assert.Empty(t, result)
}

type emptyGenerator struct{}

func (emptyGenerator) Generate(context.Context, Input) (<-chan Snapshot, error) {
	out := make(chan Snapshot)
	close(out)
	return out, nil
}

func TestAssemblerWithoutFallbackReturnsError(t *testing.T) {
	asm := NewAssembler(&failingGenerator{}, nil, nil)
	_, err := asm.Generate(context.Background(), Input{}, nil)
	assert.EqualError(t, err, "network down")
}

func TestAssembleOverridesGeneratorPrices(t *testing.T) {
	sections := []proposal.Section{{Title: "S", Items: []proposal.Item{
		{Name: "a", Hours: 2.4, Price: 99999},
		{Name: "b", Hours: 7.5, Price: 1},
	}}}

	out := Assemble(sections, Input{FreelancerRate: 80})

	assert.Equal(t, 2.0, out[0].Items[0].Hours)
	assert.Equal(t, 160.0, out[0].Items[0].Price)
	assert.Equal(t, 8.0, out[0].Items[1].Hours)
	assert.Equal(t, 640.0, out[0].Items[1].Price)
	assert.Equal(t, 800.0, out[0].Subtotal)
	assert.Equal(t, 99999.0, sections[0].Items[0].Price, "input must not be mutated")
}

func TestAssembleReconcilesToBudget(t *testing.T) {
	sections := []proposal.Section{{Title: "S", Items: []proposal.Item{
		{Name: "a", Hours: 60},
		{Name: "b", Hours: 40},
	}}}

	out := Assemble(sections, Input{HourlyRate: 100, ProjectBudget: 5000})

	assert.Equal(t, 3000.0, out[0].Items[0].Price)
	assert.Equal(t, 30.0, out[0].Items[0].Hours)
	assert.Equal(t, 2000.0, out[0].Items[1].Price)
	assert.Equal(t, 20.0, out[0].Items[1].Hours)
}

func TestProgressIsCapped(t *testing.T) {
	assert.Equal(t, 0, Progress(0))
	assert.Equal(t, 50, Progress(3))
	assert.Equal(t, MaxStreamingProgress, Progress(6))
	assert.Equal(t, MaxStreamingProgress, Progress(9))
}
