package telemetry

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Ranges(t *testing.T) {
	g := NewGridGenerator(WithSeed(42))

	for i := 0; i < 500; i++ {
		r, err := g.Generate(context.Background())
		require.NoError(t, err)

		assert.GreaterOrEqual(t, r.Frequency, GridFrequency-GridVariance)
		assert.Less(t, r.Frequency, GridFrequency+GridVariance)
		assert.GreaterOrEqual(t, r.StateOfCharge, StateOfCharge-MaxStartVariance)
		assert.Less(t, r.StateOfCharge, StateOfCharge+MaxStartVariance)
		assert.Equal(t, GridImport, r.Import)
		assert.Equal(t, GridExport, r.Export)
		assert.Equal(t, GridVariance, r.Variance)
	}
}

func TestGenerate_SequenceAndTimestamp(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	g := NewGridGenerator(WithClock(mock), WithSeed(1))

	first, err := g.Generate(context.Background())
	require.NoError(t, err)
	mock.Add(5 * time.Second)
	second, err := g.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, uint64(2), second.Seq)
	assert.Equal(t, 5*time.Second, second.Timestamp.Sub(first.Timestamp))
}

func TestGenerate_Reproducible(t *testing.T) {
	mock := clock.NewMock()
	a := NewGridGenerator(WithSeed(7), WithClock(mock))
	b := NewGridGenerator(WithSeed(7), WithClock(mock))

	for i := 0; i < 10; i++ {
		ra, _ := a.Generate(context.Background())
		rb, _ := b.Generate(context.Background())
		assert.Equal(t, ra, rb)
	}
}

func TestGenerate_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGridGenerator().Generate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEncode(t *testing.T) {
	r := Reading{Seq: 3, Frequency: 60, StateOfCharge: 93, Export: 0.5, Variance: 1}

	data, err := Encode(r)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, 60.0, fields["frequency_hz"])
	assert.Equal(t, 93.0, fields["soc_pct"])
	assert.Equal(t, 0.5, fields["export_kw"])
	assert.Equal(t, 3.0, fields["seq"])
}
