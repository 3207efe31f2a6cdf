package features

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hed1ad/goflowprep/pkg/flow"
	"github.com/hed1ad/goflowprep/pkg/transform"
)

func generateFlows(n int, seed int64) flow.Batch {
	rng := rand.New(rand.NewSource(seed))
	protos := []string{"tcp", "udp", "icmp"}
	labels := []string{"normal", "attack"}

	batch := make(flow.Batch, n)
	for i := range batch {
		sizes := make([]float64, 4+rng.Intn(8))
		for j := range sizes {
			sizes[j] = 40 + rng.Float64()*1400
		}
		batch[i] = flow.Record{
			SrcPackets:  1 + rng.Intn(200),
			DstPackets:  rng.Intn(200),
			Duration:    0.01 + rng.Float64()*30,
			Proto:       protos[rng.Intn(len(protos))],
			SrcBytes:    rng.Intn(100000),
			DstBytes:    rng.Intn(100000),
			Flags:       &flow.FlagCounts{SYN: rng.Intn(4), ACK: rng.Intn(50), FIN: rng.Intn(2)},
			PacketSizes: sizes,
			Label:       labels[rng.Intn(len(labels))],
		}
	}
	return batch
}

func TestPipelineCreateFeatures(t *testing.T) {
	p := NewPipeline(transform.Default(0.95, 5), DefaultExtractors()...)

	batch := generateFlows(30, 42)
	tbl, err := p.CreateFeatures(batch)
	require.NoError(t, err)

	assert.Equal(t, len(batch), tbl.Len())
	assert.Greater(t, tbl.NumFeatures(), 10)

	// Fresh table per call, no cross-call caching.
	tbl2, err := p.CreateFeatures(batch)
	require.NoError(t, err)
	assert.NotSame(t, tbl, tbl2)
	assert.Equal(t, tbl.Names(), tbl2.Names())
}

func TestPipelineFitTransform(t *testing.T) {
	p := NewPipeline(transform.Default(0.95, 5), DefaultExtractors()...)
	train := generateFlows(80, 1)

	require.NoError(t, p.Fit(train))

	t.Run("row count and order preserved", func(t *testing.T) {
		held := generateFlows(25, 2)
		out, err := p.Transform(held)
		require.NoError(t, err)
		assert.Equal(t, 25, out.Len())
		assert.LessOrEqual(t, out.NumFeatures(), 5)
	})

	t.Run("deterministic", func(t *testing.T) {
		held := generateFlows(10, 3)
		a, err := p.Transform(held)
		require.NoError(t, err)
		b, err := p.Transform(held)
		require.NoError(t, err)
		assert.Equal(t, a.Names(), b.Names())
		for _, name := range a.Names() {
			assert.Equal(t, a.Column(name), b.Column(name))
		}
	})
}

func TestPipelineTransformBeforeFit(t *testing.T) {
	p := NewPipeline(transform.Default(0.95, 5), DefaultExtractors()...)
	_, err := p.Transform(generateFlows(5, 4))
	assert.ErrorIs(t, err, transform.ErrNotFitted)
}

func TestPipelineEmptyBatch(t *testing.T) {
	p := NewPipeline(transform.Default(0.95, 5), DefaultExtractors()...)
	require.NoError(t, p.Fit(generateFlows(60, 7)))

	_, err := p.Transform(flow.Batch{})
	assert.ErrorIs(t, err, ErrEmptyBatch)

	_, err = p.CreateFeatures(nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestPipelineInterFlowFitting(t *testing.T) {
	// With bytes_zscore enabled, Fit must fit the extractor's reference
	// statistics before assembling training features.
	stat := NewStatisticalExtractor(WithBytesZScore())
	te, err := NewTimeExtractor()
	require.NoError(t, err)

	p := NewPipeline(transform.Default(0.95, 5), te, stat, NewProtocolExtractor())
	require.NoError(t, p.Fit(generateFlows(60, 5)))

	_, err = p.Transform(generateFlows(10, 6))
	assert.NoError(t, err)
}

func TestEncodeLabels(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   []float64
	}{
		{
			name:   "two classes sorted",
			labels: []string{"normal", "attack", "normal"},
			want:   []float64{1, 0, 1},
		},
		{
			name:   "single class",
			labels: []string{"x", "x"},
			want:   []float64{0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodeLabels(tt.labels))
		})
	}
}
