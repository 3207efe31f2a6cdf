package collector

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/hed1ad/goflowprep/pkg/flow"
)

// SyntheticSource generates labeled traffic without touching the network.
// Benign flows look like steady small-packet sessions; attack flows mix in
// floods and scans. Generation is deterministic for a given seed.
type SyntheticSource struct {
	mu  sync.Mutex
	rng *rand.Rand

	flowsPerSecond float64
	attackRatio    float64
}

// SyntheticOption configures a SyntheticSource.
type SyntheticOption func(*SyntheticSource)

// WithSeed sets the random seed for reproducible generation.
func WithSeed(seed int64) SyntheticOption {
	return func(s *SyntheticSource) {
		s.rng = rand.New(rand.NewSource(seed))
	}
}

// WithFlowRate sets how many flows are generated per second of requested
// collection time.
func WithFlowRate(perSecond float64) SyntheticOption {
	return func(s *SyntheticSource) {
		s.flowsPerSecond = perSecond
	}
}

// WithAttackRatio sets the fraction of generated flows labeled as attacks.
func WithAttackRatio(ratio float64) SyntheticOption {
	return func(s *SyntheticSource) {
		s.attackRatio = ratio
	}
}

// NewSyntheticSource creates a generator with 100 flows per second and a
// 10% attack share by default.
func NewSyntheticSource(opts ...SyntheticOption) *SyntheticSource {
	s := &SyntheticSource{
		rng:            rand.New(rand.NewSource(42)),
		flowsPerSecond: 100,
		attackRatio:    0.1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Collect generates flows covering the requested duration.
func (s *SyntheticSource) Collect(ctx context.Context, duration time.Duration) (flow.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int(duration.Seconds() * s.flowsPerSecond)
	if n < 1 {
		n = 1
	}

	batch := make(flow.Batch, 0, n)
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if s.rng.Float64() < s.attackRatio {
			batch = append(batch, s.attackFlow())
		} else {
			batch = append(batch, s.benignFlow())
		}
	}
	return batch, nil
}

// benignFlow models a steady client session: moderate packet counts,
// regular sizes, handshake plus data flags.
func (s *SyntheticSource) benignFlow() flow.Record {
	packets := 10 + s.rng.Intn(190)
	duration := 0.1 + s.rng.Float64()*30

	sizes := make([]float64, 0, 8)
	times := make([]float64, 0, 8)
	step := duration / 8
	for j := 0; j < 8; j++ {
		sizes = append(sizes, 64+s.rng.Float64()*200)
		times = append(times, float64(j)*step+s.rng.Float64()*step*0.5)
	}

	return flow.Record{
		SrcPackets:  packets / 2,
		DstPackets:  packets - packets/2,
		Duration:    duration,
		Proto:       "tcp",
		SrcBytes:    packets * (100 + s.rng.Intn(400)),
		DstBytes:    packets * (100 + s.rng.Intn(1200)),
		Flags:       &flow.FlagCounts{SYN: 1, ACK: packets - 2, FIN: 1, PSH: s.rng.Intn(5)},
		PacketSizes: sizes,
		PacketTimes: times,
		Label:       "normal",
	}
}

// attackFlow models flood or scan traffic: either many packets crammed into
// a short window or single-packet probes.
func (s *SyntheticSource) attackFlow() flow.Record {
	if s.rng.Float64() < 0.5 {
		// Flood: high packet rate, one-sided.
		packets := 2000 + s.rng.Intn(8000)
		duration := 0.5 + s.rng.Float64()*2
		sizes := make([]float64, 0, 16)
		times := make([]float64, 0, 16)
		for j := 0; j < 16; j++ {
			sizes = append(sizes, 1400+s.rng.Float64()*100)
			times = append(times, s.rng.Float64()*duration*0.2)
		}
		return flow.Record{
			SrcPackets:  packets,
			DstPackets:  s.rng.Intn(10),
			Duration:    duration,
			Proto:       "udp",
			SrcBytes:    packets * 1400,
			Flags:       &flow.FlagCounts{},
			PacketSizes: sizes,
			PacketTimes: times,
			Label:       "attack",
		}
	}

	// Scan: a lone SYN probe, often answered by nothing.
	return flow.Record{
		SrcPackets:  1,
		DstPackets:  s.rng.Intn(2),
		Duration:    0.001 + s.rng.Float64()*0.05,
		Proto:       "tcp",
		SrcBytes:    40,
		Flags:       &flow.FlagCounts{SYN: 1},
		PacketSizes: []float64{40},
		PacketTimes: []float64{0},
		Label:       "attack",
	}
}
