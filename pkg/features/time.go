package features

import (
	"github.com/hed1ad/goflowprep/pkg/flow"
)

// Time-based feature names.
const (
	FeaturePacketRate       = "packet_rate"
	FeatureBurstRate        = "burst_rate"
	FeatureInterArrivalTime = "inter_arrival_time"
)

// TimeExtractor derives timing and volume-dynamics features per flow.
//
// packet_rate is always emitted. A record with zero duration yields an IEEE
// sentinel instead of failing the batch: +Inf when packets were seen, NaN
// for an empty zero-length flow. Downstream stages pass the sentinel through.
//
// burst_rate and inter_arrival_time are opt-in because they need per-packet
// timestamps, which not every flow schema carries.
type TimeExtractor struct {
	burstWindow float64 // seconds
	burstStride float64 // seconds
	withBurst   bool
	withIAT     bool
}

// TimeOption configures a TimeExtractor.
type TimeOption func(*TimeExtractor)

// WithBurstRate enables the burst_rate feature: the packet rate of the
// densest sub-window of each flow. The window size and stride must be given
// explicitly; there is no default windowing policy.
func WithBurstRate(windowSeconds, strideSeconds float64) TimeOption {
	return func(e *TimeExtractor) {
		e.withBurst = true
		e.burstWindow = windowSeconds
		e.burstStride = strideSeconds
	}
}

// WithInterArrivalTime enables the inter_arrival_time feature: the mean gap
// between consecutive packets of a flow. Requires per-packet timestamps.
func WithInterArrivalTime() TimeOption {
	return func(e *TimeExtractor) {
		e.withIAT = true
	}
}

// NewTimeExtractor creates a time-based extractor. Enabling burst_rate with
// a non-positive window or stride fails with ErrNoWindow.
func NewTimeExtractor(opts ...TimeOption) (*TimeExtractor, error) {
	e := &TimeExtractor{}
	for _, opt := range opts {
		opt(e)
	}
	if e.withBurst && (e.burstWindow <= 0 || e.burstStride <= 0) {
		return nil, ErrNoWindow
	}
	return e, nil
}

// Name identifies the extractor.
func (e *TimeExtractor) Name() string { return "time" }

// Features lists the emitted feature names.
func (e *TimeExtractor) Features() []string {
	names := []string{FeaturePacketRate}
	if e.withBurst {
		names = append(names, FeatureBurstRate)
	}
	if e.withIAT {
		names = append(names, FeatureInterArrivalTime)
	}
	return names
}

// Requires lists the record fields the enabled features need. When
// per-packet timestamps are not part of the batch schema, burst_rate and
// inter_arrival_time surface the capability gap through Batch.Check instead
// of fabricating values.
func (e *TimeExtractor) Requires() []flow.Field {
	fields := []flow.Field{flow.FieldSrcPackets, flow.FieldDstPackets, flow.FieldDuration}
	if e.withBurst || e.withIAT {
		fields = append(fields, flow.FieldPacketTimes)
	}
	return fields
}

// Extract computes the enabled time-based columns.
func (e *TimeExtractor) Extract(batch flow.Batch) (map[string][]float64, error) {
	out := make(map[string][]float64, 3)

	rate := make([]float64, len(batch))
	for i := range batch {
		rate[i] = float64(batch[i].TotalPackets()) / batch[i].Duration
	}
	out[FeaturePacketRate] = rate

	if e.withBurst {
		burst := make([]float64, len(batch))
		for i := range batch {
			burst[i] = e.burstRate(batch[i].PacketTimes)
		}
		out[FeatureBurstRate] = burst
	}

	if e.withIAT {
		iat := make([]float64, len(batch))
		for i := range batch {
			iat[i] = meanInterArrival(batch[i].PacketTimes)
		}
		out[FeatureInterArrivalTime] = iat
	}

	return out, nil
}

// burstRate returns the packet rate of the densest window over the flow's
// packet timestamps. Timestamps are offsets from flow start, in arrival
// order.
func (e *TimeExtractor) burstRate(times []float64) float64 {
	if len(times) == 0 {
		return 0
	}

	last := times[len(times)-1]
	max := 0
	for start := 0.0; ; start += e.burstStride {
		count := 0
		for _, t := range times {
			if t >= start && t < start+e.burstWindow {
				count++
			}
		}
		if count > max {
			max = count
		}
		if start+e.burstStride > last {
			break
		}
	}
	return float64(max) / e.burstWindow
}

// meanInterArrival returns the mean gap between consecutive timestamps.
// Flows with fewer than two packets have no gaps and yield 0.
func meanInterArrival(times []float64) float64 {
	if len(times) < 2 {
		return 0
	}
	var sum float64
	for i := 1; i < len(times); i++ {
		sum += times[i] - times[i-1]
	}
	return sum / float64(len(times)-1)
}
