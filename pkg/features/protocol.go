package features

import (
	"strings"

	"github.com/hed1ad/goflowprep/pkg/flow"
)

// Protocol feature names.
const (
	FeatureProtoCode = "proto_code"
	FeatureIsTCP     = "is_tcp"
	FeatureIsUDP     = "is_udp"
	FeatureIsICMP    = "is_icmp"
	FeatureSYNRatio  = "syn_ratio"
	FeatureRSTRatio  = "rst_ratio"
	FeatureSYNFIN    = "syn_fin"
	FeatureNullFlags = "null_flags"
)

// ProtoEncodingVersion identifies the protocol-to-code mapping below. The
// mapping is decided once and reused across fit and inference; bump the
// version when codes change so persisted models are not applied to a
// different encoding.
const ProtoEncodingVersion = 1

// protoCodeUnknown is the explicit bucket for protocols outside the fixed
// mapping, so live traffic with an unseen protocol keeps flowing instead of
// failing the batch.
const protoCodeUnknown = 0.0

var protoCodes = map[string]float64{
	"tcp":  1,
	"udp":  2,
	"icmp": 3,
	"arp":  4,
	"sctp": 5,
	"ospf": 6,
	"igmp": 7,
}

// ProtoCode returns the fixed numeric code for a protocol name, or the
// unknown bucket for anything outside the mapping.
func ProtoCode(proto string) float64 {
	if code, ok := protoCodes[strings.ToLower(proto)]; ok {
		return code
	}
	return protoCodeUnknown
}

// ProtocolExtractor encodes protocol identity and flag-combination signals
// that correlate with scan and flood traffic.
type ProtocolExtractor struct{}

// NewProtocolExtractor creates a protocol-specific extractor.
func NewProtocolExtractor() *ProtocolExtractor {
	return &ProtocolExtractor{}
}

// Name identifies the extractor.
func (e *ProtocolExtractor) Name() string { return "protocol" }

// Features lists the emitted feature names.
func (e *ProtocolExtractor) Features() []string {
	return []string{
		FeatureProtoCode,
		FeatureIsTCP,
		FeatureIsUDP,
		FeatureIsICMP,
		FeatureSYNRatio,
		FeatureRSTRatio,
		FeatureSYNFIN,
		FeatureNullFlags,
	}
}

// Requires lists the record fields the extractor needs.
func (e *ProtocolExtractor) Requires() []flow.Field {
	return []flow.Field{flow.FieldProto, flow.FieldFlagCounts}
}

// Extract computes the protocol columns.
func (e *ProtocolExtractor) Extract(batch flow.Batch) (map[string][]float64, error) {
	n := len(batch)
	out := map[string][]float64{
		FeatureProtoCode: make([]float64, n),
		FeatureIsTCP:     make([]float64, n),
		FeatureIsUDP:     make([]float64, n),
		FeatureIsICMP:    make([]float64, n),
		FeatureSYNRatio:  make([]float64, n),
		FeatureRSTRatio:  make([]float64, n),
		FeatureSYNFIN:    make([]float64, n),
		FeatureNullFlags: make([]float64, n),
	}

	for i := range batch {
		r := &batch[i]
		proto := strings.ToLower(r.Proto)

		out[FeatureProtoCode][i] = ProtoCode(proto)
		out[FeatureIsTCP][i] = boolToFloat(proto == "tcp")
		out[FeatureIsUDP][i] = boolToFloat(proto == "udp")
		out[FeatureIsICMP][i] = boolToFloat(proto == "icmp")

		flags := r.Flags
		packets := r.TotalPackets()
		if packets > 0 {
			out[FeatureSYNRatio][i] = float64(flags.SYN) / float64(packets)
			out[FeatureRSTRatio][i] = float64(flags.RST) / float64(packets)
		}

		// SYN+FIN without ACK and all-zero flag sets are classic scan
		// signatures.
		out[FeatureSYNFIN][i] = boolToFloat(flags.SYN > 0 && flags.FIN > 0 && flags.ACK == 0)
		noFlags := flags.SYN == 0 && flags.ACK == 0 && flags.FIN == 0 &&
			flags.RST == 0 && flags.PSH == 0 && flags.URG == 0
		out[FeatureNullFlags][i] = boolToFloat(proto == "tcp" && noFlags)
	}

	return out, nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
