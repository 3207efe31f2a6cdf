// Package flow defines the raw network-flow record types consumed by the
// feature engineering pipeline.
package flow

import (
	"errors"
	"fmt"
)

// Field names a schema field that an extractor may require from every
// record in a batch.
type Field string

const (
	FieldSrcPackets  Field = "src_packets"
	FieldDstPackets  Field = "dst_packets"
	FieldDuration    Field = "duration"
	FieldProto       Field = "proto"
	FieldSrcBytes    Field = "src_bytes"
	FieldDstBytes    Field = "dst_bytes"
	FieldFlagCounts  Field = "flag_counts"
	FieldPacketSizes Field = "packet_sizes"
	FieldPacketTimes Field = "packet_times"
)

// ErrMissingField indicates a record lacks a field required by a scheduled
// extractor. A missing field is a data-contract violation, not a silent
// default.
var ErrMissingField = errors.New("flow: missing required field")

// FlagCounts holds per-flow TCP flag totals.
type FlagCounts struct {
	SYN int
	ACK int
	FIN int
	RST int
	PSH int
	URG int
}

// Record summarizes one observed network flow or connection.
//
// SrcPackets, DstPackets, SrcBytes and DstBytes are aggregate counters.
// PacketSizes and PacketTimes carry optional per-packet detail; PacketTimes
// are offsets in seconds from the start of the flow, in arrival order.
type Record struct {
	SrcPackets int
	DstPackets int
	Duration   float64 // seconds
	Proto      string
	SrcBytes   int
	DstBytes   int
	Flags      *FlagCounts

	PacketSizes []float64
	PacketTimes []float64

	// Label is the class label for records from a reference dataset.
	// Empty for live traffic.
	Label string
}

// TotalPackets returns the packet count over both directions.
func (r *Record) TotalPackets() int {
	return r.SrcPackets + r.DstPackets
}

// TotalBytes returns the byte count over both directions.
func (r *Record) TotalBytes() int {
	return r.SrcBytes + r.DstBytes
}

// Has reports whether the record carries the given field.
// Counter fields are always present; per-packet detail and flag counts
// are present only when populated.
func (r *Record) Has(f Field) bool {
	switch f {
	case FieldSrcPackets, FieldDstPackets, FieldDuration, FieldSrcBytes, FieldDstBytes:
		return true
	case FieldProto:
		return r.Proto != ""
	case FieldFlagCounts:
		return r.Flags != nil
	case FieldPacketSizes:
		return r.PacketSizes != nil
	case FieldPacketTimes:
		return r.PacketTimes != nil
	default:
		return false
	}
}

// Batch is an ordered sequence of flow records. Row order is significant:
// feature table row i corresponds to record i.
type Batch []Record

// Check verifies every record in the batch carries every given field.
func (b Batch) Check(fields ...Field) error {
	for i := range b {
		for _, f := range fields {
			if !b[i].Has(f) {
				return fmt.Errorf("%w: record %d lacks %q", ErrMissingField, i, f)
			}
		}
	}
	return nil
}

// Labels returns the label column of the batch.
func (b Batch) Labels() []string {
	labels := make([]string, len(b))
	for i := range b {
		labels[i] = b[i].Label
	}
	return labels
}
