package collector

import (
	"context"
	"sort"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/hed1ad/goflowprep/pkg/flow"
)

// CaptureSource acquires flows from live interfaces or PCAP files via
// gopacket, aggregating packets into per-connection flow records.
type CaptureSource struct {
	iface   string
	file    string
	snaplen int32
	promisc bool
	label   string
}

// CaptureOption configures a CaptureSource.
type CaptureOption func(*CaptureSource)

// WithSnaplen sets the capture snapshot length.
func WithSnaplen(n int32) CaptureOption {
	return func(c *CaptureSource) {
		c.snaplen = n
	}
}

// WithPromiscuous enables promiscuous mode for live capture.
func WithPromiscuous(p bool) CaptureOption {
	return func(c *CaptureSource) {
		c.promisc = p
	}
}

// WithLabel sets the class label stamped on every collected record.
func WithLabel(label string) CaptureOption {
	return func(c *CaptureSource) {
		c.label = label
	}
}

// NewLiveCaptureSource captures from a network interface.
func NewLiveCaptureSource(iface string, opts ...CaptureOption) *CaptureSource {
	c := &CaptureSource{iface: iface, snaplen: 65535}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFileCaptureSource replays a PCAP file.
func NewFileCaptureSource(path string, opts ...CaptureOption) *CaptureSource {
	c := &CaptureSource{file: path, snaplen: 65535}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type captureKey struct {
	srcIP, dstIP     string
	srcPort, dstPort uint16
	proto            string
}

type captureState struct {
	first, last time.Time
	srcPackets  int
	dstPackets  int
	srcBytes    int
	dstBytes    int
	flags       flow.FlagCounts
	sizes       []float64
	times       []time.Time
	firstSeen   int // insertion order, to keep output deterministic
}

// Collect captures packets for the requested duration (or until the file or
// context is exhausted) and returns the aggregated flows.
func (c *CaptureSource) Collect(ctx context.Context, duration time.Duration) (flow.Batch, error) {
	var handle *pcap.Handle
	var err error
	if c.file != "" {
		handle, err = pcap.OpenOffline(c.file)
	} else {
		handle, err = pcap.OpenLive(c.iface, c.snaplen, c.promisc, time.Second)
	}
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	flows := make(map[captureKey]*captureState)
	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
	deadline := time.After(duration)

	for {
		select {
		case <-ctx.Done():
			return c.flush(flows), ctx.Err()
		case <-deadline:
			return c.flush(flows), nil
		case packet, ok := <-packetSource.Packets():
			if !ok {
				return c.flush(flows), nil
			}
			c.account(flows, packet)
		}
	}
}

func (c *CaptureSource) account(flows map[captureKey]*captureState, packet gopacket.Packet) {
	key := captureKey{}

	ipLayer := packet.Layer(layers.LayerTypeIPv4)
	if ipLayer == nil {
		return
	}
	ip := ipLayer.(*layers.IPv4)
	key.srcIP = ip.SrcIP.String()
	key.dstIP = ip.DstIP.String()

	var tcp *layers.TCP
	if tcpLayer := packet.Layer(layers.LayerTypeTCP); tcpLayer != nil {
		tcp = tcpLayer.(*layers.TCP)
		key.proto = "tcp"
		key.srcPort = uint16(tcp.SrcPort)
		key.dstPort = uint16(tcp.DstPort)
	} else if udpLayer := packet.Layer(layers.LayerTypeUDP); udpLayer != nil {
		udp := udpLayer.(*layers.UDP)
		key.proto = "udp"
		key.srcPort = uint16(udp.SrcPort)
		key.dstPort = uint16(udp.DstPort)
	} else if packet.Layer(layers.LayerTypeICMPv4) != nil {
		key.proto = "icmp"
	} else {
		return
	}

	ts := packet.Metadata().Timestamp
	size := len(packet.Data())

	// Fold the reply direction onto the initiator's key.
	reverse := captureKey{
		srcIP: key.dstIP, dstIP: key.srcIP,
		srcPort: key.dstPort, dstPort: key.srcPort,
		proto: key.proto,
	}
	state, fromSrc := flows[key], true
	if state == nil {
		if rev := flows[reverse]; rev != nil {
			state, fromSrc = rev, false
		}
	}
	if state == nil {
		state = &captureState{first: ts, firstSeen: len(flows)}
		flows[key] = state
	}

	state.last = ts
	if fromSrc {
		state.srcPackets++
		state.srcBytes += size
	} else {
		state.dstPackets++
		state.dstBytes += size
	}
	state.sizes = append(state.sizes, float64(size))
	state.times = append(state.times, ts)

	if tcp != nil {
		if tcp.SYN {
			state.flags.SYN++
		}
		if tcp.ACK {
			state.flags.ACK++
		}
		if tcp.FIN {
			state.flags.FIN++
		}
		if tcp.RST {
			state.flags.RST++
		}
		if tcp.PSH {
			state.flags.PSH++
		}
		if tcp.URG {
			state.flags.URG++
		}
	}
}

// flush turns the aggregation map into an ordered batch, first-seen flows
// first.
func (c *CaptureSource) flush(flows map[captureKey]*captureState) flow.Batch {
	keys := make([]captureKey, 0, len(flows))
	for k := range flows {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return flows[keys[i]].firstSeen < flows[keys[j]].firstSeen
	})

	batch := make(flow.Batch, 0, len(keys))
	for _, k := range keys {
		s := flows[k]
		times := make([]float64, len(s.times))
		for i, t := range s.times {
			times[i] = t.Sub(s.first).Seconds()
		}
		flags := s.flags
		batch = append(batch, flow.Record{
			SrcPackets:  s.srcPackets,
			DstPackets:  s.dstPackets,
			Duration:    s.last.Sub(s.first).Seconds(),
			Proto:       k.proto,
			SrcBytes:    s.srcBytes,
			DstBytes:    s.dstBytes,
			Flags:       &flags,
			PacketSizes: s.sizes,
			PacketTimes: times,
			Label:       c.label,
		})
	}
	return batch
}
