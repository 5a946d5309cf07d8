package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/tesseract/internal/monitoring"
)

// ReplayConfig configures ReplayPCAP.
type ReplayConfig struct {
	// UDPPort selects datagrams by destination port. 0 replays every UDP payload.
	UDPPort  int
	MaxValue int
	// Speed scales capture timing: 1 is real time, 2 twice as fast.
	// 0 replays as fast as possible.
	Speed float64
	Stats StatsRecorder
	Cell  *ReadingCell
}

// ReplayResult summarises a completed replay.
type ReplayResult struct {
	Packets  int
	Accepted int
	Rejected int
}

// ReplayPCAP feeds the UDP payloads of a pcap or pcapng capture into the
// cell through the same parse path as the live receiver. It returns when
// the file is exhausted or ctx is cancelled.
func ReplayPCAP(ctx context.Context, path string, cfg ReplayConfig) (ReplayResult, error) {
	var res ReplayResult

	f, err := os.Open(path)
	if err != nil {
		return res, fmt.Errorf("failed to open PCAP file %s: %w", path, err)
	}
	defer f.Close()

	src, err := newPacketSource(f)
	if err != nil {
		return res, fmt.Errorf("failed to read PCAP file %s: %w", path, err)
	}

	stats := cfg.Stats
	if stats == nil {
		stats = noopStats{}
	}
	maxValue := cfg.MaxValue
	if maxValue <= 0 {
		maxValue = 6
	}
	cell := cfg.Cell
	if cell == nil {
		cell = &ReadingCell{}
	}
	s := newSink("pcap", cell, stats, maxValue)

	monitoring.Logf("[ingest] replaying %s (udp port %d, speed %.1fx)", path, cfg.UDPPort, cfg.Speed)
	var firstCapture time.Time
	start := time.Now()

	for {
		packet, err := src.NextPacket()
		if err == io.EOF {
			monitoring.Logf("[ingest] PCAP replay complete: %d packets, %d accepted, %d rejected in %v",
				res.Packets, res.Accepted, res.Rejected, time.Since(start).Round(time.Millisecond))
			return res, nil
		}
		if err != nil {
			return res, fmt.Errorf("failed to read packet %d: %w", res.Packets+1, err)
		}

		udp, ok := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
		if !ok || len(udp.Payload) == 0 {
			continue
		}
		if cfg.UDPPort != 0 && int(udp.DstPort) != cfg.UDPPort {
			continue
		}

		if cfg.Speed > 0 {
			ts := packet.Metadata().Timestamp
			if firstCapture.IsZero() {
				firstCapture = ts
			}
			due := start.Add(time.Duration(float64(ts.Sub(firstCapture)) / cfg.Speed))
			if err := sleepUntil(ctx, due); err != nil {
				return res, err
			}
		} else if ctx.Err() != nil {
			return res, ctx.Err()
		}

		res.Packets++
		if s.accept(udp.Payload, path) {
			res.Accepted++
		} else {
			res.Rejected++
		}
	}
}

// newPacketSource sniffs the file magic and picks the pcap or pcapng reader.
func newPacketSource(r io.Reader) (*gopacket.PacketSource, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, err
	}
	// pcapng section header block type
	if magic[0] == 0x0a && magic[1] == 0x0d && magic[2] == 0x0d && magic[3] == 0x0a {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, err
		}
		return gopacket.NewPacketSource(ng, ng.LinkType()), nil
	}
	pr, err := pcapgo.NewReader(br)
	if err != nil {
		return nil, err
	}
	return gopacket.NewPacketSource(pr, pr.LinkType()), nil
}

func sleepUntil(ctx context.Context, due time.Time) error {
	d := time.Until(due)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
