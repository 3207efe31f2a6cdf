// Package csv provides CSV reading and writing for flow-record tables.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/hed1ad/goflowprep/pkg/flow"
	flowio "github.com/hed1ad/goflowprep/pkg/io"
)

var _ flowio.BatchReader = (*Reader)(nil)

// Column names recognized in CSV headers, matching the persisted artifact
// layout written by Writer. Matching is case-insensitive.
const (
	colSrcPackets = "spkts"
	colDstPackets = "dpkts"
	colDuration   = "dur"
	colProto      = "proto"
	colSrcBytes   = "sbytes"
	colDstBytes   = "dbytes"
	colSYN        = "syn_cnt"
	colACK        = "ack_cnt"
	colFIN        = "fin_cnt"
	colRST        = "rst_cnt"
	colPSH        = "psh_cnt"
	colURG        = "urg_cnt"
	colLabel      = "label"
)

// Reader reads flow records from CSV files with a header row.
type Reader struct {
	file   *os.File
	reader *csv.Reader
	index  map[string]int
}

// NewReader opens a CSV file and parses its header. Required columns are
// spkts, dpkts and dur; everything else is optional.
func NewReader(filename string) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		file:   file,
		reader: csv.NewReader(file),
	}

	header, err := r.reader.Read()
	if err != nil {
		file.Close()
		return nil, err
	}
	r.index = make(map[string]int, len(header))
	for i, name := range header {
		r.index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	for _, required := range []string{colSrcPackets, colDstPackets, colDuration} {
		if _, ok := r.index[required]; !ok {
			file.Close()
			return nil, errors.New("csv: missing required column " + required)
		}
	}

	return r, nil
}

// Columns returns the lower-cased header names found in the file, in file
// order. Duplicate header names collapse to the last occurrence, matching
// how values are read.
func (r *Reader) Columns() []string {
	out := make([]string, 0, len(r.index))
	for name := range r.index {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool {
		return r.index[out[i]] < r.index[out[j]]
	})
	return out
}

// ReadBatch returns all records in the file. Malformed rows are skipped.
func (r *Reader) ReadBatch() (flow.Batch, error) {
	var batch flow.Batch

	for {
		row, err := r.reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		record, err := r.parseRecord(row)
		if err != nil {
			continue // Skip malformed rows
		}
		batch = append(batch, record)
	}

	return batch, nil
}

// Stream returns a channel of records for incremental processing.
func (r *Reader) Stream(ctx context.Context) (<-chan flow.Record, error) {
	out := make(chan flow.Record, 100)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				row, err := r.reader.Read()
				if err == io.EOF {
					return
				}
				if err != nil {
					continue
				}

				record, err := r.parseRecord(row)
				if err != nil {
					continue
				}

				select {
				case out <- record:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close releases resources.
func (r *Reader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

func (r *Reader) parseRecord(row []string) (flow.Record, error) {
	var record flow.Record
	var err error

	if record.SrcPackets, err = r.intAt(row, colSrcPackets); err != nil {
		return record, err
	}
	if record.DstPackets, err = r.intAt(row, colDstPackets); err != nil {
		return record, err
	}
	if record.Duration, err = r.floatAt(row, colDuration); err != nil {
		return record, err
	}

	// Optional columns default to zero values.
	record.SrcBytes, _ = r.intAt(row, colSrcBytes)
	record.DstBytes, _ = r.intAt(row, colDstBytes)
	if i, ok := r.index[colProto]; ok && i < len(row) {
		record.Proto = strings.ToLower(strings.TrimSpace(row[i]))
	}
	if i, ok := r.index[colLabel]; ok && i < len(row) {
		record.Label = strings.TrimSpace(row[i])
	}

	if _, ok := r.index[colSYN]; ok {
		flags := &flow.FlagCounts{}
		flags.SYN, _ = r.intAt(row, colSYN)
		flags.ACK, _ = r.intAt(row, colACK)
		flags.FIN, _ = r.intAt(row, colFIN)
		flags.RST, _ = r.intAt(row, colRST)
		flags.PSH, _ = r.intAt(row, colPSH)
		flags.URG, _ = r.intAt(row, colURG)
		record.Flags = flags
	}

	return record, nil
}

func (r *Reader) intAt(row []string, col string) (int, error) {
	i, ok := r.index[col]
	if !ok || i >= len(row) {
		return 0, errors.New("csv: no column " + col)
	}
	return strconv.Atoi(strings.TrimSpace(row[i]))
}

func (r *Reader) floatAt(row []string, col string) (float64, error) {
	i, ok := r.index[col]
	if !ok || i >= len(row) {
		return 0, errors.New("csv: no column " + col)
	}
	return strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
}
