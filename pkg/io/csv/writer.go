package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/hed1ad/goflowprep/pkg/features"
	"github.com/hed1ad/goflowprep/pkg/flow"
	flowio "github.com/hed1ad/goflowprep/pkg/io"
)

var _ flowio.BatchWriter = (*Writer)(nil)

var batchHeader = []string{
	colSrcPackets, colDstPackets, colDuration, colProto,
	colSrcBytes, colDstBytes,
	colSYN, colACK, colFIN, colRST, colPSH, colURG,
	colLabel,
}

// Writer persists flow batches as CSV, one row per record, overwriting the
// destination file.
type Writer struct {
	path string
}

// NewWriter creates a writer targeting the given file path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// WriteBatch writes the batch with a header row, replacing any existing
// file at the path.
func (w *Writer) WriteBatch(batch flow.Batch) error {
	file, err := os.Create(w.path)
	if err != nil {
		return err
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if err := cw.Write(batchHeader); err != nil {
		return err
	}

	row := make([]string, len(batchHeader))
	for i := range batch {
		r := &batch[i]
		flags := r.Flags
		if flags == nil {
			flags = &flow.FlagCounts{}
		}
		row[0] = strconv.Itoa(r.SrcPackets)
		row[1] = strconv.Itoa(r.DstPackets)
		row[2] = strconv.FormatFloat(r.Duration, 'g', -1, 64)
		row[3] = r.Proto
		row[4] = strconv.Itoa(r.SrcBytes)
		row[5] = strconv.Itoa(r.DstBytes)
		row[6] = strconv.Itoa(flags.SYN)
		row[7] = strconv.Itoa(flags.ACK)
		row[8] = strconv.Itoa(flags.FIN)
		row[9] = strconv.Itoa(flags.RST)
		row[10] = strconv.Itoa(flags.PSH)
		row[11] = strconv.Itoa(flags.URG)
		row[12] = r.Label
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// Close releases resources. The writer reopens the file per batch, so there
// is nothing to release.
func (w *Writer) Close() error { return nil }

// WriteTable writes a feature table as CSV: one column per feature, one row
// per flow record, replacing any existing file at the path.
func WriteTable(path string, table *features.Table) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	names := table.Names()
	if err := cw.Write(names); err != nil {
		return err
	}

	columns := make([][]float64, len(names))
	for j, name := range names {
		columns[j] = table.Column(name)
	}

	row := make([]string, len(names))
	for i := 0; i < table.Len(); i++ {
		for j := range names {
			row[j] = strconv.FormatFloat(columns[j][i], 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
