package csv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hed1ad/goflowprep/pkg/features"
	"github.com/hed1ad/goflowprep/pkg/flow"
)

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "normal_data.csv")

	batch := flow.Batch{
		{
			SrcPackets: 10, DstPackets: 5, Duration: 3.5, Proto: "tcp",
			SrcBytes: 700, DstBytes: 300,
			Flags: &flow.FlagCounts{SYN: 1, ACK: 12},
			Label: "normal",
		},
		{
			SrcPackets: 2, DstPackets: 0, Duration: 0.25, Proto: "udp",
			Flags: &flow.FlagCounts{},
			Label: "attack",
		},
	}

	require.NoError(t, NewWriter(path).WriteBatch(batch))

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	got, err := r.ReadBatch()
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 10, got[0].SrcPackets)
	assert.Equal(t, 3.5, got[0].Duration)
	assert.Equal(t, "tcp", got[0].Proto)
	assert.Equal(t, 1, got[0].Flags.SYN)
	assert.Equal(t, "normal", got[0].Label)
	assert.Equal(t, "attack", got[1].Label)
}

func TestReaderSkipsMalformedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	content := "spkts,dpkts,dur,label\n10,5,3.0,normal\nbogus,x,y,z\n1,1,0.5,attack\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	batch, err := r.ReadBatch()
	require.NoError(t, err)
	assert.Len(t, batch, 2)
	assert.Nil(t, batch[0].Flags)
}

func TestReaderColumns(t *testing.T) {
	t.Run("file order", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data.csv")
		require.NoError(t, os.WriteFile(path, []byte("dur,spkts,dpkts,label\n1.0,1,2,normal\n"), 0o644))

		r, err := NewReader(path)
		require.NoError(t, err)
		defer r.Close()

		assert.Equal(t, []string{"dur", "spkts", "dpkts", "label"}, r.Columns())
	})

	t.Run("duplicate header names collapse", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data.csv")
		require.NoError(t, os.WriteFile(path, []byte("spkts,spkts,dpkts,dur\n1,2,3,4.0\n"), 0o644))

		r, err := NewReader(path)
		require.NoError(t, err)
		defer r.Close()

		assert.Equal(t, []string{"spkts", "dpkts", "dur"}, r.Columns())
	})
}

func TestReaderStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	content := "spkts,dpkts,dur,label\n10,5,3.0,normal\nbogus,x,y,z\n1,1,0.5,attack\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	ch, err := r.Stream(context.Background())
	require.NoError(t, err)

	var got flow.Batch
	for record := range ch {
		got = append(got, record)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "normal", got[0].Label)
	assert.Equal(t, "attack", got[1].Label)
}

func TestReaderStreamCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("spkts,dpkts,dur\n1,1,0.5\n"), 0o644))

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch, err := r.Stream(ctx)
	require.NoError(t, err)

	// The channel must close promptly; any records delivered before the
	// cancellation is observed are fine.
	for range ch {
	}
}

func TestReaderMissingRequiredColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("spkts,dpkts\n1,2\n"), 0o644))

	_, err := NewReader(path)
	assert.Error(t, err)
}

func TestWriteTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.csv")

	tbl := features.NewTable(2)
	require.NoError(t, tbl.Add("packet_rate", []float64{5, 15}))
	require.NoError(t, tbl.Add("proto_code", []float64{1, 2}))

	require.NoError(t, WriteTable(path, tbl))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "packet_rate,proto_code\n5,1\n15,2\n", string(data))
}
