package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hed1ad/goflowprep/pkg/flow"
)

func writePartition(t *testing.T, dir, name string, rows string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := "spkts,dpkts,dur,proto,label\n" + rows
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writePartition(t, t.TempDir(), "train.csv",
		"10,5,3.0,tcp,normal\n2,1,0.5,udp,attack\n")

	batch, err := Load(path)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "normal", batch[0].Label)
	assert.Equal(t, "udp", batch[1].Proto)
}

func TestShuffle(t *testing.T) {
	batch := make(flow.Batch, 50)
	for i := range batch {
		batch[i] = flow.Record{SrcPackets: i}
	}

	a := Shuffle(batch, DefaultSeed)
	b := Shuffle(batch, DefaultSeed)

	// Same seed, same order; input untouched.
	assert.Equal(t, a, b)
	assert.Equal(t, 0, batch[0].SrcPackets)
	assert.NotEqual(t, batch, a, "a 50-row permutation should move something")

	// All rows survive.
	seen := make(map[int]bool, len(a))
	for i := range a {
		seen[a[i].SrcPackets] = true
	}
	assert.Len(t, seen, 50)
}

func TestLoadSplit(t *testing.T) {
	dir := t.TempDir()
	train := writePartition(t, dir, "train.csv", "10,5,3.0,tcp,normal\n2,1,0.5,udp,attack\n")
	eval := writePartition(t, dir, "eval.csv", "7,7,1.0,icmp,normal\n")

	split, err := LoadSplit(train, eval, DefaultSeed)
	require.NoError(t, err)
	assert.Len(t, split.Train, 2)
	assert.Len(t, split.Eval, 1)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}
