package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	bs, err := OpenBadger(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { bs.Close() })
	return bs
}

func TestStateScanOrdered(t *testing.T) {
	bs := openTestStore(t)

	writes := []Write{
		{Key: "pending_deposits/bb", Value: []byte("2")},
		{Key: "pending_deposits/aa", Value: []byte("1")},
		{Key: "pending_withdrawals/cc", Value: []byte("3")},
		{Key: "admin", Value: []byte(`"x"`)},
	}
	require.NoError(t, bs.ApplyWrites(1, writes))

	kvs, err := bs.StateScan("pending_deposits/")
	require.NoError(t, err)
	require.Len(t, kvs, 2)
	assert.Equal(t, "pending_deposits/aa", kvs[0].Key)
	assert.Equal(t, "pending_deposits/bb", kvs[1].Key)

	val, err := bs.StateGet("admin")
	require.NoError(t, err)
	assert.Equal(t, `"x"`, string(val))

	missing, err := bs.StateGet("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAppendAndListEntries(t *testing.T) {
	bs := openTestStore(t)

	for i, data := range []string{"one", "two", "three"} {
		seq, err := bs.AppendEntry([]byte(data))
		require.NoError(t, err)
		assert.Equal(t, uint64(i+1), seq)
	}

	entries, err := bs.ListEntriesSince(0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "one", string(entries[0].Data))
	assert.Equal(t, "three", string(entries[2].Data))

	entries, err = bs.ListEntriesSince(1, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(2), entries[0].Seq)
	assert.Equal(t, "two", string(entries[0].Data))
}

func TestApplyWritesAdvancesCheckpoint(t *testing.T) {
	bs := openTestStore(t)

	seq, err := bs.ReadAppliedSequence()
	require.NoError(t, err)
	assert.Zero(t, seq)

	require.NoError(t, bs.ApplyWrites(1, []Write{{Key: "k", Value: []byte("v")}}))
	require.NoError(t, bs.ApplyWrites(2, nil))

	seq, err = bs.ReadAppliedSequence()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), seq)

	val, err := bs.StateGet("k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(val))

	require.NoError(t, bs.ApplyWrites(3, []Write{{Key: "k", Delete: true}}))
	val, err = bs.StateGet("k")
	require.NoError(t, err)
	assert.Nil(t, val)
}
