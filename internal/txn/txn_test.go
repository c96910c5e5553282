package txn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBeginCommitAbort(t *testing.T) {
	m := NewManager()

	t1 := m.Begin()
	t2 := m.Begin()
	require.NotEqual(t, t1, t2)

	s1, err := m.Snapshot(t1)
	require.NoError(t, err)
	s2, err := m.Snapshot(t2)
	require.NoError(t, err)
	require.Greater(t, s2, s1)

	require.NoError(t, m.Commit(t1))
	require.Error(t, m.Commit(t1))

	require.NoError(t, m.Abort(t2))
	require.Error(t, m.Abort(t2))
}

func TestUnknownTransaction(t *testing.T) {
	m := NewManager()
	_, err := m.Snapshot(TxnID(999))
	require.Error(t, err)
	require.Error(t, m.Commit(TxnID(999)))
}
