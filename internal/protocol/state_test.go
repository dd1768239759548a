package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMachineStartupSequence(t *testing.T) {
	m := NewMachine()
	assert.Equal(t, StateDisconnected, m.State())

	assert.NoError(t, m.BeginStartup())
	assert.Equal(t, StateStartup, m.State())

	assert.NoError(t, m.OnAuthRequest(AuthMD5Password))
	assert.Equal(t, StateAuthenticating, m.State())

	assert.NoError(t, m.OnAuthRequest(AuthOK))
	assert.Equal(t, StateAuthenticating, m.State())

	assert.NoError(t, m.OnReadyForQuery(TxStatusIdle))
	assert.Equal(t, StateReadyIdle, m.State())
	assert.Equal(t, TxIdle, m.TxStatus())
}

func TestMachineRejectsStartupTwice(t *testing.T) {
	m := NewMachine()
	assert.NoError(t, m.BeginStartup())
	assert.Error(t, m.BeginStartup())
}

func TestMachineSimpleQueryRoundTrip(t *testing.T) {
	m := readyMachine(t)

	assert.NoError(t, m.BeginSimpleQuery())
	assert.Equal(t, StateSimpleQuery, m.State())

	assert.NoError(t, m.OnReadyForQuery(TxStatusInBlock))
	assert.Equal(t, StateReadyIdle, m.State())
	assert.Equal(t, TxInTransaction, m.TxStatus())
	assert.True(t, m.AcceptsQuery())
}

// TestMachinePipelinedSync covers §4.5's pipelining rule: several Syncs can
// be outstanding before their matching ReadyForQuery replies arrive.
func TestMachinePipelinedSync(t *testing.T) {
	m := readyMachine(t)

	assert.NoError(t, m.BeginExtendedQuery())
	m.OnSyncSent()
	assert.NoError(t, m.BeginExtendedQuery())
	m.OnSyncSent()
	assert.Equal(t, 2, m.PendingSync())

	assert.NoError(t, m.OnReadyForQuery(TxStatusIdle))
	assert.Equal(t, 1, m.PendingSync())

	assert.NoError(t, m.OnReadyForQuery(TxStatusIdle))
	assert.Equal(t, 0, m.PendingSync())
}

func TestMachineCopyInLifecycle(t *testing.T) {
	m := readyMachine(t)

	assert.NoError(t, m.BeginSimpleQuery())
	assert.NoError(t, m.OnCopyInResponse(FormatText))
	assert.Equal(t, StateCopyIn, m.State())
	assert.Equal(t, FormatText, m.CopyOverallFormat())

	assert.NoError(t, m.OnCopyDone())
	assert.Equal(t, StateSimpleQuery, m.State())

	assert.NoError(t, m.OnReadyForQuery(TxStatusIdle))
	assert.Equal(t, StateReadyIdle, m.State())
}

func TestMachineCopyResponseRejectedOutsideQuery(t *testing.T) {
	m := readyMachine(t)
	err := m.OnCopyInResponse(FormatText)
	assert.Error(t, err)
	var violation *ErrProtocolViolation
	assert.ErrorAs(t, err, &violation)
}

func readyMachine(t *testing.T) *Machine {
	t.Helper()
	m := NewMachine()
	if err := m.BeginStartup(); err != nil {
		t.Fatal(err)
	}
	if err := m.OnAuthRequest(AuthOK); err != nil {
		t.Fatal(err)
	}
	if err := m.OnReadyForQuery(TxStatusIdle); err != nil {
		t.Fatal(err)
	}
	return m
}
