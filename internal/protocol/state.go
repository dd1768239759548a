package protocol

import "fmt"

// State is a node in the connection lifecycle state machine (§4.5). The
// machine tracks which message kinds are legal to send next and, once
// ReadyIdle is reached for the first time, the transaction status reported
// by every subsequent ReadyForQuery.
type State int

const (
	StateDisconnected State = iota
	StateStartup
	StateAuthenticating
	StateReadyIdle
	StateSimpleQuery
	StateExtendedQuery
	StateCopyIn
	StateCopyOut
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateStartup:
		return "startup"
	case StateAuthenticating:
		return "authenticating"
	case StateReadyIdle:
		return "ready"
	case StateSimpleQuery:
		return "simple-query"
	case StateExtendedQuery:
		return "extended-query"
	case StateCopyIn:
		return "copy-in"
	case StateCopyOut:
		return "copy-out"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// TxStatus mirrors the byte reported by ReadyForQuery.
type TxStatus byte

const (
	TxIdle          TxStatus = TxStatus(TxStatusIdle)
	TxInTransaction TxStatus = TxStatus(TxStatusInBlock)
	TxFailed        TxStatus = TxStatus(TxStatusInFailedBlock)
)

// ErrProtocolViolation reports a message arriving while the connection is in
// a state that does not accept it, e.g. a DataRow outside any query, or a
// second Startup message.
type ErrProtocolViolation struct {
	State State
	Msg   MsgType
}

func (e *ErrProtocolViolation) Error() string {
	return fmt.Sprintf("pgwire: unexpected message %q in state %s", byte(e.Msg), e.State)
}

// Machine drives one connection's lifecycle. It is not safe for concurrent
// use; a Conn is single-threaded for the duration of one logical operation
// (spec §5), so the machine is driven from whichever goroutine currently
// owns the Conn.
type Machine struct {
	state State
	tx    TxStatus

	// pendingSync counts Sync messages sent but not yet answered by a
	// matching ReadyForQuery, to let the adapter pipeline several
	// extended-query steps ahead of the responses (§4.5 pipelining).
	pendingSync int

	copyOverallFormat FormatCode
}

func NewMachine() *Machine {
	return &Machine{state: StateDisconnected}
}

func (m *Machine) State() State      { return m.state }
func (m *Machine) TxStatus() TxStatus { return m.tx }

// BeginStartup moves Disconnected -> Startup. Called once, immediately after
// the transport connects (and, if TLS was negotiated, after the TLS
// handshake completes).
func (m *Machine) BeginStartup() error {
	if m.state != StateDisconnected {
		return fmt.Errorf("pgwire: BeginStartup called from state %s", m.state)
	}
	m.state = StateStartup
	return nil
}

// OnAuthRequest advances Startup/Authenticating on receipt of an 'R'
// message. Every sub-type, AuthOK included, leaves the machine in
// Authenticating; after AuthOK the BackendKeyData/ParameterStatus messages
// follow, and the first ReadyForQuery moves it to ReadyIdle.
func (m *Machine) OnAuthRequest(sub int32) error {
	if m.state != StateStartup && m.state != StateAuthenticating {
		return &ErrProtocolViolation{State: m.state, Msg: MsgAuthentication}
	}
	if sub == AuthOK {
		m.state = StateAuthenticating
		return nil
	}
	m.state = StateAuthenticating
	return nil
}

// OnReadyForQuery processes a 'Z' message: records the transaction status
// and, on the first occurrence, completes startup by moving to ReadyIdle.
// On later occurrences it closes out whichever query/copy was in flight and
// decrements the pipelined-Sync counter.
func (m *Machine) OnReadyForQuery(status byte) error {
	m.tx = TxStatus(status)
	if m.pendingSync > 0 {
		m.pendingSync--
	}
	m.state = StateReadyIdle
	return nil
}

// BeginSimpleQuery moves ReadyIdle -> SimpleQuery on send of a Query message.
func (m *Machine) BeginSimpleQuery() error {
	if m.state != StateReadyIdle {
		return fmt.Errorf("pgwire: BeginSimpleQuery called from state %s", m.state)
	}
	m.state = StateSimpleQuery
	return nil
}

// BeginExtendedQuery moves ReadyIdle -> ExtendedQuery on send of the first
// Parse/Bind/Describe/Execute of a pipelined sequence.
func (m *Machine) BeginExtendedQuery() error {
	if m.state != StateReadyIdle && m.state != StateExtendedQuery {
		return fmt.Errorf("pgwire: BeginExtendedQuery called from state %s", m.state)
	}
	m.state = StateExtendedQuery
	return nil
}

// OnSyncSent records a pipelined Sync so OnReadyForQuery knows how many
// ReadyForQuery replies are still outstanding.
func (m *Machine) OnSyncSent() {
	m.pendingSync++
}

// PendingSync reports how many Sync messages are still awaiting their
// ReadyForQuery.
func (m *Machine) PendingSync() int {
	return m.pendingSync
}

// OnCopyInResponse / OnCopyOutResponse move the machine into the COPY
// sub-protocol on receipt of 'G'/'H'. They may arrive from either
// SimpleQuery or ExtendedQuery.
func (m *Machine) OnCopyInResponse(overall FormatCode) error {
	if m.state != StateSimpleQuery && m.state != StateExtendedQuery {
		return &ErrProtocolViolation{State: m.state, Msg: MsgCopyInResponse}
	}
	m.copyOverallFormat = overall
	m.state = StateCopyIn
	return nil
}

func (m *Machine) OnCopyOutResponse(overall FormatCode) error {
	if m.state != StateSimpleQuery && m.state != StateExtendedQuery {
		return &ErrProtocolViolation{State: m.state, Msg: MsgCopyOutResponse}
	}
	m.copyOverallFormat = overall
	m.state = StateCopyOut
	return nil
}

func (m *Machine) CopyOverallFormat() FormatCode {
	return m.copyOverallFormat
}

// OnCopyDone / OnCopyFail leave the COPY sub-protocol. The server still
// answers with CommandComplete and (eventually) ReadyForQuery, so the
// machine moves to SimpleQuery until OnReadyForQuery fires. It does so
// whichever query mode started the COPY; ExtendedQuery is not restored.
func (m *Machine) OnCopyDone() error {
	if m.state != StateCopyIn && m.state != StateCopyOut {
		return &ErrProtocolViolation{State: m.state, Msg: MsgCopyDone}
	}
	m.state = StateSimpleQuery
	return nil
}

func (m *Machine) OnCopyFail() error {
	return m.OnCopyDone()
}

// BeginClosing/OnClosed model sending Terminate and tearing down the
// transport.
func (m *Machine) BeginClosing() {
	m.state = StateClosing
}

func (m *Machine) OnClosed() {
	m.state = StateClosed
}

// AcceptsQuery reports whether the connection can currently accept a new
// simple or extended query, i.e. it is idle and not mid-transaction-failure
// recovery requirement (a failed transaction still accepts queries; only
// ROLLBACK/COMMIT clears TxFailed, which is a SQL-level concern left to the
// adapter, not this state machine).
func (m *Machine) AcceptsQuery() bool {
	return m.state == StateReadyIdle
}
