package client

import (
	"github.com/serroba/collab-pad/internal/ot"
)

// Editor is the local side the state machine drives: it can push an
// operation to the server and apply a server operation to the local buffer.
type Editor interface {
	SendOperation(op *ot.Operation)
	ApplyOperation(op *ot.Operation) error
}

// State is one of the three synchronization states. Every transition
// returns the next state; states are immutable values.
type State interface {
	// ApplyClient handles an edit made locally.
	ApplyClient(e Editor, op *ot.Operation) (State, error)

	// ApplyServer handles an operation broadcast by the server. The
	// operation is concurrent with anything not yet acknowledged.
	ApplyServer(e Editor, op *ot.Operation) (State, error)

	// Ack handles the server acknowledging our outstanding operation.
	Ack(e Editor) (State, error)

	// Pending returns the operation awaiting acknowledgment, or nil.
	Pending() *ot.Operation

	String() string
}

// synchronized means every local edit has been acknowledged.
type synchronized struct{}

// Synchronized returns the initial state.
func Synchronized() State { return synchronized{} }

func (synchronized) ApplyClient(e Editor, op *ot.Operation) (State, error) {
	e.SendOperation(op)

	return awaitingConfirm{outstanding: op}, nil
}

func (synchronized) ApplyServer(e Editor, op *ot.Operation) (State, error) {
	if err := e.ApplyOperation(op); err != nil {
		return nil, err
	}

	return synchronized{}, nil
}

// A stray ack can arrive after a snapshot reset raced with an in-flight
// acknowledgment. Nothing is outstanding, so it is ignored.
func (synchronized) Ack(Editor) (State, error) { return synchronized{}, nil }

func (synchronized) Pending() *ot.Operation { return nil }

func (synchronized) String() string { return "synchronized" }

// awaitingConfirm holds one operation sent to the server and not yet
// acknowledged.
type awaitingConfirm struct {
	outstanding *ot.Operation
}

func (s awaitingConfirm) ApplyClient(_ Editor, op *ot.Operation) (State, error) {
	// Hold further edits locally until the outstanding op is confirmed.
	return awaitingWithBuffer{outstanding: s.outstanding, buffer: op}, nil
}

func (s awaitingConfirm) ApplyServer(e Editor, op *ot.Operation) (State, error) {
	// The server ordered op before our outstanding one. Transform both so
	// the residual applies cleanly to the local buffer.
	opPrime, outPrime, err := ot.Transform(op, s.outstanding)
	if err != nil {
		return nil, err
	}

	if err := e.ApplyOperation(opPrime); err != nil {
		return nil, err
	}

	return awaitingConfirm{outstanding: outPrime}, nil
}

func (s awaitingConfirm) Ack(Editor) (State, error) {
	return synchronized{}, nil
}

func (s awaitingConfirm) Pending() *ot.Operation { return s.outstanding }

func (awaitingConfirm) String() string { return "awaitingConfirm" }

// awaitingWithBuffer holds the unacknowledged operation plus everything
// typed since, composed into a single buffered operation.
type awaitingWithBuffer struct {
	outstanding *ot.Operation
	buffer      *ot.Operation
}

func (s awaitingWithBuffer) ApplyClient(_ Editor, op *ot.Operation) (State, error) {
	buf, err := s.buffer.Compose(op)
	if err != nil {
		return nil, err
	}

	return awaitingWithBuffer{outstanding: s.outstanding, buffer: buf}, nil
}

func (s awaitingWithBuffer) ApplyServer(e Editor, op *ot.Operation) (State, error) {
	op1, out1, err := ot.Transform(op, s.outstanding)
	if err != nil {
		return nil, err
	}

	op2, buf1, err := ot.Transform(op1, s.buffer)
	if err != nil {
		return nil, err
	}

	if err := e.ApplyOperation(op2); err != nil {
		return nil, err
	}

	return awaitingWithBuffer{outstanding: out1, buffer: buf1}, nil
}

func (s awaitingWithBuffer) Ack(e Editor) (State, error) {
	e.SendOperation(s.buffer)

	return awaitingConfirm{outstanding: s.buffer}, nil
}

func (s awaitingWithBuffer) Pending() *ot.Operation { return s.outstanding }

func (awaitingWithBuffer) String() string { return "awaitingWithBuffer" }
