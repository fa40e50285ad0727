package display

import (
	"errors"
	"fmt"
)

var errTransactionClosed = errors.New("transaction already completed or cancelled")

// outputChange is one requested power change of a compositor output
type outputChange struct {
	ID      ID
	Output  string
	Enabled bool
}

// commandTransaction stages output changes and hands them to commit in one
// go, so compositor backends honour the begin/complete/cancel contract
type commandTransaction struct {
	resolve func(ID) (string, bool)
	commit  func([]outputChange) error
	changes []outputChange
	closed  bool
}

func (t *commandTransaction) SetEnabled(id ID, enabled bool) error {
	if t.closed {
		return errTransactionClosed
	}

	output, ok := t.resolve(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownDisplay, id)
	}

	t.changes = append(t.changes, outputChange{ID: id, Output: output, Enabled: enabled})
	return nil
}

func (t *commandTransaction) Complete() error {
	if t.closed {
		return errTransactionClosed
	}
	t.closed = true

	if len(t.changes) == 0 {
		return nil
	}
	return t.commit(t.changes)
}

func (t *commandTransaction) Cancel() error {
	if t.closed {
		return errTransactionClosed
	}
	t.closed = true
	t.changes = nil
	return nil
}
