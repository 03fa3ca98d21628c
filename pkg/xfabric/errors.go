// Package xfabric collects the error kinds shared across the remote
// execution fabric (locator, combiner, pool client, transaction
// coordinator), per the error handling design in SPEC_FULL.md §7.
package xfabric

import (
	"errors"
	"fmt"
)

// Sentinel errors for the fixed, enumerable failure cases.
var (
	// ErrUnsupportedDistribution is raised at Locator construction for an
	// unrecognized distribution policy.
	ErrUnsupportedDistribution = errors.New("unsupported distribution policy")

	// ErrUnsupportedDataType is raised at Locator construction when the
	// chosen policy has no hash/modulo mapping for the declared type.
	ErrUnsupportedDataType = errors.New("unsupported data type for distribution policy")

	// ErrNoNodes is raised when a node_set is empty at Locator construction.
	ErrNoNodes = errors.New("node set is empty")

	// ErrOwnershipConflict is raised when a handle is attached to a
	// Combiner while another Combiner still owns it.
	ErrOwnershipConflict = errors.New("handle already owned by another combiner")

	// ErrDataCorrupted is the catch-all ProtocolError surfaced to the
	// executor (unexpected message type, data row without description,
	// replicated-write row counts disagree).
	ErrDataCorrupted = errors.New("DATA_CORRUPTED")

	// ErrHandleNotIdle is raised when dispatch is attempted on a handle
	// that isn't in conn_state IDLE.
	ErrHandleNotIdle = errors.New("handle not idle")
)

// ConfigError wraps a Locator/config construction failure.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("config error: %v", e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError wraps err as a ConfigError.
func NewConfigError(err error) *ConfigError { return &ConfigError{Err: err} }

// ConnectionError represents a lost socket, pool checkout failure, or
// cancel failure.
type ConnectionError struct {
	NodeID int64
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error (node %d): %v", e.NodeID, e.Err)
}
func (e *ConnectionError) Unwrap() error { return e.Err }

// ProtocolError represents an unexpected backend message for the
// current request_type, surfaced as DATA_CORRUPTED.
type ProtocolError struct {
	NodeID  int64
	Detail  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%v: node %d: %s", ErrDataCorrupted, e.NodeID, e.Detail)
}
func (e *ProtocolError) Unwrap() error { return ErrDataCorrupted }

// RemoteError carries a backend's ErrorResponse ('E' message): SQLSTATE,
// message, and optional detail.
type RemoteError struct {
	NodeID   int64
	SQLState [5]byte
	Message  string
	Detail   string
}

func (e *RemoteError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("remote error %s from node %d: %s (%s)", e.SQLState, e.NodeID, e.Message, e.Detail)
	}
	return fmt.Sprintf("remote error %s from node %d: %s", e.SQLState, e.NodeID, e.Message)
}

// TxnError represents a prepare/commit/abort failure with node
// granularity.
type TxnError struct {
	Phase string // "prepare", "commit", "abort"
	GID   string
	Err   error
}

func (e *TxnError) Error() string {
	return fmt.Sprintf("%s phase failed for gid %q: %v", e.Phase, e.GID, e.Err)
}
func (e *TxnError) Unwrap() error { return e.Err }

// FatalLocal represents an out-of-memory/assertion failure; the caller
// must terminate the session.
type FatalLocal struct {
	Err error
}

func (e *FatalLocal) Error() string { return fmt.Sprintf("fatal local error: %v", e.Err) }
func (e *FatalLocal) Unwrap() error { return e.Err }
