package oracle

// Wire messages for the sequencer's gob codec. Every RPC is unary
// request/response; gob needs exported fields, so these mirror the
// field names from SPEC_FULL.md §6 exactly.

type NewXIDRequest struct{}
type NewXIDResponse struct{ XID uint64 }

type NewTimestampRequest struct{}
type NewTimestampResponse struct{ Timestamp uint64 }

type StartPreparedRequest struct {
	XID         uint64
	GID         string
	NodeListCSV string
}
type StartPreparedResponse struct{}

type FinishPreparedRequest struct{ XID uint64 }
type FinishPreparedResponse struct{}

type RollbackRequest struct{ XID uint64 }
type RollbackResponse struct{}

type CommitPreparedRequest struct {
	PrepareXID uint64
	FinalXID   uint64
}
type CommitPreparedResponse struct{}

type LookupGIDRequest struct{ GID string }
type LookupGIDResponse struct {
	XID         uint64
	PrepareXID  uint64
	NodeListCSV string
}
