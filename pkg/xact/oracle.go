package xact

import "context"

// Oracle is the subset of the external sequencer (SPEC_FULL.md §4.3,
// §6) the 2PC drive needs. The concrete gRPC client lives in
// pkg/oracle; this package only depends on the interface to avoid an
// import cycle and to keep the drive logic testable with a fake.
type Oracle interface {
	NewXID(ctx context.Context) (uint64, error)
	NewTimestamp(ctx context.Context) (uint64, error)
	StartPrepared(ctx context.Context, xid uint64, gid, nodeListCSV string) error
	FinishPrepared(ctx context.Context, xid uint64) error
	Rollback(ctx context.Context, xid uint64) error
	CommitPrepared(ctx context.Context, prepareXID, finalXID uint64) error
	LookupGID(ctx context.Context, gid string) (xid, prepareXID uint64, nodeListCSV string, err error)
}

// InDoubtRegistry records transactions that reached PART_COMMITTED so
// external snapshots keep treating them as in-progress until resolved
// (§4.3, outcome 3).
type InDoubtRegistry interface {
	RegisterInDoubt(gid string, nodes []string) error
	ResolveInDoubt(gid string) error
}
