// Package wire implements the framing primitives of the backend wire
// protocol (PostgreSQL v3); the pool-manager protocol has its own
// framing in pkg/poolclient (SPEC_FULL.md §6): length-prefixed message I/O over a node.Buffer,
// plus the message tag table the Combiner's handle_response dispatch
// reads against (SPEC_FULL.md §4.2).
package wire

// Tag is a single-byte backend message type.
type Tag byte

const (
	TagRowDescription   Tag = 'T'
	TagDataRow          Tag = 'D'
	TagCommandComplete  Tag = 'C'
	TagPortalSuspended  Tag = 's'
	TagCopyInResponse   Tag = 'G'
	TagCopyOutResponse  Tag = 'H'
	TagCopyData         Tag = 'd'
	TagCopyDone         Tag = 'c'
	TagErrorResponse    Tag = 'E'
	TagReadyForQuery    Tag = 'Z'
	TagBarrierOK        Tag = 'b'
	TagParseComplete    Tag = '1'
	TagBindComplete     Tag = '2'
	TagCloseComplete    Tag = '3'
	TagNoData           Tag = 'n'
	TagNotice           Tag = 'A' // async notices (NotificationResponse in the real protocol)
	TagNoticeResponse   Tag = 'N'
	TagSetComplete      Tag = 'S'
)

// Silent is the set of tags that the Combiner consumes without
// changing any externally visible state (§4.2 table, last row).
var Silent = map[Tag]bool{
	TagParseComplete:  true,
	TagBindComplete:   true,
	TagCloseComplete:  true,
	TagNoData:         true,
	TagNotice:         true,
	TagNoticeResponse: true,
	TagSetComplete:    true,
}
