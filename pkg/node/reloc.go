package node

// Policy is a table's distribution policy.
type Policy int

const (
	PolicyReplicated Policy = iota
	PolicyRoundRobin
	PolicyHash
	PolicyModulo
	PolicySingle
)

func (p Policy) String() string {
	switch p {
	case PolicyReplicated:
		return "replicated"
	case PolicyRoundRobin:
		return "round_robin"
	case PolicyHash:
		return "hash"
	case PolicyModulo:
		return "modulo"
	case PolicySingle:
		return "single"
	default:
		return "unknown"
	}
}

// AccessIntent is the kind of access a Locator is constructed for.
type AccessIntent int

const (
	AccessInsert AccessIntent = iota
	AccessUpdate
	AccessRead
	AccessReadForUpdate
)

// RelationLocInfo is the distribution descriptor for one relation.
type RelationLocInfo struct {
	Policy        Policy
	PartitionAttr string // required for Hash/Modulo; empty otherwise
	// NodeSet is the ordered sequence of node ids; order is part of the
	// routing function ("hash mod N picks by index").
	NodeSet           []ID
	PrimaryNode       *ID
	RoundRobinCursor  int
}

// Clone returns a deep-enough copy for a Locator to hold independently
// of concurrent mutation of the source RelationLocInfo (e.g. its own
// round-robin cursor advancing).
func (r *RelationLocInfo) Clone() *RelationLocInfo {
	ns := make([]ID, len(r.NodeSet))
	copy(ns, r.NodeSet)
	var primary *ID
	if r.PrimaryNode != nil {
		p := *r.PrimaryNode
		primary = &p
	}
	return &RelationLocInfo{
		Policy:           r.Policy,
		PartitionAttr:    r.PartitionAttr,
		NodeSet:          ns,
		PrimaryNode:      primary,
		RoundRobinCursor: r.RoundRobinCursor,
	}
}
