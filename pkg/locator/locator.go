// Package locator implements the Tuple Locator (SPEC_FULL.md §4.1):
// given a distribution-key value, produce the subset of a relation's
// node_set that must receive or can answer for that row.
package locator

import (
	"math/rand"
	"time"

	"github.com/mnohosten/laura-remotex/pkg/node"
	"github.com/mnohosten/laura-remotex/pkg/xfabric"
)

// dispatchFn is the strategy chosen once at Locator construction
// (STATIC, ROUND_ROBIN, HASH_INSERT, HASH_SELECT, MODULO_INSERT,
// MODULO_SELECT) and invoked per row thereafter.
type dispatchFn func(l *Locator, v interface{}) ([]node.ID, error)

// Locator is a short-lived, per-execution object. It never performs
// I/O; every failure (unsupported policy, unsupported type) is raised
// at construction.
type Locator struct {
	policy   node.Policy
	dataType DataType
	intent   node.AccessIntent
	reloc    *node.RelationLocInfo
	dispatch dispatchFn

	// result is a pre-allocated buffer sized to len(node_set), reused
	// by every Locate call to avoid a per-row allocation.
	result []node.ID

	preferred []node.ID
	rng       *rand.Rand
}

// New builds a Locator for policy/intent/dataType against reloc. All
// validation happens here; Locate never returns a ConfigError.
func New(policy node.Policy, intent node.AccessIntent, dataType DataType, reloc *node.RelationLocInfo) (*Locator, error) {
	if len(reloc.NodeSet) == 0 {
		return nil, xfabric.NewConfigError(xfabric.ErrNoNodes)
	}

	needsType := policy == node.PolicyHash || policy == node.PolicyModulo
	if needsType && !SupportedType(dataType) {
		return nil, xfabric.NewConfigError(xfabric.ErrUnsupportedDataType)
	}
	// MODULO routes on the raw integral value; HASH on numeric has no
	// backend-compatible hash function. Both are rejected here rather
	// than on the first Locate.
	if policy == node.PolicyModulo {
		if _, err := RawModuloValue(dataType, int64(0)); err != nil {
			return nil, xfabric.NewConfigError(xfabric.ErrUnsupportedDataType)
		}
	}
	if policy == node.PolicyHash && dataType == TypeNumeric {
		return nil, xfabric.NewConfigError(xfabric.ErrUnsupportedDataType)
	}

	l := &Locator{
		policy:   policy,
		dataType: dataType,
		intent:   intent,
		reloc:    reloc.Clone(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	switch {
	case policy == node.PolicyReplicated && (intent == node.AccessInsert || intent == node.AccessUpdate):
		l.dispatch = staticDispatch
	case policy == node.PolicyRoundRobin && (intent == node.AccessRead || intent == node.AccessReadForUpdate):
		l.dispatch = staticDispatch
	case policy == node.PolicyRoundRobin && intent == node.AccessInsert:
		l.dispatch = roundRobinDispatch
	case policy == node.PolicyReplicated && (intent == node.AccessRead || intent == node.AccessReadForUpdate):
		l.dispatch = roundRobinDispatch
	case policy == node.PolicyHash && (intent == node.AccessInsert || intent == node.AccessUpdate):
		l.dispatch = hashInsertDispatch
	case policy == node.PolicyHash && (intent == node.AccessRead || intent == node.AccessReadForUpdate):
		l.dispatch = hashSelectDispatch
	case policy == node.PolicyModulo && (intent == node.AccessInsert || intent == node.AccessUpdate):
		l.dispatch = moduloInsertDispatch
	case policy == node.PolicyModulo && (intent == node.AccessRead || intent == node.AccessReadForUpdate):
		l.dispatch = moduloSelectDispatch
	case policy == node.PolicySingle:
		l.dispatch = staticDispatch
	default:
		return nil, xfabric.NewConfigError(xfabric.ErrUnsupportedDistribution)
	}

	l.result = make([]node.ID, 0, len(l.reloc.NodeSet))
	return l, nil
}

// SetPreferred installs a preferred-node list for REPLICATED/READ load
// balancing and get_any_data_node. Nodes not present in node_set are
// ignored (§9 Open Question 2) — filtered here, once, rather than on
// every Locate call.
func (l *Locator) SetPreferred(preferred []node.ID) {
	set := make(map[node.ID]bool, len(l.reloc.NodeSet))
	for _, id := range l.reloc.NodeSet {
		set[id] = true
	}
	l.preferred = l.preferred[:0]
	for _, id := range preferred {
		if set[id] {
			l.preferred = append(l.preferred, id)
		}
	}
}

// Locate routes value v (possibly nil) and returns the destination
// node ids. The returned slice is always a fresh copy — never an
// alias of node_set or of Locator-internal state (§9 Open Question 1).
func (l *Locator) Locate(v interface{}) ([]node.ID, error) {
	ids, err := l.dispatch(l, v)
	if err != nil {
		return nil, err
	}
	out := make([]node.ID, len(ids))
	copy(out, ids)
	return out, nil
}

// NodeSet returns the (cloned) ordered node list this locator was
// built against.
func (l *Locator) NodeSet() []node.ID { return l.reloc.NodeSet }

// staticDispatch returns the full node map; used for
// REPLICATED/INSERT-UPDATE and ROUND_ROBIN/READ.
func staticDispatch(l *Locator, _ interface{}) ([]node.ID, error) {
	return l.reloc.NodeSet, nil
}

// roundRobinDispatch advances the internal cursor modulo |node_set|
// and returns exactly one node.
func roundRobinDispatch(l *Locator, _ interface{}) ([]node.ID, error) {
	n := len(l.reloc.NodeSet)
	idx := l.reloc.RoundRobinCursor % n
	l.reloc.RoundRobinCursor = (l.reloc.RoundRobinCursor + 1) % n
	l.result = l.result[:0]
	l.result = append(l.result, l.reloc.NodeSet[idx])
	return l.result, nil
}

func hashInsertDispatch(l *Locator, v interface{}) ([]node.ID, error) {
	if v == nil {
		l.result = l.result[:0]
		l.result = append(l.result, l.reloc.NodeSet[0])
		return l.result, nil
	}
	h, err := HashForType(l.dataType, v)
	if err != nil {
		return nil, err
	}
	idx := ComputeModulo(h, uint64(len(l.reloc.NodeSet)))
	l.result = l.result[:0]
	l.result = append(l.result, l.reloc.NodeSet[idx])
	return l.result, nil
}

func hashSelectDispatch(l *Locator, v interface{}) ([]node.ID, error) {
	if v == nil {
		return l.reloc.NodeSet, nil
	}
	return hashInsertDispatch(l, v)
}

func moduloInsertDispatch(l *Locator, v interface{}) ([]node.ID, error) {
	if v == nil {
		l.result = l.result[:0]
		l.result = append(l.result, l.reloc.NodeSet[0])
		return l.result, nil
	}
	raw, err := RawModuloValue(l.dataType, v)
	if err != nil {
		return nil, err
	}
	idx := ComputeModulo(raw, uint64(len(l.reloc.NodeSet)))
	l.result = l.result[:0]
	l.result = append(l.result, l.reloc.NodeSet[idx])
	return l.result, nil
}

func moduloSelectDispatch(l *Locator, v interface{}) ([]node.ID, error) {
	if v == nil {
		return l.reloc.NodeSet, nil
	}
	return moduloInsertDispatch(l, v)
}

// PreferredReplicatedRead returns the first preferred node that is
// also in node_set, falling back to round-robin when no preferred
// node qualifies (§4.1 preferred-node policy).
func (l *Locator) PreferredReplicatedRead() (node.ID, error) {
	for _, want := range l.preferred {
		for _, have := range l.reloc.NodeSet {
			if want == have {
				return want, nil
			}
		}
	}
	ids, err := roundRobinDispatch(l, nil)
	if err != nil {
		return node.ID{}, err
	}
	return ids[0], nil
}

// ReplicatedWriteOrder splits node_set into {primary, rest} when a
// primary_node is defined and there is more than one node, so the
// caller can write to primary first (§4.1).
func (l *Locator) ReplicatedWriteOrder() (primary []node.ID, rest []node.ID) {
	if l.reloc.PrimaryNode == nil || len(l.reloc.NodeSet) <= 1 {
		return nil, append([]node.ID(nil), l.reloc.NodeSet...)
	}
	p := *l.reloc.PrimaryNode
	for _, id := range l.reloc.NodeSet {
		if id == p {
			primary = append(primary, id)
		} else {
			rest = append(rest, id)
		}
	}
	return primary, rest
}

// GetAnyDataNode picks uniformly at random from set ∩ preferred (if
// non-empty), else uniformly from set. This is deliberately not a
// stateful round-robin: a small set would skew a stateful index
// (§4.1).
func (l *Locator) GetAnyDataNode(set []node.ID) node.ID {
	preferredSet := make(map[node.ID]bool, len(l.preferred))
	for _, id := range l.preferred {
		preferredSet[id] = true
	}
	var candidates []node.ID
	for _, id := range set {
		if preferredSet[id] {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		candidates = set
	}
	return candidates[l.rng.Intn(len(candidates))]
}
