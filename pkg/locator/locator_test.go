package locator

import (
	"testing"

	"github.com/mnohosten/laura-remotex/pkg/node"
)

func nodes(n int) []node.ID {
	ids := make([]node.ID, n)
	for i := 0; i < n; i++ {
		ids[i] = node.ID{Role: node.RoleData, Num: int32(i + 1)}
	}
	return ids
}

func TestStaticReplicatedWrite(t *testing.T) {
	reloc := &node.RelationLocInfo{Policy: node.PolicyReplicated, NodeSet: nodes(3)}
	l, err := New(node.PolicyReplicated, node.AccessInsert, TypeInt4, reloc)
	if err != nil {
		t.Fatal(err)
	}
	got, err := l.Locate(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
}

func TestLocateReturnsCopyNotAlias(t *testing.T) {
	reloc := &node.RelationLocInfo{Policy: node.PolicyReplicated, NodeSet: nodes(3)}
	l, err := New(node.PolicyReplicated, node.AccessInsert, TypeInt4, reloc)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := l.Locate(nil)
	got[0] = node.ID{Role: node.RoleData, Num: 999}

	got2, _ := l.Locate(nil)
	if got2[0].Num == 999 {
		t.Fatalf("Locate result aliases internal node_set")
	}
}

func TestRoundRobinDistributionLaw(t *testing.T) {
	reloc := &node.RelationLocInfo{Policy: node.PolicyRoundRobin, NodeSet: nodes(4)}
	l, err := New(node.PolicyRoundRobin, node.AccessInsert, TypeInt4, reloc)
	if err != nil {
		t.Fatal(err)
	}
	counts := map[node.ID]int{}
	k := 10
	for i := 0; i < k*4; i++ {
		ids, err := l.Locate(nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(ids) != 1 {
			t.Fatalf("round robin insert should return exactly one node, got %d", len(ids))
		}
		counts[ids[0]]++
	}
	for _, id := range reloc.NodeSet {
		if counts[id] != k {
			t.Fatalf("node %v appeared %d times, want %d", id, counts[id], k)
		}
	}
}

func TestHashInsertDeterministic(t *testing.T) {
	reloc := &node.RelationLocInfo{Policy: node.PolicyHash, PartitionAttr: "c", NodeSet: nodes(4)}
	l, err := New(node.PolicyHash, node.AccessInsert, TypeInt4, reloc)
	if err != nil {
		t.Fatal(err)
	}
	a, err := l.Locate(int32(42))
	if err != nil {
		t.Fatal(err)
	}
	b, err := l.Locate(int32(42))
	if err != nil {
		t.Fatal(err)
	}
	if a[0] != b[0] {
		t.Fatalf("hash insert not deterministic: %v != %v", a[0], b[0])
	}
}

func TestHashInsertNullRoutesToIndexZero(t *testing.T) {
	reloc := &node.RelationLocInfo{Policy: node.PolicyHash, PartitionAttr: "c", NodeSet: nodes(4)}
	l, _ := New(node.PolicyHash, node.AccessInsert, TypeInt4, reloc)
	got, err := l.Locate(nil)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != reloc.NodeSet[0] {
		t.Fatalf("null hash insert = %v, want node_set[0] = %v", got[0], reloc.NodeSet[0])
	}
}

func TestHashSelectNullReturnsAllNodes(t *testing.T) {
	reloc := &node.RelationLocInfo{Policy: node.PolicyHash, PartitionAttr: "c", NodeSet: nodes(4)}
	l, _ := New(node.PolicyHash, node.AccessRead, TypeInt4, reloc)
	got, err := l.Locate(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Fatalf("hash select null = %d nodes, want 4", len(got))
	}
}

func TestModuloSelectNullReturnsAllNodes(t *testing.T) {
	reloc := &node.RelationLocInfo{Policy: node.PolicyModulo, PartitionAttr: "c", NodeSet: nodes(4)}
	l, _ := New(node.PolicyModulo, node.AccessRead, TypeInt4, reloc)
	got, err := l.Locate(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Fatalf("modulo select null = %d nodes, want 4", len(got))
	}
}

func TestModuloInsertUsesRawValue(t *testing.T) {
	reloc := &node.RelationLocInfo{Policy: node.PolicyModulo, PartitionAttr: "c", NodeSet: nodes(4)}
	l, _ := New(node.PolicyModulo, node.AccessInsert, TypeInt4, reloc)
	got, err := l.Locate(int32(42))
	if err != nil {
		t.Fatal(err)
	}
	wantIdx := ComputeModulo(42, 4)
	if got[0] != reloc.NodeSet[wantIdx] {
		t.Fatalf("modulo insert(42) = %v, want node_set[%d] = %v", got[0], wantIdx, reloc.NodeSet[wantIdx])
	}
}

func TestUnsupportedDistributionIsConfigError(t *testing.T) {
	reloc := &node.RelationLocInfo{Policy: node.Policy(99), NodeSet: nodes(2)}
	_, err := New(node.Policy(99), node.AccessInsert, TypeInt4, reloc)
	if err == nil {
		t.Fatal("expected config error")
	}
}

func TestUnsupportedDataTypeIsConfigError(t *testing.T) {
	reloc := &node.RelationLocInfo{Policy: node.PolicyHash, NodeSet: nodes(2)}
	_, err := New(node.PolicyHash, node.AccessInsert, DataType(999), reloc)
	if err == nil {
		t.Fatal("expected config error for unsupported data type")
	}
}

func TestEmptyNodeSetIsConfigError(t *testing.T) {
	reloc := &node.RelationLocInfo{Policy: node.PolicyReplicated, NodeSet: nil}
	_, err := New(node.PolicyReplicated, node.AccessInsert, TypeInt4, reloc)
	if err == nil {
		t.Fatal("expected config error for empty node set")
	}
}

func TestPreferredReplicatedReadFallsBackToRoundRobin(t *testing.T) {
	reloc := &node.RelationLocInfo{Policy: node.PolicyReplicated, NodeSet: nodes(3)}
	l, _ := New(node.PolicyReplicated, node.AccessRead, TypeInt4, reloc)

	// Unknown preferred node (not in node_set) must be silently ignored,
	// falling back to round robin (§9 Open Question 2).
	l.SetPreferred([]node.ID{{Role: node.RoleData, Num: 999}})
	got, err := l.PreferredReplicatedRead()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, id := range reloc.NodeSet {
		if id == got {
			found = true
		}
	}
	if !found {
		t.Fatalf("PreferredReplicatedRead returned node not in node_set: %v", got)
	}
}

func TestPreferredReplicatedReadHonoursKnownPreference(t *testing.T) {
	reloc := &node.RelationLocInfo{Policy: node.PolicyReplicated, NodeSet: nodes(3)}
	l, _ := New(node.PolicyReplicated, node.AccessRead, TypeInt4, reloc)

	want := reloc.NodeSet[1]
	l.SetPreferred([]node.ID{want})
	got, err := l.PreferredReplicatedRead()
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("PreferredReplicatedRead = %v, want %v", got, want)
	}
}

func TestReplicatedWriteOrderWithPrimary(t *testing.T) {
	ns := nodes(3)
	primary := ns[1]
	reloc := &node.RelationLocInfo{Policy: node.PolicyReplicated, NodeSet: ns, PrimaryNode: &primary}
	l, _ := New(node.PolicyReplicated, node.AccessInsert, TypeInt4, reloc)

	p, rest := l.ReplicatedWriteOrder()
	if len(p) != 1 || p[0] != primary {
		t.Fatalf("primary = %v, want [%v]", p, primary)
	}
	if len(rest) != 2 {
		t.Fatalf("rest = %v, want 2 nodes", rest)
	}
	for _, r := range rest {
		if r == primary {
			t.Fatalf("primary node leaked into rest: %v", rest)
		}
	}
}

func TestGetAnyDataNodeRespectsPreferredIntersection(t *testing.T) {
	reloc := &node.RelationLocInfo{Policy: node.PolicyReplicated, NodeSet: nodes(5)}
	l, _ := New(node.PolicyReplicated, node.AccessRead, TypeInt4, reloc)
	want := reloc.NodeSet[2]
	l.SetPreferred([]node.ID{want})

	for i := 0; i < 20; i++ {
		got := l.GetAnyDataNode(reloc.NodeSet)
		if got != want {
			t.Fatalf("GetAnyDataNode = %v, want %v (only preferred candidate)", got, want)
		}
	}
}
