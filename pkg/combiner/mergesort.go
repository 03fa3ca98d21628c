package combiner

import (
	"github.com/mnohosten/laura-remotex/pkg/node"
	"github.com/mnohosten/laura-remotex/pkg/wire"
)

// EnableMergeSort turns on k-way merge fetch across the connections'
// per-node pre-sorted row streams, using less to order rows (§4.2: the
// executor supplies the ORDER BY comparator; the Combiner only knows
// how to merge already-sorted tapes, never how to sort one itself).
func (c *Combiner) EnableMergeSort(less func(a, b *wire.Row) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mergeSort = true
	c.less = less
}

// FetchTuple returns the next row in delivery order: FIFO across
// connections when merge-sort is off, or the smallest head-of-tape row
// (by less) when it's on. ok is false when no row is available right
// now — either every tape is exhausted (query genuinely done) or a
// tape that hasn't reported done yet is simply waiting on more bytes
// from its node; the caller can't tell which without checking whether
// all connections are done (§4.2's tape semantics: a stable tape index
// is held, never reused, once a tape goes nil).
func (c *Combiner) FetchTuple() (node.ID, *wire.Row, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.mergeSort {
		if c.fetchCursor >= len(c.rowBuffer) {
			return node.ID{}, nil, false
		}
		e := c.rowBuffer[c.fetchCursor]
		c.fetchCursor++
		c.compactRowBuffer()
		return e.origin, e.row, true
	}

	var (
		bestIdx  = -1
		best     rowEntry
		bestConn *connState
	)
	for _, cs := range c.conns {
		if cs.nilTape {
			continue
		}
		idx, entry, found := c.headOfTape(cs)
		if !found {
			if cs.done {
				cs.nilTape = true
				continue
			}
			return node.ID{}, nil, false
		}
		if bestIdx == -1 || c.less(entry.row, best.row) {
			bestIdx, best, bestConn = idx, entry, cs
		}
	}
	if bestIdx == -1 {
		return node.ID{}, nil, false
	}
	bestConn.tapeMark = bestIdx + 1
	c.compactRowBuffer()
	return best.origin, best.row, true
}

// headOfTape scans row_buffer starting at cs.tapeMark for the next
// entry originating from cs's node — rows from different nodes arrive
// interleaved in row_buffer, but each node's own subsequence is already
// sorted by that backend.
func (c *Combiner) headOfTape(cs *connState) (int, rowEntry, bool) {
	for i := cs.tapeMark; i < len(c.rowBuffer); i++ {
		if c.rowBuffer[i].origin == cs.handle.ID() {
			return i, c.rowBuffer[i], true
		}
	}
	return 0, rowEntry{}, false
}

// compactRowBuffer discards the prefix of row_buffer that every live
// tape has already consumed past, sliding tape_marks down by the same
// amount so they keep pointing at the same logical cells (§4.2: "cell
// deletion adjusting all tape marks").
func (c *Combiner) compactRowBuffer() {
	minMark := len(c.rowBuffer)
	for _, cs := range c.conns {
		if cs.nilTape {
			continue
		}
		if cs.tapeMark < minMark {
			minMark = cs.tapeMark
		}
	}
	if minMark <= 0 {
		return
	}
	c.rowBuffer = append([]rowEntry{}, c.rowBuffer[minMark:]...)
	c.fetchCursor -= minMark
	if c.fetchCursor < 0 {
		c.fetchCursor = 0
	}
	for _, cs := range c.conns {
		cs.tapeMark -= minMark
		if cs.tapeMark < 0 {
			cs.tapeMark = 0
		}
	}
}
