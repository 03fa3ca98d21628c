package session

import (
	"fmt"

	"github.com/mnohosten/laura-remotex/pkg/locator"
	"github.com/mnohosten/laura-remotex/pkg/node"
)

// Route resolves value through loc and returns the handles already
// held by this session for the chosen nodes, in loc's node_set order.
// A node the locator names but this session has no handle for is a
// caller bug (every node in node_set must have been acquired from the
// pool manager before a statement is planned against it) — Route
// reports it rather than silently dropping the node from the fan-out.
func (s *Session) Route(loc *locator.Locator, value interface{}) ([]*node.Handle, error) {
	ids, err := loc.Locate(value)
	if err != nil {
		return nil, fmt.Errorf("session: route: %w", err)
	}
	out := make([]*node.Handle, 0, len(ids))
	for _, id := range ids {
		h, ok := s.handles[id]
		if !ok {
			return nil, fmt.Errorf("session: route: no handle held for node %s", id)
		}
		out = append(out, h)
	}
	return out, nil
}
