// Package diagnostics builds and renders the live-entity snapshot table
// simhostctl prints (SPEC_FULL.md §5.9): a debug-only view of lifecycle
// state, network identity, and ownership, read straight off the live
// world. Nothing here runs on the kernel's per-frame hot path.
package diagnostics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pjanec/simhost/internal/kernel"
	"github.com/pjanec/simhost/internal/lifecycle"
)

// Row is one entity's diagnostic line: lifecycle state plus whatever
// lifecycle-specific components happen to be present.
type Row struct {
	Entity      string
	State       string
	NetworkID   string
	PrimaryOwns string
	PendingAcks string
}

// BuildRows reads kernel.DebugSnapshot() and enriches each entity with
// the lifecycle components (NetworkIdentity, NetworkOwnership,
// PendingNetworkAck) a host's distributed-entity pipeline attaches,
// sorted by the entity's string form (lexicographic, so "Entity(10/1)"
// sorts before "Entity(2/1)") for stable output.
func BuildRows(k *kernel.Kernel) []Row {
	snap := k.DebugSnapshot()
	w := k.LiveWorld()

	rows := make([]Row, 0, len(snap))
	for _, e := range snap {
		row := Row{Entity: e.Entity.String(), State: e.State.String()}

		if raw, ok := w.GetComponent(e.Entity, lifecycle.ComponentNetworkIdentity); ok {
			ident := raw.(lifecycle.NetworkIdentity)
			row.NetworkID = fmt.Sprintf("%d", ident.NetworkID)
		}
		if raw, ok := w.GetComponent(e.Entity, lifecycle.ComponentNetworkOwnership); ok {
			own := raw.(lifecycle.NetworkOwnership)
			row.PrimaryOwns = fmt.Sprintf("local=%s primary=%s", own.LocalNodeID, own.PrimaryOwnerID)
		}
		if raw, ok := w.GetComponent(e.Entity, lifecycle.ComponentPendingNetworkAck); ok {
			ack := raw.(lifecycle.PendingNetworkAck)
			peers := make([]string, 0, len(ack.PendingPeers))
			for p := range ack.PendingPeers {
				peers = append(peers, string(p))
			}
			sort.Strings(peers)
			row.PendingAcks = strings.Join(peers, ",")
		}

		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Entity < rows[j].Entity })
	return rows
}
