package cib

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/beevik/etree"
	"github.com/maruel/natural"
)

// NodeStatus holds the liveness attributes of a status/node_state record.
type NodeStatus struct {
	InCCM    string // "true"/"false" or, on newer pacemaker, a join timestamp
	Crmd     string // "online"/"offline" or a timestamp
	Join     string // "member", "down", "pending", "banned"
	Expected string // expected join state
}

func (s NodeStatus) inCluster() bool { return parseBool(s.InCCM, false) || atoi(s.InCCM) > 0 }

func (s NodeStatus) controllerUp() bool { return s.Crmd == "online" || atoi(s.Crmd) > 0 }

// OnlineClassifier maps a node_state record to a node state.
type OnlineClassifier func(st NodeStatus, fencing bool) NodeState

// DefaultOnlineStatus is a simplified form of pacemaker's online-status
// determination. With fencing, a node that dropped out of membership without
// being expected down is unclean; without fencing it is merely offline.
func DefaultOnlineStatus(st NodeStatus, fencing bool) NodeState {
	in, up := st.inCluster(), st.controllerUp()
	switch {
	case in && up && st.Join == "member":
		return NodeOnline
	case in && up:
		return NodePending
	case !fencing:
		return NodeOffline
	case !in && (st.Expected == "down" || st.Expected == ""):
		return NodeOffline
	default:
		return NodeUnclean
	}
}

func nodeStatus(el *etree.Element) NodeStatus {
	return NodeStatus{
		InCCM:    el.SelectAttrValue("in_ccm", ""),
		Crmd:     el.SelectAttrValue("crmd", ""),
		Join:     el.SelectAttrValue("join", ""),
		Expected: el.SelectAttrValue("expected", ""),
	}
}

// nodeState finds the status record of the named node.
func (b *builder) nodeState(uname string) *etree.Element {
	for _, ns := range b.root.FindElements("./status/node_state") {
		if ns.SelectAttrValue("uname", "") == uname {
			return ns
		}
	}
	return nil
}

func (b *builder) buildNodes() {
	fencing := b.config.StonithEnabled()
	clusterMaint := b.config.MaintenanceMode()
	b.nodes = []*Node{}

	for _, el := range b.root.FindElements("./configuration/nodes/node") {
		n := &Node{
			Uname:       el.SelectAttrValue("uname", ""),
			ID:          el.SelectAttrValue("id", ""),
			Maintenance: clusterMaint,
			Remote:      el.SelectAttrValue("type", "") == "remote",
		}
		if ns := b.nodeState(n.Uname); ns != nil {
			n.State = b.opts.Classify(nodeStatus(ns), fencing)
			// Node attributes only count once the node has been seen.
			if nv := el.FindElement("./instance_attributes/nvpair[@name='standby']"); nv != nil {
				n.Standby = truthy(nv.SelectAttrValue("value", ""))
			}
			if nv := el.FindElement("./instance_attributes/nvpair[@name='maintenance']"); nv != nil && truthy(nv.SelectAttrValue("value", "")) {
				n.Maintenance = true
			}
		} else if fencing {
			n.State = NodeUnclean
		} else {
			n.State = NodeOffline
		}
		if n.Standby && n.State == NodeOnline {
			n.State = NodeStandby
		}
		b.nodes = append(b.nodes, n)
	}

	for _, ns := range b.root.FindElements("./status/node_state[@remote_node='true']") {
		id := ns.SelectAttrValue("id", "")
		if slices.ContainsFunc(b.nodes, func(n *Node) bool { return n.ID == id }) {
			continue
		}
		b.nodes = append(b.nodes, &Node{
			Uname:       ns.SelectAttrValue("uname", ""),
			ID:          id,
			State:       NodeUnknown,
			Maintenance: clusterMaint,
			Remote:      true,
		})
	}
}

// finalizeNodes runs once resource state is known: remote nodes take their
// state from the resource of the same id, unclean nodes are reported, and
// the roster is put in natural order.
func (b *builder) finalizeNodes() {
	for _, n := range b.nodes {
		if !n.Remote || n.State == NodeUnclean {
			continue
		}
		r := b.byID[n.ID]
		switch {
		case r != nil && (r.State == StateMaster || r.State == StateSlave || r.State == StateStarted):
			n.State = NodeOnline
		case r != nil && (r.State == StateFailed || r.State == StatePending):
			n.State = NodeUnclean
		default:
			n.State = NodeOffline
		}
	}

	for _, n := range b.nodes {
		if n.State == NodeUnclean {
			slog.Debug("node unclean", "node", n.Uname)
			b.diag(KindNodeUnclean, SeverityDanger, map[string]string{"node": n.Uname})
		}
	}

	slices.SortStableFunc(b.nodes, func(x, y *Node) int {
		return naturalCompare(x.Uname, y.Uname)
	})
}

// naturalCompare orders names case-insensitively with digit runs compared
// numerically, so node2 sorts before node10.
func naturalCompare(a, b string) int {
	a, b = strings.ToLower(a), strings.ToLower(b)
	switch {
	case natural.Less(a, b):
		return -1
	case natural.Less(b, a):
		return 1
	}
	return 0
}
