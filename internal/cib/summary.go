package cib

import "slices"

// Summary is the compact view of a snapshot used for dashboards and
// polling.
type Summary struct {
	Meta        Meta         `json:"meta"`
	Diagnostics []Diagnostic `json:"errors"`
	Booth       BoothInfo    `json:"booth"`

	// Resources maps primitive id to node to the state on that node.
	Resources      map[string]map[string]ResourceState `json:"resources"`
	ResourceStates map[ResourceState]int               `json:"resource_states"`
	Nodes          map[string]NodeState                `json:"nodes"`
	NodeStates     map[NodeState]int                   `json:"node_states"`
	Tickets        []TicketSummary                     `json:"tickets"`
	TicketStates   TicketCounts                        `json:"ticket_states"`
}

// TicketSummary pairs a ticket with "granted" or "revoked".
type TicketSummary struct {
	Ticket string `json:"ticket"`
	State  string `json:"state"`
}

type TicketCounts struct {
	Granted int `json:"granted"`
	Revoked int `json:"revoked"`
}

// States counted per instance, in the order they are applied. A node that
// reports several of these for one instance is listed under the last.
var summaryStates = []ResourceState{StateMaster, StateSlave, StateStarted, StateFailed, StatePending}

// Summary computes the compact view.
func (s *Snapshot) Summary() *Summary {
	sum := &Summary{
		Meta:        s.Meta,
		Diagnostics: s.Diagnostics,
		Booth:       s.Booth,
		Resources:   make(map[string]map[string]ResourceState),
		ResourceStates: map[ResourceState]int{
			StatePending: 0, StateStarted: 0, StateFailed: 0,
			StateMaster: 0, StateSlave: 0, StateStopped: 0,
		},
		Nodes: make(map[string]NodeState),
		NodeStates: map[NodeState]int{
			NodePending: 0, NodeOnline: 0, NodeStandby: 0, NodeOffline: 0, NodeUnclean: 0,
		},
		Tickets: []TicketSummary{},
	}

	for id, r := range s.ResourcesByID {
		if r.Instances == nil {
			continue
		}
		perNode := make(map[string]ResourceState)
		sum.Resources[id] = perNode
		for _, inst := range r.Instances {
			found := false
			for _, st := range summaryStates {
				occ, ok := inst.States[st]
				if !ok {
					continue
				}
				for _, o := range occ {
					perNode[o.Node] = st
				}
				sum.ResourceStates[st]++
				found = true
			}
			if !found {
				sum.ResourceStates[StateStopped]++
			}
		}
	}

	for _, n := range s.Nodes {
		sum.Nodes[n.Uname] = n.State
		sum.NodeStates[n.State]++
	}

	names := make([]string, 0, len(s.Tickets))
	for name := range s.Tickets {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if s.Tickets[name].Granted {
			sum.Tickets = append(sum.Tickets, TicketSummary{Ticket: name, State: "granted"})
			sum.TicketStates.Granted++
		} else {
			sum.Tickets = append(sum.Tickets, TicketSummary{Ticket: name, State: "revoked"})
			sum.TicketStates.Revoked++
		}
	}
	return sum
}
