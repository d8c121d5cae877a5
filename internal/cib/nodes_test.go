package cib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOnlineStatus(t *testing.T) {
	tests := []struct {
		name    string
		st      NodeStatus
		fencing bool
		want    NodeState
	}{
		{"member", NodeStatus{InCCM: "true", Crmd: "online", Join: "member", Expected: "member"}, true, NodeOnline},
		{"timestamps", NodeStatus{InCCM: "1700000000", Crmd: "1700000001", Join: "member"}, true, NodeOnline},
		{"joining", NodeStatus{InCCM: "true", Crmd: "online", Join: "pending"}, true, NodePending},
		{"clean shutdown", NodeStatus{InCCM: "false", Crmd: "offline", Join: "down", Expected: "down"}, true, NodeOffline},
		{"never joined", NodeStatus{InCCM: "false", Crmd: "offline"}, true, NodeOffline},
		{"lost", NodeStatus{InCCM: "false", Crmd: "offline", Join: "member", Expected: "member"}, true, NodeUnclean},
		{"controller dead", NodeStatus{InCCM: "true", Crmd: "offline", Join: "member", Expected: "member"}, true, NodeUnclean},
		{"lost without fencing", NodeStatus{InCCM: "false", Crmd: "offline", Expected: "member"}, false, NodeOffline},
		{"joining without fencing", NodeStatus{InCCM: "true", Crmd: "online", Join: "pending"}, false, NodePending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultOnlineStatus(tt.st, tt.fencing))
		})
	}
}

func TestNodeWithoutStatus(t *testing.T) {
	s := buildXML(t, fixture{nodes: node("1", "n1")}.xml(), Options{})
	n, ok := s.Node("n1")
	require.True(t, ok)
	assert.Equal(t, NodeUnclean, n.State)
	assert.Equal(t, []DiagnosticKind{KindNodeUnclean}, diagKinds(s))
	assert.Equal(t, "n1", s.Diagnostics[0].Params["node"])

	s = buildXML(t, fixture{props: nvpair("stonith-enabled", "false"), nodes: node("1", "n1")}.xml(), Options{})
	n, _ = s.Node("n1")
	assert.Equal(t, NodeOffline, n.State)
}

func TestStandbyNode(t *testing.T) {
	standby := func(v string) string {
		return `<node id="1" uname="n1"><instance_attributes id="ia">` + nvpair("standby", v) + `</instance_attributes></node>`
	}
	for _, v := range []string{"true", "yes", "1", "on"} {
		s := buildXML(t, fixture{nodes: standby(v), status: onlineState("1", "n1")}.xml(), Options{})
		n, _ := s.Node("n1")
		assert.Equal(t, NodeStandby, n.State, v)
		assert.True(t, n.Standby, v)
	}

	s := buildXML(t, fixture{nodes: standby("off"), status: onlineState("1", "n1")}.xml(), Options{})
	n, _ := s.Node("n1")
	assert.Equal(t, NodeOnline, n.State)
	assert.False(t, n.Standby)
}

func TestInjectedClassifier(t *testing.T) {
	var seen []NodeStatus
	classify := func(st NodeStatus, fencing bool) NodeState {
		seen = append(seen, st)
		assert.True(t, fencing)
		return NodePending
	}
	s := buildXML(t, fixture{nodes: node("1", "n1"), status: onlineState("1", "n1")}.xml(), Options{Classify: classify})

	n, _ := s.Node("n1")
	assert.Equal(t, NodePending, n.State)
	assert.Equal(t, []NodeStatus{{InCCM: "true", Crmd: "online", Join: "member", Expected: "member"}}, seen)
}

func TestRemoteNodes(t *testing.T) {
	s := buildXML(t, fixture{
		nodes: node("1", "n1") + `<node id="rem1" uname="rem1" type="remote"/>`,
		resources: `<primitive id="rem1" class="ocf" provider="pacemaker" type="remote"/>` +
			`<primitive id="rem2" class="ocf" provider="pacemaker" type="remote"/>` +
			`<primitive id="rem3" class="ocf" provider="pacemaker" type="remote"/>`,
		status: onlineState("1", "n1",
			lrmResource("rem1", rscOp("rem1_last_0", "start", 3, 0, "1:1:0:u")),
			lrmResource("rem2", rscOp("rem2_last_0", "start", -1, 0, "2:1:0:u")),
		) +
			`<node_state id="rem1" uname="rem1" remote_node="true" in_ccm="true" crmd="online" join="member"/>` +
			`<node_state id="rem2" uname="rem2" remote_node="true"/>` +
			`<node_state id="rem3" uname="rem3" remote_node="true"/>`,
	}.xml(), Options{})

	require.Len(t, s.Nodes, 4)
	states := make(map[string]NodeState)
	for _, n := range s.Nodes {
		states[n.Uname] = n.State
	}
	assert.Equal(t, map[string]NodeState{
		"n1":   NodeOnline,
		"rem1": NodeOnline,
		"rem2": NodeUnclean,
		"rem3": NodeOffline,
	}, states)

	rem2, _ := s.Node("rem2")
	assert.True(t, rem2.Remote)
}

func TestNaturalNodeOrder(t *testing.T) {
	s := buildXML(t, fixture{
		props: nvpair("stonith-enabled", "false"),
		nodes: node("1", "node10") + node("2", "Node2") + node("3", "node1") + node("4", "alpha"),
	}.xml(), Options{})

	var names []string
	for _, n := range s.Nodes {
		names = append(names, n.Uname)
	}
	assert.Equal(t, []string{"alpha", "node1", "Node2", "node10"}, names)
}

func TestNaturalCompare(t *testing.T) {
	assert.Negative(t, naturalCompare("node2", "node10"))
	assert.Positive(t, naturalCompare("NODE10", "node9"))
	assert.Zero(t, naturalCompare("Node1", "node1"))
}
