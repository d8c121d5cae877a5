// Package cib derives a cluster health model from a Pacemaker CIB document.
//
// A Snapshot is built once per document: the configuration tree is parsed
// into typed resources, every node's operation history is folded into
// per-instance state, clone instances are reconciled against their configured
// cardinality and state is rolled up through groups and clones. Anything odd
// in the document is recorded as a Diagnostic rather than returned as an
// error.
package cib

import (
	"fmt"
	"strconv"
)

// ResourceState is the derived state of a resource or instance.
type ResourceState string

const (
	StateUnknown ResourceState = "unknown"
	StateStopped ResourceState = "stopped"
	StateStarted ResourceState = "started"
	StateSlave   ResourceState = "slave"
	StateMaster  ResourceState = "master"
	StatePending ResourceState = "pending"
	StateFailed  ResourceState = "failed"
)

// resourceStates lists every state from lowest to highest priority.
var resourceStates = []ResourceState{
	StateUnknown, StateStopped, StateStarted, StateSlave, StateMaster, StatePending, StateFailed,
}

// Priority orders states for rollup. Unrecognized states rank below unknown.
func (s ResourceState) Priority() int {
	for i, st := range resourceStates {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the known states.
func (s ResourceState) Valid() bool { return s.Priority() >= 0 }

// running reports whether the state means the resource is active (or may be)
// on the node it was observed on.
func (s ResourceState) running() bool {
	return s != StateStopped && s != StateUnknown
}

// Substate refines a pending operation.
type Substate string

const (
	SubstateNone      Substate = ""
	SubstateStarting  Substate = "starting"
	SubstateStopping  Substate = "stopping"
	SubstatePromoting Substate = "promoting"
	SubstateDemoting  Substate = "demoting"
	SubstateMigrating Substate = "migrating"
)

// NodeState is the derived state of a cluster node.
type NodeState string

const (
	NodeOnline  NodeState = "online"
	NodeStandby NodeState = "standby"
	NodeOffline NodeState = "offline"
	NodeUnclean NodeState = "unclean"
	NodePending NodeState = "pending"
	NodeUnknown NodeState = "unknown"
)

// Kind is the configuration element a resource was built from.
type Kind string

const (
	KindPrimitive  Kind = "primitive"
	KindGroup      Kind = "group"
	KindClone      Kind = "clone"
	KindMultiState Kind = "master"
)

// ManagedSource records where a resource's managed flag came from.
type ManagedSource string

const (
	ManagedInherited   ManagedSource = "inherited"
	ManagedExplicit    ManagedSource = "explicit"
	ManagedMaintenance ManagedSource = "maintenance"
)

// Agent identifies the resource agent behind a primitive.
type Agent struct {
	Class    string `json:"class"`
	Provider string `json:"provider,omitempty"` // empty for lsb/stonith
	Type     string `json:"type"`
	Template string `json:"template,omitempty"`
}

// OpDef is an operation definition from a primitive's <operations> block.
type OpDef struct {
	Name     string `json:"name"`
	Interval string `json:"interval,omitempty"`
	OnFail   string `json:"on_fail,omitempty"`
}

// Resource is one node of the configured resource tree. Containers carry
// Children; primitives carry Instances.
type Resource struct {
	ID            string            `json:"id"`
	Kind          Kind              `json:"kind"`
	Attributes    map[string]string `json:"attributes"`
	Managed       bool              `json:"is_managed"`
	ManagedSource ManagedSource     `json:"managed_source"`
	State         ResourceState     `json:"state"`

	// Primitive only.
	Agent      *Agent                    `json:"agent,omitempty"`
	Operations []OpDef                   `json:"operations,omitempty"`
	Instances  map[InstanceKey]*Instance `json:"instances,omitempty"`

	// CloneMax is the cardinality inherited from the nearest clone or master
	// ancestor. It is only meaningful when InClone is set.
	InClone    bool `json:"in_clone,omitempty"`
	CloneMax   int  `json:"clone_max,omitempty"`
	MultiState bool `json:"multi_state,omitempty"`

	Children []*Resource `json:"children,omitempty"`
}

// IsContainer reports whether r is a group, clone or master resource.
func (r *Resource) IsContainer() bool { return r.Kind != KindPrimitive }

func (r *Resource) ignoresFailure(op string) bool {
	for _, d := range r.Operations {
		if d.Name == op && d.OnFail == "ignore" {
			return true
		}
	}
	return false
}

// InstanceKey addresses an instance of a resource: either the Default
// instance of a plain primitive or a numbered clone instance.
type InstanceKey struct {
	Indexed bool
	Index   uint32
}

// DefaultKey is the single instance key of a non-cloned primitive.
var DefaultKey = InstanceKey{}

// IndexKey returns the key of clone instance n.
func IndexKey(n uint32) InstanceKey { return InstanceKey{Indexed: true, Index: n} }

func (k InstanceKey) String() string {
	if !k.Indexed {
		return "default"
	}
	return strconv.FormatUint(uint64(k.Index), 10)
}

// ParseInstanceKey parses "default" or a clone index.
func ParseInstanceKey(s string) (InstanceKey, error) {
	if s == "default" {
		return DefaultKey, nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return InstanceKey{}, fmt.Errorf("invalid instance key %q: %w", s, err)
	}
	return IndexKey(uint32(n)), nil
}

func (k InstanceKey) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *InstanceKey) UnmarshalText(b []byte) error {
	parsed, err := ParseInstanceKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Occurrence is one node's observation of an instance in some state.
type Occurrence struct {
	Node     string   `json:"node"`
	Substate Substate `json:"substate,omitempty"`
}

// FailedOp is a failed resource operation from a node's history.
type FailedOp struct {
	Node       string `json:"node"`
	CallID     string `json:"call_id"`
	Op         string `json:"op"`
	RC         int    `json:"rc_code"`
	ExitReason string `json:"exit_reason"`
	Ignored    bool   `json:"ignored,omitempty"`
	// FailStart and FailEnd bound the failure for history lookups, in
	// seconds since the epoch. Both are zero when the operation carried no
	// timestamps.
	FailStart int64 `json:"fail_start,omitempty"`
	FailEnd   int64 `json:"fail_end,omitempty"`
}

// Instance is the state of one resource (or clone replica) across nodes.
type Instance struct {
	Managed   bool                           `json:"is_managed"`
	States    map[ResourceState][]Occurrence `json:"states"`
	FailedOps []FailedOp                     `json:"failed_ops"`
}

func newInstance(managed bool) *Instance {
	return &Instance{
		Managed:   managed,
		States:    make(map[ResourceState][]Occurrence),
		FailedOps: []FailedOp{},
	}
}

// active reports whether any node holds the instance in a non-terminal state.
func (i *Instance) active() bool {
	for st := range i.States {
		if st.running() {
			return true
		}
	}
	return false
}

// onlyStopped reports whether stopped is the only state recorded.
func (i *Instance) onlyStopped() bool {
	_, ok := i.States[StateStopped]
	return ok && len(i.States) == 1
}

// Node is a cluster member (or remote node) and its derived state.
type Node struct {
	Uname       string    `json:"uname"`
	ID          string    `json:"id"`
	State       NodeState `json:"state"`
	Standby     bool      `json:"standby"`
	Maintenance bool      `json:"maintenance"`
	Remote      bool      `json:"remote"`
}

// Ticket is a geo-cluster ticket.
type Ticket struct {
	Granted     bool   `json:"granted"`
	Standby     bool   `json:"standby"`
	LastGranted string `json:"last-granted,omitempty"`
	Leader      string `json:"leader,omitempty"`
	Expires     string `json:"expires,omitempty"`
	Commit      string `json:"commit,omitempty"`
}

// Constraint is a generic attributed constraint element.
type Constraint struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	Children   []*Constraint     `json:"children,omitempty"`
}

// Tag is a named set of object references.
type Tag struct {
	ID   string   `json:"id"`
	Refs []string `json:"refs"`
}

// Template is a resource template definition.
type Template struct {
	ID       string `json:"id"`
	Class    string `json:"class"`
	Provider string `json:"provider,omitempty"`
	Type     string `json:"type"`
}
