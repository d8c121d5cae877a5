package cib

import (
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// opRecord is one lrm_rsc_op entry from a node's operation history.
type opRecord struct {
	ID            string
	Operation     string
	TransitionKey string
	HasKey        bool
	CallID        int
	RC            int
	Interval      int
	ExitReason    string

	// Timing attributes; a nil pointer means the attribute was absent.
	LastRCChange *int64
	LastRun      *int64
	ExecTime     *int64
	QueueTime    *int64
}

func parseOp(el *etree.Element) opRecord {
	op := opRecord{
		ID:         el.SelectAttrValue("id", ""),
		Operation:  el.SelectAttrValue("operation", ""),
		CallID:     atoi(el.SelectAttrValue("call-id", "")),
		RC:         atoi(el.SelectAttrValue("rc-code", "")),
		Interval:   atoi(el.SelectAttrValue("interval", "")),
		ExitReason: el.SelectAttrValue("exit-reason", ""),
	}
	if a := el.SelectAttr("transition-key"); a != nil {
		op.TransitionKey, op.HasKey = a.Value, true
	}
	opt := func(name string) *int64 {
		a := el.SelectAttr(name)
		if a == nil {
			return nil
		}
		v := int64(atoi(a.Value))
		return &v
	}
	op.LastRCChange = opt("last-rc-change")
	op.LastRun = opt("last-run")
	op.ExecTime = opt("exec-time")
	op.QueueTime = opt("queue-time")
	return op
}

// keyField returns field i of a colon-separated transition key. Keys have
// the form action:graph:expected-rc:transitioner-uuid.
func keyField(key string, i int) string {
	parts := strings.Split(key, ":")
	if i < len(parts) {
		return parts[i]
	}
	return ""
}

func (o opRecord) pending() bool { return o.CallID == -1 }

// compareOps orders a resource's history so the most recent operation comes
// last. Pending entries (call-id -1) need tie-breaking because pacemaker
// leaves stale pending records behind.
func compareOps(a, b opRecord) int {
	switch {
	case !a.pending() && !b.pending():
		return cmpInt(a.CallID, b.CallID)

	case strings.HasPrefix(a.Operation, "migrate_") || strings.HasPrefix(b.Operation, "migrate_"):
		switch {
		case a.TransitionKey == b.TransitionKey:
			return cmpInt(a.CallID, b.CallID)
		case keyField(a.TransitionKey, 3) == keyField(b.TransitionKey, 3):
			// Same transitioner: the larger graph number is newer.
			return cmpInt(atoi(keyField(a.TransitionKey, 1)), atoi(keyField(b.TransitionKey, 1)))
		default:
			// Different transitioner instances. Treat the pending op as
			// current. This is a heuristic, not a guarantee.
			return cmpInt(b.CallID, a.CallID)
		}

	case a.Operation == b.Operation && a.TransitionKey == b.TransitionKey:
		// A duplicate that claims to be pending loses to the completed one.
		return cmpInt(a.CallID, b.CallID)

	case a.pending() && !b.pending():
		return 1
	case b.pending() && !a.pending():
		return -1
	}
	return 0
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func sortOps(ops []opRecord) {
	slices.SortStableFunc(ops, compareOps)
}

var pendingSubstates = map[string]Substate{
	"start":   SubstateStarting,
	"stop":    SubstateStopping,
	"promote": SubstatePromoting,
	"demote":  SubstateDemoting,
}

// failureWindow brackets a failed operation for history lookups: the
// earlier of last-rc-change and last-run, less execution and queue time,
// widened by ten minutes either side. ok is false without timestamps.
func failureWindow(op opRecord) (start, end int64, ok bool) {
	var t *int64
	for _, c := range []*int64{op.LastRCChange, op.LastRun} {
		if c != nil && (t == nil || *c < *t) {
			t = c
		}
	}
	if t == nil {
		return 0, 0, false
	}
	start, end = *t, *t
	if op.ExecTime != nil {
		start -= *op.ExecTime / 1000
	}
	if op.QueueTime != nil {
		start -= *op.QueueTime / 1000
	}
	return start - 600, end + 600, true
}

// reduceNode folds the operation history of every resource recorded on n.
func (b *builder) reduceNode(n *Node) {
	ns := b.nodeState(n.Uname)
	if ns == nil {
		return
	}
	for _, lrm := range ns.FindElements("./lrm/lrm_resources/lrm_resource") {
		id := lrm.SelectAttrValue("id", "")

		var ops []opRecord
		for _, el := range lrm.SelectElements("lrm_rsc_op") {
			ops = append(ops, parseOp(el))
		}
		sortOps(ops)

		base, suffix, hasSuffix := strings.Cut(id, ":")
		suffix, _, _ = strings.Cut(suffix, ":")
		state, substate, failed := b.fold(n, id, base, ops)

		r := b.byID[base]
		if r == nil || r.Instances == nil {
			slog.Debug("ignoring orphaned resource history", "id", id, "node", n.Uname)
			b.diag(KindOrphanedHistory, SeverityInfo, map[string]string{"id": id, "node": n.Uname})
			continue
		}
		b.updateResourceState(r, n, suffix, hasSuffix, state, substate, failed)
	}
}

// fold replays sorted operations into the resource's state on node n.
func (b *builder) fold(n *Node, id, base string, ops []opRecord) (ResourceState, Substate, []FailedOp) {
	state := StateUnknown
	substate := SubstateNone
	failed := []FailedOp{}

	for _, op := range ops {
		switch op.Operation {
		case "notify", "delete", "cancel":
			continue
		}
		if op.pending() && strings.HasSuffix(op.ID, "_last_failure_0") {
			continue
		}

		if op.pending() {
			if op.Operation != "monitor" {
				state = StatePending
			}
			if s, ok := pendingSubstates[op.Operation]; ok {
				substate = s
			} else if strings.HasPrefix(op.Operation, "migrate") {
				substate = SubstateMigrating
			}
			continue
		}

		rc := op.RC
		expected := rc
		if op.HasKey {
			expected = atoi(keyField(op.TransitionKey, 2))
		}
		// A one-shot monitor reports state; only rc outside 0, 7 and 8 is a failure.
		oneShot := op.Operation == "monitor" && op.Interval == 0
		if rc != expected && (!oneShot || (rc != 0 && rc != 7 && rc != 8)) {
			r := b.byID[base]
			ignored := r != nil && r.Kind == KindPrimitive && r.ignoresFailure(op.Operation)

			f := FailedOp{
				Node:       n.Uname,
				CallID:     strconv.Itoa(op.CallID),
				Op:         op.Operation,
				RC:         rc,
				ExitReason: op.ExitReason,
				Ignored:    ignored,
			}
			params := map[string]string{
				"resource":    id,
				"node":        n.Uname,
				"op":          op.Operation,
				"call_id":     f.CallID,
				"rc":          strconv.Itoa(rc),
				"rc_name":     RCName(rc),
				"exit_reason": op.ExitReason,
			}
			if start, end, ok := failureWindow(op); ok {
				f.FailStart, f.FailEnd = start, end
				params["fail_start"] = strconv.FormatInt(start, 10)
				params["fail_end"] = strconv.FormatInt(end, 10)
			}
			if ignored {
				params["ignored"] = "true"
			}
			failed = append(failed, f)

			// An ignored failure is still an error; it only stops the
			// failure from changing the resource and node state.
			b.diag(KindOpFailed, SeverityDanger, params)
			switch {
			case ignored:
				rc = expected
			case op.Operation == "stop":
				state = StateFailed
				if b.config.StonithEnabled() {
					n.State = NodeUnclean
				}
			}
		}

		switch rc {
		case 7:
			state = StateStopped
		case 8:
			state = StateMaster
		case 0:
			switch op.Operation {
			case "stop", "migrate_to":
				state = StateStopped
			case "promote":
				state = StateMaster
			default:
				state = StateStarted
			}
		}
	}
	return state, substate, failed
}

// updateResourceState records one node's view of a primitive in the right
// instance.
func (b *builder) updateResourceState(r *Resource, n *Node, suffix string, hasSuffix bool, state ResourceState, substate Substate, failed []FailedOp) {
	if r.MultiState && state == StateStarted {
		state = StateSlave
	}

	var idx uint32
	indexed := false
	if hasSuffix {
		v, err := strconv.ParseUint(suffix, 10, 32)
		if err == nil {
			idx, indexed = uint32(v), true
		} else {
			slog.Debug("treating unparseable instance suffix as anonymous",
				"resource", r.ID, "suffix", suffix, "node", n.Uname, "error", err)
		}
	}
	if !indexed && r.InClone {
		// Anonymous clones carry no instance number; number them in
		// node order after the highest one seen so far.
		var maxIdx uint32
		seen := false
		for k := range r.Instances {
			if k.Indexed && (!seen || k.Index > maxIdx) {
				maxIdx, seen = k.Index, true
			}
		}
		if seen {
			idx = maxIdx + 1
		}
		indexed = true
	}

	key := DefaultKey
	if indexed && state.running() {
		alt := idx
		for {
			inst, ok := r.Instances[IndexKey(alt)]
			if !ok || !inst.active() {
				break
			}
			alt++
		}
		if alt != idx {
			slog.Debug("renamed clone instance", "id", r.ID, "from", idx, "to", alt, "node", n.Uname)
		}
		key = IndexKey(alt)
	}

	inst, ok := r.Instances[key]
	if !ok {
		inst = newInstance(r.Managed && !b.config.MaintenanceMode())
		r.Instances[key] = inst
	}
	inst.States[state] = append(inst.States[state], Occurrence{Node: n.Uname, Substate: substate})
	inst.FailedOps = append(inst.FailedOps, failed...)
	if state.running() && n.Maintenance {
		inst.Managed = false
	}
}
