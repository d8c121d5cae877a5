package cib

// reconcile brings every primitive's instance map in line with its
// configuration and returns the total number of instances in the tree.
//
// Clone-descended primitives lose any Default instance (left over when a
// running primitive is later cloned), drop stopped instances numbered beyond
// CloneMax and are then topped up to CloneMax with empty instances. Other
// primitives keep only their Default instance, which is created if no node
// reported one. Running it again on a reconciled tree changes nothing.
func (b *builder) reconcile(resources []*Resource) int {
	return reconcileTree(resources, !b.config.MaintenanceMode())
}

func reconcileTree(resources []*Resource, allowManaged bool) int {
	total := 0
	for _, r := range resources {
		if r.Instances != nil {
			if r.InClone {
				reconcileClone(r, allowManaged)
			} else {
				reconcilePrimitive(r, allowManaged)
			}
			total += len(r.Instances)
		}
		total += reconcileTree(r.Children, allowManaged)
	}
	return total
}

func reconcileClone(r *Resource, allowManaged bool) {
	delete(r.Instances, DefaultKey)

	for k, inst := range r.Instances {
		if k.Indexed && int64(k.Index) >= int64(r.CloneMax) && inst.onlyStopped() {
			delete(r.Instances, k)
		}
	}

	var next uint32
	for len(r.Instances) < r.CloneMax {
		for {
			if _, used := r.Instances[IndexKey(next)]; !used {
				break
			}
			next++
		}
		r.Instances[IndexKey(next)] = newInstance(r.Managed && allowManaged)
	}
}

func reconcilePrimitive(r *Resource, allowManaged bool) {
	for k := range r.Instances {
		if k != DefaultKey {
			delete(r.Instances, k)
		}
	}
	if _, ok := r.Instances[DefaultKey]; !ok {
		r.Instances[DefaultKey] = newInstance(r.Managed && allowManaged)
	}
}

// rollup resolves resource state bottom-up. A primitive takes the highest
// priority state held by any of its instances, stopped when none is known.
// A container takes the highest state among its children.
func rollup(resources []*Resource) {
	for _, r := range resources {
		r.State = StateStopped
		for _, inst := range r.Instances {
			for st := range inst.States {
				if st.Priority() > r.State.Priority() {
					r.State = st
				}
			}
		}
		if r.Children != nil {
			rollup(r.Children)
			for _, c := range r.Children {
				if c.State.Priority() > r.State.Priority() {
					r.State = c.State
				}
			}
		}
	}
}
