package snapshot

import "sync/atomic"

// replicaPool is a Treiber stack of pooled replicas: push/pop via CAS, no
// mutex. The pool services the SoD (snapshot-on-demand) strategy, whose
// AcquireView pops a replica (creating one if empty) and whose
// ReleaseView pushes it back after a soft clear.
type replicaNode struct {
	value *pooledReplica
	next  *replicaNode
}

type replicaPool struct {
	head atomic.Pointer[replicaNode]
}

func newReplicaPool() *replicaPool {
	return &replicaPool{}
}

func (p *replicaPool) push(v *pooledReplica) {
	n := &replicaNode{value: v}
	for {
		old := p.head.Load()
		n.next = old
		if p.head.CompareAndSwap(old, n) {
			return
		}
	}
}

func (p *replicaPool) pop() *pooledReplica {
	for {
		old := p.head.Load()
		if old == nil {
			return nil
		}
		if p.head.CompareAndSwap(old, old.next) {
			return old.value
		}
	}
}
