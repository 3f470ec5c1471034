package tscluster

// Partition assigns each series index a cluster label. Labels are contiguous
// non-negative integers starting at 0 within a single partition, but they
// are exchangeable: a label's value identifies a cluster without ordering
// it, and two partitions that differ only by a relabeling describe the same
// grouping. Compare partitions with EquivalentTo, never by comparing label
// values across runs.
type Partition []int

// singletonPartition assigns every series its own cluster.
func singletonPartition(n int) Partition {
	p := make(Partition, n)
	for i := range p {
		p[i] = i
	}
	return p
}

// NumClusters returns the number of distinct labels. It assumes labels are
// contiguous from 0, which every partition produced by this package is.
func (p Partition) NumClusters() int {
	maxLabel := -1
	for _, l := range p {
		if l > maxLabel {
			maxLabel = l
		}
	}
	return maxLabel + 1
}

// Canonical returns a copy relabeled by order of first appearance, so that
// structurally equal partitions compare bit-identical regardless of the
// label values the sampler happened to assign.
func (p Partition) Canonical() Partition {
	out := make(Partition, len(p))
	next := 0
	remap := make([]int, p.NumClusters())
	for i := range remap {
		remap[i] = -1
	}
	for i, l := range p {
		if remap[l] == -1 {
			remap[l] = next
			next++
		}
		out[i] = remap[l]
	}
	return out
}

// EquivalentTo reports whether p and q describe the same grouping up to a
// bijection on labels.
func (p Partition) EquivalentTo(q Partition) bool {
	if len(p) != len(q) {
		return false
	}
	pq := make(map[int]int)
	qp := make(map[int]int)
	for i := range p {
		if l, ok := pq[p[i]]; ok && l != q[i] {
			return false
		}
		if l, ok := qp[q[i]]; ok && l != p[i] {
			return false
		}
		pq[p[i]] = q[i]
		qp[q[i]] = p[i]
	}
	return true
}

// Members returns the indices assigned the given label, in index order.
func (p Partition) Members(label int) []int {
	var members []int
	for i, l := range p {
		if l == label {
			members = append(members, i)
		}
	}
	return members
}

// coMembership returns a flat n×n 0/1 matrix where entry (i,j) is 1 when i
// and j share a cluster. Diagonal entries are 1.
func (p Partition) coMembership() []float64 {
	n := len(p)
	m := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if p[i] == p[j] {
				m[i*n+j] = 1
				m[j*n+i] = 1
			}
		}
	}
	return m
}
