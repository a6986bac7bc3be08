package ik

import (
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-pose/pkg/math"
)

var (
	// ErrNodeIndex is returned for a node index outside the tree.
	ErrNodeIndex = errors.New("ik: node index out of range")
	// ErrNilChain is returned when a nil chain is added to a tree.
	ErrNilChain = errors.New("ik: nil chain")
)

// ChainNode is one chain in a MultiChain. The base of a child chain is
// pinned to the tip of its parent.
type ChainNode struct {
	Chain    *Chain
	parent   int
	children []int
}

// MultiChain is a tree of chains solved together, for rigs where several end
// effectors hang off shared joints. Node 0 is the root; its origin is fixed.
type MultiChain struct {
	MaxIterations int
	Tolerance     float32

	nodes  []ChainNode
	leaves map[int]bool
}

// LeafResult is the outcome for one leaf chain.
type LeafResult struct {
	Node     int
	Distance float32
	Reached  bool
}

// TreeResult describes the outcome of a tree solve. Leaves lists every leaf
// that has a target.
type TreeResult struct {
	Iterations int
	Reached    bool
	Leaves     []LeafResult
}

// NewMultiChain starts a tree rooted at root.
func NewMultiChain(root *Chain) (*MultiChain, error) {
	if root == nil {
		return nil, ErrNilChain
	}
	return &MultiChain{
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultTolerance,
		nodes:         []ChainNode{{Chain: root, parent: -1}},
		leaves:        map[int]bool{0: true},
	}, nil
}

// Attach adds child under parent and returns its node index. The child is
// translated so its base sits on the parent's tip.
func (m *MultiChain) Attach(parent int, child *Chain) (int, error) {
	if child == nil {
		return 0, ErrNilChain
	}
	if parent < 0 || parent >= len(m.nodes) {
		return 0, fmt.Errorf("%w: %d", ErrNodeIndex, parent)
	}

	tip := m.nodes[parent].Chain.tip()
	child.Translate(tip.Sub(child.origin))

	id := len(m.nodes)
	m.nodes = append(m.nodes, ChainNode{Chain: child, parent: parent})
	m.nodes[parent].children = append(m.nodes[parent].children, id)
	m.leaves[id] = true
	delete(m.leaves, parent)
	return id, nil
}

// Solve runs multi end effector FABRIK over the tree. The backward phase
// walks leaves to root: leaves reach for their targets and interior chains
// reach for the centroid of their children's bases. The forward phase walks
// root to leaves, re-anchoring each child on its parent's new tip. Subtrees
// without any target are carried rigidly.
func (m *MultiChain) Solve() TreeResult {
	active := m.activeNodes()
	root := m.nodes[0].Chain
	root.anchor(root.origin)

	iter := 0
	if active[0] {
		for ; iter < m.MaxIterations && !m.allReached(); iter++ {
			m.backward(active)
			m.forward(active)
		}
	}
	m.forward(active)
	for i := range m.nodes {
		m.nodes[i].Chain.SetSegments()
	}

	res := TreeResult{Iterations: iter, Reached: true}
	for i := range m.nodes {
		c := m.nodes[i].Chain
		if !m.leaves[i] || c.target == nil {
			continue
		}
		d := c.end.Distance(c.target.Position)
		ok := d <= m.Tolerance
		res.Reached = res.Reached && ok
		res.Leaves = append(res.Leaves, LeafResult{Node: i, Distance: d, Reached: ok})
	}
	return res
}

// activeNodes marks every node with a targeted leaf somewhere below it.
// Children always have larger indices than their parent.
func (m *MultiChain) activeNodes() []bool {
	active := make([]bool, len(m.nodes))
	for i := len(m.nodes) - 1; i >= 0; i-- {
		n := &m.nodes[i]
		if m.leaves[i] && n.Chain.target != nil {
			active[i] = true
		}
		if active[i] && n.parent >= 0 {
			active[n.parent] = true
		}
	}
	return active
}

func (m *MultiChain) allReached() bool {
	for i := range m.nodes {
		c := m.nodes[i].Chain
		if !m.leaves[i] || c.target == nil {
			continue
		}
		if c.tip().Distance(c.target.Position) > m.Tolerance {
			return false
		}
	}
	return true
}

func (m *MultiChain) backward(active []bool) {
	for i := len(m.nodes) - 1; i >= 0; i-- {
		if !active[i] {
			continue
		}
		n := &m.nodes[i]
		if m.leaves[i] {
			n.Chain.backward(n.Chain.target.Position)
			continue
		}

		var sum math.Vec3
		count := 0
		for _, ch := range n.children {
			if !active[ch] {
				continue
			}
			sum = sum.Add(m.nodes[ch].Chain.joints[0])
			count++
		}
		n.Chain.backward(sum.Scale(1 / float32(count)))
	}
}

func (m *MultiChain) forward(active []bool) {
	for i := range m.nodes {
		n := &m.nodes[i]
		c := n.Chain
		if n.parent >= 0 {
			base := m.nodes[n.parent].Chain.tip()
			if !active[i] {
				c.anchor(base)
				continue
			}
			c.origin = base
		}
		if active[i] {
			c.forward()
		}
	}
}

// Node returns the chain at index i.
func (m *MultiChain) Node(i int) *Chain {
	return m.nodes[i].Chain
}

// Len returns the number of chains in the tree.
func (m *MultiChain) Len() int {
	return len(m.nodes)
}

// IsLeaf reports whether node i has no children.
func (m *MultiChain) IsLeaf(i int) bool {
	return m.leaves[i]
}

// Parent returns the parent index of node i, or -1 for the root.
func (m *MultiChain) Parent(i int) int {
	return m.nodes[i].parent
}

// Children returns the child indices of node i.
func (m *MultiChain) Children(i int) []int {
	return append([]int(nil), m.nodes[i].children...)
}

// Find returns the index of the first chain with the given name.
func (m *MultiChain) Find(name string) (int, bool) {
	for i := range m.nodes {
		if m.nodes[i].Chain.Name == name {
			return i, true
		}
	}
	return -1, false
}
