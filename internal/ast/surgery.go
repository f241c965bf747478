package ast

import (
	"github.com/oleiade/lane"

	"github.com/mballance/verilator-svtnt/internal/diagnostic"
)

// ----------------------------------------------------------------------------
// Tree surgery
// ----------------------------------------------------------------------------

// Unlink detaches n from its parent and returns it. Unlinking a node
// that is already detached or deleted is an internal error.
func Unlink(n Node) Node {
	if n.isDeleted() {
		diagnostic.ICEf("ast", "unlink of deleted node: %s", Describe(n))
	}
	p := n.parent()
	if p == nil {
		diagnostic.ICEf("ast", "unlink of detached node: %s", Describe(n))
	}
	if !p.removeChild(n) {
		diagnostic.ICEf("ast", "unlink: %s not a child of %s", Describe(n), Describe(p))
	}
	n.setParent(nil)
	return n
}

// DeleteTree disposes an unlinked subtree. Every node in the subtree is
// marked deleted so that a stale pointer reaching one later is
// detectable. Deleting a still-linked or already-deleted node is an
// internal error.
func DeleteTree(n Node) {
	if n.parent() != nil {
		diagnostic.ICEf("ast", "delete of linked node: %s", Describe(n))
	}
	deleteRec(n)
}

func deleteRec(n Node) {
	if n.isDeleted() {
		diagnostic.ICEf("ast", "double delete: %s", Describe(n))
	}
	n.markDeleted()
	n.forEachChild(deleteRec)
}

// UnlinkDelete unlinks n and disposes its subtree.
func UnlinkDelete(n Node) {
	DeleteTree(Unlink(n))
}

// DeleteQueue defers subtree disposal until the traversal that scheduled
// it has finished, so iteration never walks into freed nodes.
type DeleteQueue struct {
	q *lane.Queue
}

// NewDeleteQueue returns an empty deferred-deletion queue.
func NewDeleteQueue() *DeleteQueue {
	return &DeleteQueue{q: lane.NewQueue()}
}

// Push schedules an already-unlinked subtree for disposal.
func (d *DeleteQueue) Push(n Node) {
	if n.parent() != nil {
		diagnostic.ICEf("ast", "deferred delete of linked node: %s", Describe(n))
	}
	d.q.Enqueue(n)
}

// Flush disposes every scheduled subtree in push order.
func (d *DeleteQueue) Flush() {
	for !d.q.Empty() {
		DeleteTree(d.q.Dequeue().(Node))
	}
}

// CountNodes returns the number of nodes in the subtree rooted at n.
func CountNodes(n Node) int {
	count := 0
	var walk func(Node)
	walk = func(n Node) {
		count++
		n.forEachChild(walk)
	}
	walk(n)
	return count
}
