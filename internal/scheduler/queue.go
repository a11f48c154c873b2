package scheduler

import "github.com/vk/depsgraph/internal/topologystore"

type readyItem struct {
	h     topologystore.Handle
	order uint64
}

// readyQueue is a container/heap min-heap on creation order.
type readyQueue []readyItem

func (q readyQueue) Len() int           { return len(q) }
func (q readyQueue) Less(i, j int) bool { return q[i].order < q[j].order }
func (q readyQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *readyQueue) Push(x any) { *q = append(*q, x.(readyItem)) }

func (q *readyQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}
