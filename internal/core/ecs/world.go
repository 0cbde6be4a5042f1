package ecs

// DestroyQueue holds handles marked for end-of-tick destruction so update hooks
// can retire entities (their own or others) without mutating indices mid-iteration.
type DestroyQueue struct {
	pending []EntityID
	spare   []EntityID
	queued  map[EntityID]struct{}
}

func NewDestroyQueue() *DestroyQueue {
	return &DestroyQueue{
		pending: make([]EntityID, 0, 64),
		spare:   make([]EntityID, 0, 64),
		queued:  make(map[EntityID]struct{}, 64),
	}
}

// Mark queues id. Marking the same handle twice in one tick is a no-op.
func (q *DestroyQueue) Mark(id EntityID) {
	if _, dup := q.queued[id]; dup {
		return
	}
	q.queued[id] = struct{}{}
	q.pending = append(q.pending, id)
}

func (q *DestroyQueue) Len() int { return len(q.pending) }

// Flush calls destroy for every queued handle in mark order and clears the queue.
// Handles marked by destroy itself are flushed in the same call.
func (q *DestroyQueue) Flush(destroy func(EntityID)) int {
	n := 0
	for len(q.pending) > 0 {
		batch := q.pending
		q.pending = q.spare[:0]
		for _, id := range batch {
			delete(q.queued, id)
			destroy(id)
			n++
		}
		q.spare = batch[:0]
	}
	return n
}
