package utils

import (
	"iter"

	"github.com/oomph-ac/netmove/oerror"
)

// CircularQueue is a fixed-capacity FIFO queue. Appending to a full queue overwrites
// the oldest element.
type CircularQueue[T any] struct {
	items []T
	head  int
	tail  int
	size  int
}

func NewCircularQueue[T any](capacity int, propagate func() T) *CircularQueue[T] {
	queue := &CircularQueue[T]{
		items: make([]T, capacity),
	}
	if propagate != nil {
		for index := range queue.items {
			queue.items[index] = propagate()
		}
	}
	return queue
}

// Get returns the element at logical position index (0 = oldest), or an error if out of range.
func (q *CircularQueue[T]) Get(index int) (T, error) {
	var zero T
	if index < 0 || index >= q.size {
		return zero, oerror.New("circularQueue: get index %d out of range [0, %d)", index, q.size)
	}
	return q.items[(q.head+index)%len(q.items)], nil
}

// Set sets the element at logical position index (0 = oldest), or returns an error if out of range.
func (q *CircularQueue[T]) Set(index int, item T) error {
	if index < 0 || index >= q.size {
		return oerror.New("circularQueue: set index %d out of range [0, %d)", index, q.size)
	}
	q.items[(q.head+index)%len(q.items)] = item
	return nil
}

// Last returns the newest element. The boolean ok is false if the queue is empty.
func (q *CircularQueue[T]) Last() (item T, ok bool) {
	if q.size == 0 {
		return item, false
	}
	return q.items[(q.tail-1+len(q.items))%len(q.items)], true
}

func (q *CircularQueue[T]) Iter() iter.Seq[T] {
	return func(yield func(T) bool) {
		for index := range q.size {
			if !yield(q.items[(q.head+index)%len(q.items)]) {
				return
			}
		}
	}
}

// Len returns the amount of items currently in the queue.
func (q *CircularQueue[T]) Len() int {
	return q.size
}

// Cap returns the maximum number of items the queue can hold.
func (q *CircularQueue[T]) Cap() int {
	return len(q.items)
}

// Pop removes and returns the oldest element. The boolean ok is false if the
// queue is empty.
func (q *CircularQueue[T]) Pop() (item T, ok bool) {
	if q.size == 0 {
		return item, false
	}
	var zero T
	item = q.items[q.head]
	q.items[q.head] = zero
	q.head = (q.head + 1) % len(q.items)
	q.size--
	return item, true
}

// Clear removes all elements from the queue.
func (q *CircularQueue[T]) Clear() {
	var zero T
	for index := range q.items {
		q.items[index] = zero
	}
	q.head, q.tail, q.size = 0, 0, 0
}

// Append appends an item. If the queue was full, the oldest element is overwritten and
// returned with dropped set to true. An error is returned if the queue has zero capacity.
func (q *CircularQueue[T]) Append(item T) (old T, dropped bool, err error) {
	if len(q.items) == 0 {
		return old, false, oerror.New("circularQueue: append on zero-capacity queue")
	}

	if q.size == len(q.items) {
		// Buffer is full, drop the oldest element located at head, which is also where tail points.
		old, dropped = q.items[q.head], true
		q.head = (q.head + 1) % len(q.items)
	} else {
		q.size++
	}
	q.items[q.tail] = item
	q.tail = (q.tail + 1) % len(q.items)
	return old, dropped, nil
}
