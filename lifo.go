package forkjoin

import "sync/atomic"

type lifoNode[T any] struct {
	value T
	next  *lifoNode[T]
}

// lifo is a lock-free Treiber stack.
//
// push links the new node to the head it observed before publishing it, so a
// node is fully linked the moment it becomes reachable. Nodes are never reused;
// a popped address cannot come back to the head while a stale CompareAndSwap is in flight.
type lifo[T any] struct {
	head atomic.Pointer[lifoNode[T]]
	size atomic.Int64
}

func (s *lifo[T]) push(v T) {
	n := &lifoNode[T]{value: v}
	for {
		head := s.head.Load()
		n.next = head
		if s.head.CompareAndSwap(head, n) {
			s.size.Add(1)
			return
		}
	}
}

func (s *lifo[T]) pop() (T, bool) {
	for {
		head := s.head.Load()
		if head == nil {
			var zero T
			return zero, false
		}
		if s.head.CompareAndSwap(head, head.next) {
			s.size.Add(-1)
			return head.value, true
		}
	}
}

func (s *lifo[T]) empty() bool {
	return s.head.Load() == nil
}

// len is approximate while pushes and pops are in flight.
func (s *lifo[T]) len() int {
	return int(max(0, s.size.Load()))
}

// clear drops every queued value.
func (s *lifo[T]) clear() {
	for {
		if _, ok := s.pop(); !ok {
			return
		}
	}
}
