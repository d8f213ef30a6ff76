package qshard

import "sync"

/*
Job is one slice of a traversal handed to a worker: the outer-index range
[Lo, Hi) of a region. done is shared by every job of the same traversal and
is how the caller joins them.
*/
type Job struct {
	ID   int
	Lo   int
	Hi   int
	Fn   func(worker, lo, hi int)
	done *sync.WaitGroup
}
