package batch

import (
	"context"
	"sync"
)

// pool runs tasks on a fixed number of workers reading from a channel.
type pool[T any] struct {
	tasks      chan indexedTask[T]
	maxWorkers int
	wg         sync.WaitGroup
	out        []Outcome[T]
}

type indexedTask[T any] struct {
	index int
	task  Task[T]
}

// SettleLimit runs tasks on at most limit concurrent workers and returns one
// outcome per task in input order. A limit of 0 or less means 1.
func SettleLimit[T any](ctx context.Context, limit int, tasks []Task[T]) []Outcome[T] {
	if limit <= 0 {
		limit = 1
	}
	if limit > len(tasks) {
		limit = len(tasks)
	}
	p := &pool[T]{
		tasks:      make(chan indexedTask[T]),
		maxWorkers: limit,
		out:        make([]Outcome[T], len(tasks)),
	}
	p.startWorkers(ctx)
	for i, task := range tasks {
		p.tasks <- indexedTask[T]{index: i, task: task}
	}
	close(p.tasks)
	p.wg.Wait()
	return p.out
}

func (p *pool[T]) startWorkers(ctx context.Context) {
	for range p.maxWorkers {
		p.wg.Add(1)
		go p.startWorker(ctx)
	}
}

// startWorker processes tasks until the channel is closed. Each worker writes
// only the slots of the tasks it received.
func (p *pool[T]) startWorker(ctx context.Context) {
	defer p.wg.Done()
	for it := range p.tasks {
		v, err := it.task.Run(ctx)
		p.out[it.index] = Outcome[T]{Label: it.task.Label, Value: v, Err: err}
	}
}
