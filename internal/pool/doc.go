// Package pool runs a single-argument task over many inputs on a fixed set of
// worker goroutines.
//
// Every submission goes through the same path: inputs are fed to the shared
// job queue by a feeder goroutine and each result comes back tagged with its
// input index. Two collectors sit on top of that:
//
//   - ordered: results are yielded by index, out-of-order completions are
//     buffered until their turn (Imap, Map, MapAsync)
//   - as-completed: results are yielded as soon as a worker finishes (ImapUnordered)
//
// A pool must be closed and then joined once all work has been retrieved:
//
//	p, err := pool.New(4, task)
//	it, err := p.Imap(ctx, inputs)
//	for r, ok := it.Next(); ok; r, ok = it.Next() { ... }
//	p.Close()
//	err = p.Join()
package pool
