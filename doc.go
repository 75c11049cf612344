// Package delegate binds callables to uniform handles that can be invoked in
// place, queued onto another goroutine, or queued while the caller waits for
// the result.
//
// A target is a free function, a method bound to a caller-owned receiver, or a
// method bound to a reference-counted receiver (Ref). A delegate wraps a target
// in one of three modes:
//
//   - Sync runs the target on the caller's goroutine.
//   - Async snapshots the arguments, queues the call on an ExecutionContext and
//     returns immediately.
//   - AsyncWait does the same and blocks until the destination has run the call
//     or the timeout elapsed.
//
// Delegates with the same target, receiver, mode and destination are equal, so
// multicast containers can remove them by value.
//
// # Quick Start
//
//	main := worker.New(worker.WithName("main"))
//	defer main.Stop()
//
//	addOne := delegate.NewAsyncWait(delegate.Free(func(x int) int { return x + 1 }), main, 100*time.Millisecond)
//	if v, ok := addOne.AsyncInvoke(5); ok {
//		fmt.Println(v) // 6
//	}
//
// # Argument snapshots
//
// Asynchronous calls copy their arguments before they are queued. Values are
// deep-copied; types that own resources implement Cloner (and Releaser). Types
// that cannot be copied safely, such as interfaces or a *Ref, are rejected when
// the delegate is built.
//
// # Packages
//
// core holds the delegate types and the dispatch contract, worker provides a
// single-goroutine ExecutionContext, remote routes inbound payloads to
// delegates, config loads TOML settings and observability/prometheus exports
// metrics.
package delegate
