// Package asyncx provides a small set of concurrency primitives used across
// the project: futures, fire-and-forget goroutines, retries, and timeouts,
// all with first-class context support.
//
// # Futures
//
// A [Future] represents a value that will be computed asynchronously.
// Use [Run] to start work immediately in a goroutine and [Future.Await] to
// block until the result is ready. Await is safe to call from multiple
// goroutines and caches the result after the first resolution.
//
//	fut := asyncx.Run(func() ([]byte, error) {
//	    return fetcher.Fetch(ctx, key)
//	})
//
//	// ... do other work ...
//
//	data, err := fut.Await()
//
// # Fire-and-forget
//
// [Do] and [DoCtx] launch background goroutines for work whose result the
// caller does not need, such as archiving a finished conversation.
//
// # Retry and timeouts
//
// [Retry] and [RetryWithBackoff] re-invoke a fallible operation; both stop
// early when the context is cancelled. [WithTimeout] bounds any operation
// with a deadline.
package asyncx
