// Package cache provides small TTL caches for values that are expensive to
// recompute, such as per-thread comment counts.
//
// Two backends implement Cache: Memory, local to the process, and Redis,
// shared between processes and hosts. Loader adds stampede protection on
// top of either one:
//
//	counts := cache.NewLoader[int](cache.NewMemory[int](cache.WithTTL(time.Minute)))
//	n, err := counts.Get(ctx, "/blog/post", func(ctx context.Context) (int, error) {
//		return store.Count(ctx, "/blog/post")
//	})
//
// Concurrent misses for one key run the load function once.
package cache
