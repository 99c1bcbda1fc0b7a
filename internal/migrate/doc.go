// Package migrate imports comments exported from other services.
//
// [Disqus] reads a Disqus XML export and adds its threads and posts to a
// storage.Store. Posts are added per thread in creation order so replies
// always follow their parent; deleted posts are skipped and replies to
// them become top-level comments.
package migrate
