// Package cache provides block caches for blob reads.
//
// Blocks are keyed by blob name and block index. LRU is the basic
// byte-budgeted cache; ShardedLRU spreads entries over 64 shards for
// concurrent search traffic. Disk keeps blocks on the local filesystem as
// a second tier for remote backends and rebuilds its index on startup.
//
// All caches integrate with resource.Controller where memory is involved,
// so admission respects the process-wide budget.
package cache
