// Package cluster builds metric cluster trees: recursive binary partitions
// of a metric space in which every node records a center item, the radius
// covering all of its members, and an estimate of the local fractal
// dimension around the center. The tree is the index structure consumed by
// the search package.
//
// Construction is deterministic for a given dataset, metric, and config:
// every tie in center or pole selection breaks toward the lower item id, so
// the same inputs yield structurally identical trees regardless of how many
// workers build them.
package cluster
