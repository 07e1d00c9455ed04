// Package cache keeps fetched segment audio so that re-assembling after a
// toggle does not refetch it. Memory is the first tier, a zstd-compressed
// directory the second.
package cache
