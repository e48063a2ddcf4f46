/*
Package pool runs a map over a bounded index range [0, total) on a set
of shared-nothing workers.

The range is split into contiguous chunks, one per worker. Every worker
runs the same job over its chunk, reporting one progress increment per
processed item, and returns a partial result tagged with the chunk it
covered. Results are returned sorted by chunk offset regardless of the
order in which workers complete, so callers can concatenate positional
results or reduce them with any order-independent merge.
*/
package pool
