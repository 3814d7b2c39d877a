/*
Package store implements typed durable ordered maps on top of a key-value
store (Bolt by default, SQLite or memory on request).

We implement:

1. Tables, ordered maps from uint64 keys to records marshaled from a struct.

2. Sequences, durable counters handing out keys.

# Technical Details

**Buckets.**
Every table lives in its own bucket. Sequences share the “globals” bucket,
one key per sequence. The SQLite backend simulates buckets with a bucket
column.

**Keys** are 8-byte big-endian integers, so byte order equals numeric order
and cursors iterate in ascending key order.

**Value**: value header, then encoded data.

**Value header**:
1. Flags (uvarint).
2. Schema version (uvarint).
3. Data size (uvarint).

**Value data**: msgpack of the row struct.

A table may declare a maximum encoded value size; larger values are rejected
with ErrValueTooLarge before anything is written. Undecodable bytes produce
an error wrapping ErrCorrupted, never a zero-valued record.
*/
package store
