// Package flat provides an exact nearest-neighbour vector index persisted
// in a bbolt file.
//
// Every insert is appended to the "entries" bucket and committed before
// Insert returns. On open the log is replayed into memory; searches scan
// the in-memory entries and never touch disk.
//
// # Layout
//
//	meta/dimensions  uint32 big-endian
//	meta/metric      "cosine" | "l2"
//	entries/<seq>    uint16 id length, id bytes, float32 little-endian values
//
// Keys in "entries" are big-endian bucket sequence numbers, so a cursor
// walk yields insertion order.
//
// # Concurrency
//
// Inserts are serialised by a writer mutex. Searches take a snapshot of
// the entry slice under a read lock; entries are only ever appended, so a
// snapshot is never modified after it is taken.
package flat
