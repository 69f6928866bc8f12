// Package mirror keeps the client's best-known copy of venue state.
//
// All three mirrors apply the same update policy. A batch is a partial
// upsert keyed by the entity key: keys in the batch are replaced whole,
// keys not in the batch keep their value. An entry flagged removed deletes
// its key. A batch flagged snapshot replaces the entire map with its
// contents (removed entries are dropped).
//
// An order's time in force is the one exception. The venue never reports
// it, so a replaced order keeps the value Track recorded.
package mirror
