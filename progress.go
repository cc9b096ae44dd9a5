package zipkit

// ProgressFunc receives aggregate progress updates while a build drains
// its entries. done is the sum of uncompressed bytes measured so far across
// all entries; total is the sum of each entry's best known total, which is
// its size hint until the measured count overtakes it.
//
// Implementations must be safe for concurrent calls.
type ProgressFunc func(done, total uint64)

// EntryProgressFunc receives per-entry progress updates while a build
// drains its entries. index is the entry's insertion position. done grows
// monotonically and reaches the entry's final uncompressed size.
//
// Implementations must be safe for concurrent calls.
type EntryProgressFunc func(index int, done, total uint64)
