// Package ledger implements the append-only, hash-chained, signed audit
// ledger.
//
// Every record stores the SHA-256 of the previous record's stored bytes in
// PrevHash (the first record stores Genesis) and an Ed25519 signature over
// its canonical encoding. Records are only ever added through Ledger.Append,
// which serializes writers, and Ledger.VerifyChain walks the chain from the
// first record and reports the first break as a *ChainIntegrityError.
//
// # Encoding
//
// A record is stored as compact JSON in struct field order. The signed
// payload is the same encoding with the signature omitted. A stored record
// must re-encode to exactly its stored bytes; anything else is treated as
// tampering.
//
// # Storage
//
// Bytes are persisted by a Backend. Implementations live in
// mercator-hq/warden/pkg/ledger/storage.
package ledger
