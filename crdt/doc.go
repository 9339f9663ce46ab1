/*
Package crdt implements a family of state-based, convergent replicated data
types (CvRDTs) for use in an eventually-consistent, leaderless, replicated
key-value store: an observed-remove set without tombstones (ORSWOT), an
observed-disable flag, and a schema-free map whose fields nest any of the
three types, including other maps.

All three types share a dotted version vector as their causal substrate.
Replicas accept local updates without coordination, exchange whole states,
and apply a commutative, associative, idempotent Merge to converge. There
is no op-based transport, no reliable delivery layer, and no persistence in
this package — replication and storage are the host's responsibility, not
this package's. Access to a single value from multiple goroutines is
expected to be synchronized externally, e.g. with a per-key mutex or a
single-writer actor mailbox; this package does not synchronize itself.
*/
package crdt
