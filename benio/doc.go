// Package benio is a TCP data-movement benchmarking toolkit.
//
// A server streams a requested number of bytes from a data file (or synthetic
// random data) to its clients; a client receives a requested volume from one
// or more servers in parallel and reports throughput.
//
// Key features:
//   - Pluggable stream filters (raw, linspace, match) used identically on the
//     sending and receiving side
//   - Order-preserving, chunk-parallel byte predicate filtering
//   - Bounded-memory retention of the most recently received bytes
//   - Deterministic splitting of a transfer across endpoints
//   - TCP (with zero-copy sendfile) and QUIC transports, optional LZ4 on the wire
package benio
