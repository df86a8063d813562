// Package membership implements the ZK Prover's circuit: a single-opening
// Groth16 membership circuit over a sorted-pair Poseidon Merkle tree.
package membership

// MaxTreeDepth is the circuit's fixed witness depth. It must match
// internal/config.Config.MaxMerkleDepth.
const MaxTreeDepth = 20

// CircuitID identifies the compiled artifact set on disk and is stamped
// into every proof's metadata.
const CircuitID = "membership-v1"
