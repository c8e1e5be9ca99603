// Package policy holds the access path policy consulted by the gateway's
// authentication gate.
//
// The policy maps path prefixes to the role a caller must hold:
//   - public prefixes (default "/auth") bypass credential checks entirely
//   - the reserved admin prefix (default "/admin") requires the ADMIN role
//   - every other path requires any authenticated role
//
// A policy is built once at startup and never mutated, so it can be shared by
// concurrent requests without locking.
package policy
