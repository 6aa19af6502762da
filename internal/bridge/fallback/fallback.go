// Package fallback produces degraded placeholder responses for when the
// registry cannot be reached. Fallback output is always structurally
// distinguishable from authoritative output: OnChain is false and Fallback is
// true, and placeholder ids live in their own namespace so they can never
// collide with real numeric record ids.
package fallback

import (
	"time"

	"github.com/google/uuid"
)

// IDPrefix namespaces placeholder ids.
const IDPrefix = "fbk-"

// Issuance is a degraded issuance result.
type Issuance struct {
	ID        string
	ExpiresAt time.Time
	OnChain   bool
	Fallback  bool
}

// Verification is a degraded verification result. Validity can never be
// asserted without the registry.
type Verification struct {
	ID       uint64
	Valid    bool
	OnChain  bool
	Fallback bool
}

// ForIssuance synthesizes a placeholder issuance with a locally-unique id and
// a default validity window.
func ForIssuance(now time.Time, validity time.Duration) Issuance {
	return Issuance{
		ID:        IDPrefix + uuid.NewString(),
		ExpiresAt: now.Add(validity),
		OnChain:   false,
		Fallback:  true,
	}
}

// ForVerification answers a verification request without the registry.
func ForVerification(id uint64) Verification {
	return Verification{
		ID:       id,
		Valid:    false,
		OnChain:  false,
		Fallback: true,
	}
}
