package apikey

import (
	"crypto/sha256"
	"crypto/subtle"
)

// Verify reports whether candidate matches m.
//
// Both sides are reduced to SHA-256 digests and compared with
// subtle.ConstantTimeCompare, so the cost does not depend on where the
// strings first differ or on the candidate's length beyond hashing. An empty
// candidate takes the same path and is rejected by a constant-time length
// check folded into the result.
func Verify(candidate string, m *Material) bool {
	if m == nil {
		return false
	}
	got := sha256.Sum256([]byte(candidate))
	eq := subtle.ConstantTimeCompare(got[:], m.digest[:])
	nonEmpty := subtle.ConstantTimeLessOrEq(1, len(candidate))
	return eq&nonEmpty == 1
}
