package snippet

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"strconv"
)

// Index returns a deterministic index for a user's next round using
// HMAC(salt, userID|seen) % n. The same user with the same history always
// lands on the same candidate, which keeps selection reproducible in tests.
func Index(salt, userID string, seen, n int) int {
	if n <= 0 {
		return 0
	}
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(userID + "|" + strconv.Itoa(seen)))
	sum := h.Sum(nil)
	// first 8 bytes as uint64 for the modulus
	v := binary.BigEndian.Uint64(sum[:8])
	return int(v % uint64(n))
}

// Unseen filters candidates down to those whose ID is not in recent.
// Order of candidates is preserved.
func Unseen(candidates []Snippet, recent []string) []Snippet {
	seen := make(map[string]struct{}, len(recent))
	for _, id := range recent {
		seen[id] = struct{}{}
	}
	out := make([]Snippet, 0, len(candidates))
	for _, s := range candidates {
		if _, ok := seen[s.ID]; ok {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Pick chooses the next unseen snippet for a user.
// ok is false when every candidate has already been seen.
func Pick(candidates []Snippet, recent []string, salt, userID string) (Snippet, bool) {
	pool := Unseen(candidates, recent)
	if len(pool) == 0 {
		return Snippet{}, false
	}
	return pool[Index(salt, userID, len(recent), len(pool))], true
}
