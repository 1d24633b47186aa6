package ledger

import (
	"fmt"
	"strings"

	"policyledger/internal/cryptoutil"
)

// Digest implements §4.5's PoW digest:
//
//	digest(prev_proof, next_proof, index, body) =
//	    utf8(str(prev_proof² − next_proof² + index)) ++ canonical_bytes(body)
func Digest(prevProof, nextProof uint64, index int64, body Body) ([]byte, error) {
	cb, err := body.CanonicalBytes()
	if err != nil {
		return nil, err
	}
	math := int64(prevProof)*int64(prevProof) - int64(nextProof)*int64(nextProof) + index
	head := []byte(fmt.Sprintf("%d", math))
	return append(head, cb...), nil
}

// PowHash is sha256_hex(Digest(...)).
func PowHash(prevProof, nextProof uint64, index int64, body Body) (string, error) {
	d, err := Digest(prevProof, nextProof, index, body)
	if err != nil {
		return "", err
	}
	return cryptoutil.Sha256Hex(d), nil
}

// MeetsDifficulty reports whether hash has at least difficulty leading
// hex '0' characters (invariant #3).
func MeetsDifficulty(hash string, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}
	if len(hash) < difficulty {
		return false
	}
	return strings.Count(hash[:difficulty], "0") == difficulty
}
