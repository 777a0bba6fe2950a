package build

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint identifies the bytes written for one output path.
type Fingerprint struct {
	Path string
	Hash string
}

func NewFingerprint(path string, data []byte) Fingerprint {
	return Fingerprint{Path: path, Hash: HashBytes(data)}
}

func HashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Changed reports whether the previous hash differs. An unknown previous
// hash counts as a change.
func (f Fingerprint) Changed(previous string) bool {
	return previous != f.Hash
}
