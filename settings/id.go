package settings

import (
	"crypto/rand"
	"encoding/hex"
)

// newID generates a short random hex id. Ids are generated once at creation
// and never reused within a settings instance.
func newID() string {
	buf := make([]byte, 4)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}
