package creation

import (
	"crypto/rand"

	"github.com/mr-tron/base58"
)

// newAttemptToken mints a fresh opaque token identifying one pipeline run.
// Async completions carry the token they started with; results whose token no
// longer matches the machine's current one are dropped as stale.
func newAttemptToken() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process is in serious trouble anyway
		panic(err)
	}
	return base58.Encode(buf)
}
