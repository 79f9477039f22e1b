package verification

import (
	"fmt"
	"math/rand/v2"
)

// GenerateCode returns a uniformly random code in [0, 999999], left-padded
// to 6 ASCII digits. Possession of the registered mailbox, not the code
// itself, is the security boundary.
func GenerateCode() string {
	return fmt.Sprintf("%06d", rand.IntN(1000000))
}
