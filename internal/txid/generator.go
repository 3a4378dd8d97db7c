// Package txid produces the human-facing transaction identifiers.
package txid

import (
	"fmt"
	"regexp"
	"time"
)

// Prefix is the human-facing transaction id prefix
const Prefix = "ETID"

// DigitCount is the number of digits following the prefix
const DigitCount = 8

// pattern matches the full human-facing id format
var pattern = regexp.MustCompile(`^ETID\d{8}$`)

// Generate returns a new human-facing transaction id: the ETID prefix
// followed by the last 8 digits of the current epoch-millis timestamp.
//
// Ids generated in a tight loop can collide; callers resolve collisions by
// regenerating and retrying the insert.
func Generate() string {
	return fmt.Sprintf("%s%08d", Prefix, time.Now().UnixMilli()%100_000_000)
}

// Valid reports whether s follows the current transaction id format
func Valid(s string) bool {
	return pattern.MatchString(s)
}
