package ids

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Prefixes for generated identifiers.
const (
	Audit      = "AUD"
	Report     = "RPT"
	Regulation = "REG"
	Preprocess = "PRE"
)

// New returns "<PREFIX>-<YYYYMMDD>-<HHMMSS>-<8 hex>". The random suffix
// keeps IDs unique when several are minted within the same second, which
// matters because audit IDs are storage keys.
func New(prefix string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return prefix + "-" + now.Format("20060102") + "-" + now.Format("150405") + "-" + suffix
}
