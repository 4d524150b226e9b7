// internal/create/format.go
package create

import (
	"fmt"
	"strings"
)

// FormatFileSize renders a byte count for display: whole kilobytes
// below a megabyte, tenths of megabytes above, with a trailing ".0"
// dropped.
func FormatFileSize(bytes int64) string {
	if bytes < 1<<20 {
		return fmt.Sprintf("%.0f KB", float64(bytes)/(1<<10))
	}
	mb := fmt.Sprintf("%.1f", float64(bytes)/(1<<20))
	mb = strings.TrimSuffix(mb, ".0")
	return mb + " MB"
}
