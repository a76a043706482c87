package util

import (
	"fmt"
	"time"
)

// FormatDuration renders elapsed session time compactly: m:ss under an
// hour, h:mm:ss beyond it. Ambient sessions run long enough for the
// hour form to matter.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	h := total / 3600
	m := total % 3600 / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
