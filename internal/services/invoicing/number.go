package invoicing

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewInvoiceNumber builds INV-<last 6 digits of epoch ms>-<4 upper hex>.
func NewInvoiceNumber(now time.Time) string {
	millis := strconv.FormatInt(now.UnixMilli(), 10)
	if len(millis) > 6 {
		millis = millis[len(millis)-6:]
	}
	suffix := strings.ToUpper(uuid.NewString()[:4])
	return "INV-" + millis + "-" + suffix
}
