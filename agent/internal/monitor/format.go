package monitor

import (
	"fmt"

	"github.com/chargewatch/chargewatch/agent/internal/config"
)

// Formatter prefixes raw condition text with the originating unit.
type Formatter struct {
	unit config.Unit
}

// NewFormatter returns a Formatter for unit.
func NewFormatter(unit config.Unit) Formatter {
	return Formatter{unit: unit}
}

// Header returns the first line of every notification,
// e.g. "Message from sensor sensor07".
func (f Formatter) Header() string {
	return fmt.Sprintf("Message from sensor %s%02d", f.unit.Name, f.unit.Number)
}

// Format returns the header, a line break, then raw unchanged.
func (f Formatter) Format(raw string) string {
	return f.Header() + "\n" + raw
}
