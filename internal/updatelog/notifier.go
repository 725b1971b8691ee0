package updatelog

import (
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Notifier shows a warning to the user.
type Notifier interface {
	Warn(message string)
}

// LogNotifier writes warnings to a zap logger.
type LogNotifier struct {
	L *zap.Logger
}

func (n LogNotifier) Warn(message string) {
	n.L.Warn(message)
}

// WriterNotifier writes one warning per line to W.
type WriterNotifier struct {
	W io.Writer
}

func (n WriterNotifier) Warn(message string) {
	_, _ = fmt.Fprintln(n.W, "warning:", message)
}
