package notify

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
)

// Level is the severity of a toast.
type Level string

const (
	Success Level = "success"
	Info    Level = "info"
	Warning Level = "warning"
	Error   Level = "error"
)

var icons = map[Level]string{
	Success: "✓",
	Info:    "ℹ",
	Warning: "!",
	Error:   "✗",
}

// Toast is one transient user-facing message.
type Toast struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier shows toasts. Every toast is written to Out (stderr when nil).
// With Enabled set on macOS it is also raised as a system notification.
type Notifier struct {
	Enabled bool
	Out     io.Writer

	mu sync.Mutex
}

// Send shows one toast.
func (n *Notifier) Send(level Level, message string) error {
	if n == nil {
		return nil
	}
	n.mu.Lock()
	out := n.Out
	if out == nil {
		out = os.Stderr
	}
	_, err := fmt.Fprintf(out, "%s %s\n", icons[level], message)
	n.mu.Unlock()
	if err != nil {
		return fmt.Errorf("write toast: %w", err)
	}

	if !n.Enabled || runtime.GOOS != "darwin" {
		return nil
	}
	return sendMacOSNotification("NLVreport", message)
}

// Successf is Send(Success, ...) with formatting.
func (n *Notifier) Successf(format string, args ...any) {
	_ = n.Send(Success, fmt.Sprintf(format, args...))
}

// Infof is Send(Info, ...) with formatting.
func (n *Notifier) Infof(format string, args ...any) {
	_ = n.Send(Info, fmt.Sprintf(format, args...))
}

// Warnf is Send(Warning, ...) with formatting.
func (n *Notifier) Warnf(format string, args ...any) {
	_ = n.Send(Warning, fmt.Sprintf(format, args...))
}

// Errorf is Send(Error, ...) with formatting.
func (n *Notifier) Errorf(format string, args ...any) {
	_ = n.Send(Error, fmt.Sprintf(format, args...))
}

func sendMacOSNotification(title, message string) error {
	title = strings.ReplaceAll(title, `"`, `\"`)
	message = strings.ReplaceAll(message, `"`, `\"`)

	script := fmt.Sprintf(`display notification "%s" with title "%s"`, message, title)
	if err := exec.Command("osascript", "-e", script).Run(); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

// FormatSaved formats the toast after saving a month.
func FormatSaved(month string, year int) string {
	return fmt.Sprintf("Saved %s %d", month, year)
}

// FormatSavedMany formats the toast after a multi-month save.
func FormatSavedMany(months []string, year int) string {
	if len(months) == 1 {
		return FormatSaved(months[0], year)
	}
	return fmt.Sprintf("Saved %d months of %d", len(months), year)
}

// FormatDeleted formats the toast after deleting months.
func FormatDeleted(months []string, year int) string {
	return fmt.Sprintf("Deleted %s %d", strings.Join(months, ", "), year)
}

// FormatLoaded formats the toast after loading a month.
func FormatLoaded(month string, year int) string {
	return fmt.Sprintf("Loaded data for %s %d", month, year)
}

// FormatMissingMonths warns about gaps in a stitched range.
func FormatMissingMonths(months []string) string {
	if len(months) == 1 {
		return fmt.Sprintf("No data saved for %s; it will show as empty", months[0])
	}
	return fmt.Sprintf("No data saved for %s; they will show as empty", strings.Join(months, ", "))
}
