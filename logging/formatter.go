package logging

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// TextFormatter is a custom logrus formatter producing compact,
// component-tagged lines:
//
//	15:04:05.000 INFO  [bridge] pty attached session=agent-1
type TextFormatter struct {
	Config FormatConfig
}

// Format renders a single log entry.
func (f *TextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer

	if !f.Config.DisableTimestamp {
		b.WriteString(entry.Time.Format("15:04:05.000"))
		b.WriteByte(' ')
	}

	level := strings.ToUpper(entry.Level.String())
	if level == "WARNING" {
		level = "WARN"
	}
	fmt.Fprintf(&b, "%-5s ", level)

	if !f.Config.DisableComponent {
		if component, ok := entry.Data["component"].(string); ok && component != "" {
			fmt.Fprintf(&b, "[%s] ", component)
		}
	}

	b.WriteString(entry.Message)

	// Render remaining fields deterministically.
	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k == "component" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}

	if entry.Caller != nil {
		fmt.Fprintf(&b, " (%s:%d)", entry.Caller.File, entry.Caller.Line)
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}
