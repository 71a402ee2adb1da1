package log

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Alia5/padmap/rawinput"
)

// RawLogger traces raw controller snapshots.
type RawLogger interface {
	Log(now time.Time, snap rawinput.Snapshot)
}

type rawLogger struct {
	w    io.Writer
	mu   sync.Mutex
	last []string
}

// NewRaw returns a RawLogger writing to w. A nil writer discards.
func NewRaw(w io.Writer) RawLogger {
	return &rawLogger{w: w}
}

// Log writes one line per connected device whose state changed since the
// previous call: index, id, pressed button bitmap and axes.
func (r *rawLogger) Log(now time.Time, snap rawinput.Snapshot) {
	if r.w == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.last) < len(snap) {
		r.last = append(r.last, make([]string, len(snap)-len(r.last))...)
	}
	var sb strings.Builder
	for i := range snap {
		d := snap.Device(i)
		if d == nil {
			r.last[i] = ""
			continue
		}
		line := formatDevice(d)
		if line == r.last[i] {
			continue
		}
		r.last[i] = line
		fmt.Fprintf(&sb, "%s #%d %s\n", now.Format("2006/01/02 15:04:05.000"), i, line)
	}
	if sb.Len() > 0 {
		_, _ = io.WriteString(r.w, sb.String())
	}
}

func formatDevice(d *rawinput.RawDevice) string {
	var bits strings.Builder
	for i := range d.Buttons {
		if d.ButtonPressed(i) {
			bits.WriteByte('1')
		} else {
			bits.WriteByte('0')
		}
	}
	axes := make([]string, len(d.Axes))
	for i, v := range d.Axes {
		axes[i] = strconv.FormatFloat(v, 'f', 3, 64)
	}
	return fmt.Sprintf("%q buttons: %s axes: [%s]", d.ID, bits.String(), strings.Join(axes, " "))
}
