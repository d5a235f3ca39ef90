package realtime

import (
	"bytes"
	"io"

	"github.com/juju/errors"
)

// WriteEvent writes ev as one text/event-stream frame: the event name, one
// data line per payload line, then a blank line.
func WriteEvent(w io.Writer, ev Event) error {
	var b bytes.Buffer
	if ev.Name != "" {
		b.WriteString("event: ")
		b.WriteString(ev.Name)
		b.WriteByte('\n')
	}
	for _, line := range bytes.Split(ev.Data, []byte("\n")) {
		b.WriteString("data: ")
		b.Write(bytes.TrimSuffix(line, []byte("\r")))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	_, err := w.Write(b.Bytes())
	return errors.Annotatef(err, "writing %s event", ev.Name)
}
