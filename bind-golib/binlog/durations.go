package binlog

import (
	"bytes"
	"fmt"
	"sync"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"
)

type duration struct {
	name     string
	duration time.Duration
}

// Durations tracks named stage durations; it is safe for concurrent use.
type Durations struct {
	m       sync.Mutex
	entries []duration
}

// Record records a duration
func (t *Durations) Record(name string, d time.Duration) {
	t.m.Lock()
	defer t.m.Unlock()
	t.entries = append(t.entries, duration{name, d})
}

// Since records the time elapsed since start
func (t *Durations) Since(name string, start time.Time) {
	t.Record(name, time.Since(start))
}

// Table renders the recorded durations as an aligned table
func (t *Durations) Table() string {
	t.m.Lock()
	defer t.m.Unlock()

	var b bytes.Buffer
	tw := tabwriter.NewWriter(&b, 4, 4, 0, ' ', 0)
	for _, entry := range t.entries {
		fmt.Fprintf(tw, "   %s\t%s\n", entry.name, entry.duration)
	}
	tw.Flush()
	return b.String()
}

// Flush logs the recorded durations at info level and resets the tracker
func (t *Durations) Flush(l *zap.Logger, msg string) {
	table := t.Table()
	fields := t.fields()

	t.m.Lock()
	t.entries = nil
	t.m.Unlock()

	OrNop(l).Info(msg, append(fields, zap.String("table", table))...)
}

func (t *Durations) fields() []zap.Field {
	t.m.Lock()
	defer t.m.Unlock()

	var fields []zap.Field
	for _, entry := range t.entries {
		fields = append(fields, zap.Duration(entry.name, entry.duration))
	}
	return fields
}
