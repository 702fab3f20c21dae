package workflow

import (
	"fmt"
	"sync"
	"time"
)

type LogEntry struct {
	Time    time.Time
	Message string
}

// CapturingLogger records scenario log lines so formatters can print them
// next to the scenario they belong to.
type CapturingLogger struct {
	entries []LogEntry
	lock    sync.Mutex
}

func (l *CapturingLogger) Printf(format string, args ...any) {
	l.lock.Lock()
	l.entries = append(l.entries, LogEntry{Time: time.Now(), Message: fmt.Sprintf(format, args...)})
	l.lock.Unlock()
}

func (l *CapturingLogger) Entries() []LogEntry {
	l.lock.Lock()
	ret := append([]LogEntry(nil), l.entries...)
	l.lock.Unlock()
	return ret
}

// Messages returns the logged lines without timestamps.
func (l *CapturingLogger) Messages() []string {
	entries := l.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Message
	}
	return out
}
