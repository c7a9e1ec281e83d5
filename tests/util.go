package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/osama-eldrieny/cohort-manager-sub000/core"
)

// WriteSnapshot writes v as the legacy snapshot of entity in dir.
func WriteSnapshot(t *testing.T, dir string, entity core.Entity, v interface{}) {
	t.Helper()
	var data []byte
	switch val := v.(type) {
	case string:
		data = []byte(val)
	default:
		var err error
		if data, err = json.Marshal(v); err != nil {
			t.Fatalf("WriteSnapshot() failed: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, entity.Name+".json"), data, 0o644); err != nil {
		t.Fatalf("WriteSnapshot() failed: %v", err)
	}
}

// Entry is one call recorded by Logger.
type Entry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger records log calls for assertions.
type Logger struct {
	mu      sync.Mutex
	Entries []Entry
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, Entry{Level: level, Msg: msg, Args: args})
}

// Messages returns "LEVEL msg" for every recorded entry.
func (l *Logger) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	msgs := make([]string, 0, len(l.Entries))
	for _, e := range l.Entries {
		msgs = append(msgs, fmt.Sprintf("%s %s", e.Level, e.Msg))
	}
	return msgs
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l *Logger) Info(msg string, args ...interface{}) { l.log("INFO", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{}) { l.log("WARN", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("FATAL", msg, args) }
