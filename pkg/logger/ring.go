package logger

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

// DefaultRingSize is the number of entries kept when no size is given.
const DefaultRingSize = 1000

// Entry is one retained log line.
type Entry struct {
	Time    time.Time     `json:"-"`
	Clock   string        `json:"timestamp"`
	Level   zapcore.Level `json:"-"`
	Name    string        `json:"level"`
	Message string        `json:"message"`
}

// Ring is a zapcore.Core that keeps the newest entries in memory.
// It is safe for concurrent use.
// Ring 是保存最近日志的内存环形缓冲
type Ring struct {
	mu    sync.RWMutex
	buf   []Entry
	next  int
	count int
	level zapcore.LevelEnabler
}

// NewRing returns a ring holding up to size entries at or above level.
func NewRing(size int, level zapcore.LevelEnabler) *Ring {
	if size <= 0 {
		size = DefaultRingSize
	}
	if level == nil {
		level = zapcore.DebugLevel
	}
	return &Ring{buf: make([]Entry, size), level: level}
}

func (r *Ring) Enabled(l zapcore.Level) bool {
	return r.level.Enabled(l)
}

func (r *Ring) With(fields []zapcore.Field) zapcore.Core {
	return &ringView{ring: r, fields: append([]zapcore.Field{}, fields...)}
}

func (r *Ring) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if r.Enabled(ent.Level) {
		return ce.AddCore(ent, r)
	}
	return ce
}

func (r *Ring) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	r.add(ent, fields)
	return nil
}

func (r *Ring) Sync() error {
	return nil
}

func (r *Ring) add(ent zapcore.Entry, fields []zapcore.Field) {
	e := Entry{
		Time:    ent.Time,
		Clock:   ent.Time.Format("15:04:05"),
		Level:   ent.Level,
		Name:    strings.ToUpper(ent.Level.String()),
		Message: formatMessage(ent.Message, fields),
	}

	r.mu.Lock()
	r.buf[r.next] = e
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
	r.mu.Unlock()
}

// Entries returns up to limit of the newest entries at or above min,
// oldest first. limit <= 0 means all.
// Entries 返回不低于 min 级别的最近 limit 条日志
func (r *Ring) Entries(min zapcore.Level, limit int) []Entry {
	r.mu.RLock()
	all := make([]Entry, 0, r.count)
	start := (r.next - r.count + len(r.buf)) % len(r.buf)
	for i := 0; i < r.count; i++ {
		e := r.buf[(start+i)%len(r.buf)]
		if e.Level >= min {
			all = append(all, e)
		}
	}
	r.mu.RUnlock()

	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all
}

// Len returns the number of retained entries.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Clear drops all entries.
func (r *Ring) Clear() {
	r.mu.Lock()
	for i := range r.buf {
		r.buf[i] = Entry{}
	}
	r.next = 0
	r.count = 0
	r.mu.Unlock()
}

type ringView struct {
	ring   *Ring
	fields []zapcore.Field
}

func (v *ringView) Enabled(l zapcore.Level) bool { return v.ring.Enabled(l) }

func (v *ringView) With(fields []zapcore.Field) zapcore.Core {
	return &ringView{ring: v.ring, fields: append(append([]zapcore.Field{}, v.fields...), fields...)}
}

func (v *ringView) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if v.Enabled(ent.Level) {
		return ce.AddCore(ent, v)
	}
	return ce
}

func (v *ringView) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	v.ring.add(ent, append(append([]zapcore.Field{}, v.fields...), fields...))
	return nil
}

func (v *ringView) Sync() error { return nil }

func formatMessage(msg string, fields []zapcore.Field) string {
	if len(fields) == 0 {
		return msg
	}
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(msg)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, enc.Fields[k])
	}
	return b.String()
}
