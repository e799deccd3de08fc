package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level orders log severities. Entries below the configured level are
// dropped without side effects.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return "INFO"
}

// ParseLevel maps a level name to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

const filePrefix = "database-updater-"

// entryPattern matches the single-line file format:
// [RFC3339 ts] LEVEL message | Data: {...}
var entryPattern = regexp.MustCompile(`^\[([^\]]+)\] (DEBUG|INFO|WARN|ERROR) (.*?)(?: \| Data: (.*))?$`)

// Entry is one parsed log line.
type Entry struct {
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type Options struct {
	Level       Level
	Dir         string
	Console     bool
	File        bool
	MaxFileSize int64 // bytes before rotation
	MaxFiles    int   // rotated files kept
}

// Logger writes leveled entries to the console and/or a daily file.
// Logging never returns an error: file sink failures fall back to the
// console and a failed directory creation disables the file sink for
// the lifetime of the process.
type Logger struct {
	mu          sync.Mutex
	level       Level
	dir         string
	console     bool
	fileEnabled bool
	maxFileSize int64
	maxFiles    int
}

func New(opts Options) *Logger {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = 10 * 1024 * 1024
	}
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = 7
	}
	l := &Logger{
		level:       opts.Level,
		dir:         opts.Dir,
		console:     opts.Console,
		fileEnabled: opts.File,
		maxFileSize: opts.MaxFileSize,
		maxFiles:    opts.MaxFiles,
	}
	if l.fileEnabled {
		if err := os.MkdirAll(l.dir, 0755); err != nil {
			log.Printf("WARNING: log directory %s unavailable, console only: %v", l.dir, err)
			l.fileEnabled = false
		}
	}
	return l
}

func (l *Logger) Debug(msg string, data ...interface{}) { l.write(LevelDebug, msg, first(data)) }
func (l *Logger) Info(msg string, data ...interface{})  { l.write(LevelInfo, msg, first(data)) }
func (l *Logger) Warn(msg string, data ...interface{})  { l.write(LevelWarn, msg, first(data)) }

// Error logs at error level. An error value is expanded into its type
// and message before serialization.
func (l *Logger) Error(msg string, data ...interface{}) {
	d := first(data)
	if err, ok := d.(error); ok {
		d = map[string]string{
			"type":    fmt.Sprintf("%T", err),
			"message": err.Error(),
		}
	}
	l.write(LevelError, msg, d)
}

// SetLevel changes the minimum level at runtime.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

func first(data []interface{}) interface{} {
	if len(data) == 0 {
		return nil
	}
	return data[0]
}

func (l *Logger) write(level Level, msg string, data interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	line := l.format(level, msg, data)
	if l.console {
		fmt.Println(line)
	}
	if l.fileEnabled {
		l.appendToFile(line)
	}
}

func (l *Logger) format(level Level, msg string, data interface{}) string {
	ts := time.Now().Format(time.RFC3339Nano)
	line := fmt.Sprintf("[%s] %s %s", ts, level, msg)
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			encoded = []byte(fmt.Sprintf("%q", fmt.Sprint(data)))
		}
		line += " | Data: " + string(encoded)
	}
	return line
}

// currentFile returns today's log file path.
func (l *Logger) currentFile() string {
	return filepath.Join(l.dir, filePrefix+time.Now().Format("2006-01-02")+".log")
}

func (l *Logger) appendToFile(line string) {
	path := l.currentFile()

	l.rotateIfNeeded(path)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("WARNING: log write failed: %v", err)
		return
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		log.Printf("WARNING: log write failed: %v", err)
	}
}

func (l *Logger) rotateIfNeeded(path string) {
	info, err := os.Stat(path)
	if err != nil || info.Size() < l.maxFileSize {
		return
	}

	rotated := strings.TrimSuffix(path, ".log") + "-" + time.Now().Format("150405") + ".log"
	if err := os.Rename(path, rotated); err != nil {
		log.Printf("WARNING: log rotation failed: %v", err)
		return
	}
	l.cleanupOldFiles()
}

// cleanupOldFiles removes the oldest rotated files beyond the retention
// count. Best effort, failures only warn.
func (l *Logger) cleanupOldFiles() {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		log.Printf("WARNING: log cleanup failed: %v", err)
		return
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), filePrefix) && strings.HasSuffix(e.Name(), ".log") {
			files = append(files, e.Name())
		}
	}
	if len(files) <= l.maxFiles {
		return
	}

	// Filenames embed their date/time, lexical order is age order.
	sort.Strings(files)
	for _, name := range files[:len(files)-l.maxFiles] {
		if err := os.Remove(filepath.Join(l.dir, name)); err != nil {
			log.Printf("WARNING: log cleanup failed for %s: %v", name, err)
		}
	}
}

// RecentLogs re-reads the current day's file and returns up to count
// parsed entries, newest last. Malformed lines are skipped.
func (l *Logger) RecentLogs(count int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.fileEnabled || count <= 0 {
		return nil
	}

	raw, err := os.ReadFile(l.currentFile())
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("WARNING: log read failed: %v", err)
		}
		return nil
	}

	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	if len(lines) > count {
		lines = lines[len(lines)-count:]
	}

	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		m := entryPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, m[1])
		if err != nil {
			continue
		}
		e := Entry{Timestamp: ts, Level: m[2], Message: m[3]}
		if m[4] != "" && json.Valid([]byte(m[4])) {
			e.Data = json.RawMessage(m[4])
		}
		entries = append(entries, e)
	}
	return entries
}

// FileEnabled reports whether the file sink is active.
func (l *Logger) FileEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fileEnabled
}
