package utils

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/siphon-dl/siphon/internal/config"
)

var (
	debugOnce   sync.Once
	debugLogger *log.Logger
	debugMu     sync.Mutex
	debugDir    = config.GetLogsDir()
)

// ConfigureDebug overrides the directory Debug writes log files to. It must
// be called before the first Debug call takes effect, since the log file is
// opened once via sync.Once.
func ConfigureDebug(dir string) {
	debugMu.Lock()
	debugDir = dir
	debugMu.Unlock()
}

func initDebugLogger() {
	debugMu.Lock()
	dir := debugDir
	debugMu.Unlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return
	}

	name := fmt.Sprintf("debug-%s.log", time.Now().Format("20060102-150405"))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return
	}
	debugLogger = log.New(f, "", log.LstdFlags|log.Lmicroseconds)
}

// Debug writes a formatted line to the current process's debug log file,
// creating it lazily on first call.
func Debug(format string, args ...any) {
	debugOnce.Do(initDebugLogger)
	if debugLogger == nil {
		return
	}
	debugLogger.Printf(format, args...)
}

// CleanupLogs removes debug log files beyond the newest keep entries in the
// configured logs directory.
func CleanupLogs(keep int) {
	debugMu.Lock()
	dir := debugDir
	debugMu.Unlock()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	type logFile struct {
		name    string
		modTime time.Time
	}

	var logs []logFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		logs = append(logs, logFile{name: e.Name(), modTime: info.ModTime()})
	}

	if len(logs) <= keep {
		return
	}

	sort.Slice(logs, func(i, j int) bool { return logs[i].modTime.After(logs[j].modTime) })

	for _, lf := range logs[keep:] {
		os.Remove(filepath.Join(dir, lf.name))
	}
}
