// Package auditlog keeps an append-only JSON-lines log per check and
// rotates those logs into gzip archives.
//
// Layout under the logs root:
//
//	<checkID>.log                      live log, one LogRecord per line
//	<checkID>-<unixMillis>.log.gz      archive written by Rotate
//	<checkID>-<unixMillis>_<n>.log.gz  archive when the stamp is already taken
package auditlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimeworker/internal/domain"
	"github.com/hamed0406/uptimeworker/internal/repo"
)

const (
	liveExt    = ".log"
	archiveExt = ".log.gz"

	// longest line accepted when reading a log back
	maxLine = 1 << 20
)

type Logger struct {
	dir string
	log *zap.Logger
	now func() time.Time

	// one mutex per log: appends to the same log never interleave and a
	// rotation sees no writes between reading and truncating
	locks sync.Map
}

func New(dir string, log *zap.Logger) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{dir: dir, log: log, now: time.Now}, nil
}

func (l *Logger) Dir() string { return l.dir }

func (l *Logger) lock(id string) *sync.Mutex {
	v, _ := l.locks.LoadOrStore(id, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (l *Logger) livePath(id string) string {
	return filepath.Join(l.dir, id+liveExt)
}

// Append writes rec as one line to the check's log, creating it if needed.
func (l *Logger) Append(checkID string, rec domain.LogRecord) error {
	if err := repo.ValidID(checkID); err != nil {
		return err
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode log record: %w", err)
	}
	line = append(line, '\n')

	mu := l.lock(checkID)
	mu.Lock()
	defer mu.Unlock()

	f, err := os.OpenFile(l.livePath(checkID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log %s: %w", checkID, err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("append log %s: %w", checkID, err)
	}
	return f.Close()
}

// Read parses the live log of a check. A missing log reads as empty.
func (l *Logger) Read(checkID string) ([]domain.LogRecord, error) {
	if err := repo.ValidID(checkID); err != nil {
		return nil, err
	}
	mu := l.lock(checkID)
	mu.Lock()
	data, err := os.ReadFile(l.livePath(checkID))
	mu.Unlock()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read log %s: %w", checkID, err)
	}
	return parseLines(bytes.NewReader(data))
}

// List returns the ids of every live (uncompressed) log.
func (l *Logger) List() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, liveExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, liveExt))
	}
	slices.Sort(ids)
	return ids, nil
}

func parseLines(r io.Reader) ([]domain.LogRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	var out []domain.LogRecord
	for n := 1; sc.Scan(); n++ {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		rec, err := domain.ParseLogRecord(line)
		if err != nil {
			return out, fmt.Errorf("line %d: %w", n, err)
		}
		out = append(out, rec)
	}
	return out, sc.Err()
}
