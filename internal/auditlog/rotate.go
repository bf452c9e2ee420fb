package auditlog

import (
	"bytes"
	"cmp"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimeworker/internal/domain"
)

// attempts at finding a free archive name before giving up
const maxNameAttempts = 100

// RotateReport summarizes one rotation pass.
type RotateReport struct {
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Logs     int       `json:"logs"`
	Archived int       `json:"archived"`
	Empty    int       `json:"empty"`
	Failed   int       `json:"failed"`
}

// Rotate archives every non-empty live log and truncates it afterwards.
// A log that fails is logged and left untouched; the others still rotate.
func (l *Logger) Rotate(ctx context.Context) RotateReport {
	rep := RotateReport{Started: l.now()}

	ids, err := l.List()
	if err != nil {
		l.log.Warn("auditlog_list_error", zap.Error(err))
		rep.Finished = l.now()
		return rep
	}
	if len(ids) == 0 {
		l.log.Debug("auditlog_nothing_to_rotate")
	}
	rep.Logs = len(ids)

	for _, id := range ids {
		if ctx.Err() != nil {
			l.log.Info("auditlog_rotate_cancelled", zap.Int("remaining", rep.Logs-rep.Archived-rep.Empty-rep.Failed))
			break
		}
		archive, err := l.rotateOne(id)
		switch {
		case err != nil:
			rep.Failed++
			l.log.Warn("auditlog_rotate_error", zap.String("check_id", id), zap.Error(err))
		case archive == "":
			rep.Empty++
		default:
			rep.Archived++
			l.log.Debug("auditlog_rotated", zap.String("check_id", id), zap.String("archive", archive))
		}
	}
	rep.Finished = l.now()
	return rep
}

// rotateOne returns the archive path, or "" when the log was empty.
func (l *Logger) rotateOne(id string) (string, error) {
	mu := l.lock(id)
	mu.Lock()
	defer mu.Unlock()

	live := l.livePath(id)
	data, err := os.ReadFile(live)
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}
	if len(data) == 0 {
		return "", nil
	}
	archive, err := l.writeArchive(id, data)
	if err != nil {
		return "", fmt.Errorf("archive: %w", err)
	}
	// only after the archive is synced
	if err := os.Truncate(live, 0); err != nil {
		return archive, fmt.Errorf("truncate: %w", err)
	}
	return archive, nil
}

func (l *Logger) writeArchive(id string, data []byte) (string, error) {
	base := fmt.Sprintf("%s-%d", id, l.now().UnixMilli())
	for n := 0; n < maxNameAttempts; n++ {
		name := base
		if n > 0 {
			name += "_" + strconv.Itoa(n)
		}
		path := filepath.Join(l.dir, name+archiveExt)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o444)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if err := compressTo(f, data); err != nil {
			os.Remove(path)
			return "", err
		}
		return path, nil
	}
	return "", fmt.Errorf("no free archive name for %s", base)
}

func compressTo(f *os.File, data []byte) error {
	zw := gzip.NewWriter(f)
	if _, err := zw.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Archives lists the archive paths of a check, oldest first.
func (l *Logger) Archives(checkID string) ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	type archive struct {
		path    string
		ts, seq int64
	}
	var found []archive
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ts, seq, ok := parseArchiveName(e.Name(), checkID)
		if !ok {
			continue
		}
		found = append(found, archive{filepath.Join(l.dir, e.Name()), ts, seq})
	}
	slices.SortFunc(found, func(a, b archive) int {
		if c := cmp.Compare(a.ts, b.ts); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	out := make([]string, len(found))
	for i, a := range found {
		out[i] = a.path
	}
	return out, nil
}

// parseArchiveName matches <id>-<millis>[_<n>].log.gz. The stamp is taken
// from the right so "a" does not claim the archives of "a-1700".
func parseArchiveName(name, id string) (ts, seq int64, ok bool) {
	base, ok := strings.CutSuffix(name, archiveExt)
	if !ok {
		return 0, 0, false
	}
	dash := strings.LastIndexByte(base, '-')
	if dash < 0 || base[:dash] != id {
		return 0, 0, false
	}
	tsPart, seqPart, hasSeq := strings.Cut(base[dash+1:], "_")
	if ts, ok = number(tsPart); !ok {
		return 0, 0, false
	}
	if hasSeq {
		if seq, ok = number(seqPart); !ok || seq < 1 {
			return 0, 0, false
		}
	}
	return ts, seq, true
}

// number parses a plain run of ASCII digits.
func number(s string) (int64, bool) {
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}

// ReadArchive decompresses an archive and parses its records.
func ReadArchive(path string) ([]domain.LogRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", filepath.Base(path), err)
	}
	defer zr.Close()
	return parseLines(zr)
}
