package leadlog

import (
	"bufio"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/obelisk-acquisitions/chronos-be/internal/entity"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ILeadLog is the append-only JSONL sink for qualified-lead turns.
type ILeadLog interface {
	Append(entry entity.LeadEntry) error
	ReadSince(cutoff time.Time) ([]entity.LeadEntry, error)
	Clear() error
	Path() string
}

type leadLog struct {
	mu   sync.Mutex
	path string
	log  *logrus.Logger
}

func New(log *logrus.Logger) ILeadLog {
	path := os.Getenv("LEAD_LOG_PATH")
	if path == "" {
		path = "./storage/daily_log.jsonl"
	}

	return &leadLog{path: path, log: log}
}

func NewWithPath(log *logrus.Logger, path string) ILeadLog {
	return &leadLog{path: path, log: log}
}

func (l *leadLog) Append(entry entity.LeadEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	if _, err := f.Write(append(line, '\n')); err != nil {
		return err
	}

	return nil
}

// ReadSince returns entries newer than cutoff. Unparseable lines are
// skipped, matching append-only log semantics.
func (l *leadLog) ReadSince(cutoff time.Time) ([]entity.LeadEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var entries []entity.LeadEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var entry entity.LeadEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			l.log.WithFields(logrus.Fields{
				"error": err.Error(),
			}).Warn("Skipping unparseable lead log line")
			continue
		}
		if entry.Timestamp.After(cutoff) {
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func (l *leadLog) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

func (l *leadLog) Path() string {
	return l.path
}
