package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmylchreest/stackbox/internal/model"
)

// SchemaVersion is the current persistence schema version.
const SchemaVersion = 1

// Persistence stores history records.
type Persistence interface {
	// Load reads every record. A UID written more than once yields its
	// last version, at the position of its first appearance.
	Load() ([]model.Record, error)

	// Append writes a new version of a record.
	Append(r model.Record) error

	// Rewrite replaces the whole file (used after prune and delete).
	Rewrite(rs []model.Record) error

	// Clear removes every record.
	Clear() error

	// Close releases the file handle.
	Close() error
}

// schemaHeader is the first line of the JSONL file.
type schemaHeader struct {
	StackboxSchemaVersion int   `json:"stackbox_schema_version"`
	CreatedAt             int64 `json:"created_at"`
}

// JSONLPersistence implements Persistence with an append-only JSONL file.
type JSONLPersistence struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	closed bool
}

// ErrPersistenceClosed is returned when operations are attempted on a closed persistence.
var ErrPersistenceClosed = errors.New("persistence is closed")

// NewJSONLPersistence opens (creating if needed) the history file at path.
func NewJSONLPersistence(path string) (*JSONLPersistence, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}

	p := &JSONLPersistence{
		path: path,
		file: file,
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	if info.Size() == 0 {
		if err := p.writeHeader(); err != nil {
			file.Close()
			return nil, err
		}
	}

	return p, nil
}

func (p *JSONLPersistence) writeHeader() error {
	header := schemaHeader{
		StackboxSchemaVersion: SchemaVersion,
		CreatedAt:             time.Now().Unix(),
	}

	data, err := json.Marshal(header)
	if err != nil {
		return err
	}

	_, err = p.file.Write(append(data, '\n'))
	return err
}

// Load reads every record, collapsing versions by UID.
func (p *JSONLPersistence) Load() ([]model.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.file == nil {
		return nil, ErrPersistenceClosed
	}

	if _, err := p.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %s: %w", p.path, err)
	}

	records, err := readRecords(p.file, true)
	if err != nil {
		return records, err
	}

	if _, err := p.file.Seek(0, io.SeekEnd); err != nil {
		return records, err
	}
	return records, nil
}

// readRecords parses a history stream. Malformed lines are skipped.
func readRecords(r io.Reader, checkVersion bool) ([]model.Record, error) {
	var records []model.Record
	positions := make(map[string]int)

	scanner := bufio.NewScanner(r)
	const maxLineSize = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var header schemaHeader
		if json.Unmarshal(line, &header) == nil && header.StackboxSchemaVersion > 0 {
			if checkVersion && header.StackboxSchemaVersion > SchemaVersion {
				return nil, fmt.Errorf("unsupported schema version %d (max: %d)",
					header.StackboxSchemaVersion, SchemaVersion)
			}
			continue
		}

		var rec model.Record
		if err := json.Unmarshal(line, &rec); err != nil || rec.UID == "" {
			continue
		}

		if idx, seen := positions[rec.UID]; seen {
			records[idx] = rec
			continue
		}
		positions[rec.UID] = len(records)
		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("error reading history: %w", err)
	}
	return records, nil
}

// Append writes one record version.
func (p *JSONLPersistence) Append(r model.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.file == nil {
		return ErrPersistenceClosed
	}

	if err := p.writeRecord(r); err != nil {
		return err
	}
	return p.file.Sync()
}

func (p *JSONLPersistence) writeRecord(r model.Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = p.file.Write(append(data, '\n'))
	return err
}

// Rewrite replaces the file with rs, keeping a backup until it succeeds.
func (p *JSONLPersistence) Rewrite(rs []model.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPersistenceClosed
	}

	if err := p.reopenTruncated(); err != nil {
		return err
	}

	for _, r := range rs {
		if err := p.writeRecord(r); err != nil {
			return err
		}
	}

	if err := p.file.Sync(); err != nil {
		return err
	}

	os.Remove(p.path + ".bak")
	return nil
}

// Clear removes all stored records.
func (p *JSONLPersistence) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPersistenceClosed
	}

	if err := p.reopenTruncated(); err != nil {
		return err
	}
	return p.file.Sync()
}

// reopenTruncated moves the file aside and starts a new one with a header.
func (p *JSONLPersistence) reopenTruncated() error {
	if p.file != nil {
		if err := p.file.Close(); err != nil {
			return err
		}
		p.file = nil
	}

	backupPath := p.path + ".bak"
	if err := os.Rename(p.path, backupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to create backup: %w", err)
	}

	file, err := os.OpenFile(p.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND, 0600)
	if err != nil {
		os.Rename(backupPath, p.path)
		return fmt.Errorf("failed to create new file: %w", err)
	}
	p.file = file

	return p.writeHeader()
}

// Close releases the file handle.
func (p *JSONLPersistence) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if p.file != nil {
		err := p.file.Close()
		p.file = nil
		return err
	}
	return nil
}

// ReadHistory loads a history file without opening it for writing.
// A missing file yields no records.
func ReadHistory(path string) ([]model.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	return readRecords(file, true)
}

// RecoverFromCorruption keeps the valid records of path and moves the
// original aside.
func RecoverFromCorruption(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	valid, _ := readRecords(file, false)
	file.Close()

	backupPath := path + ".corrupted." + time.Now().Format("20060102-150405")
	if err := os.Rename(path, backupPath); err != nil {
		return fmt.Errorf("failed to backup corrupted file: %w", err)
	}

	p, err := NewJSONLPersistence(path)
	if err != nil {
		return err
	}
	defer p.Close()

	return p.Rewrite(valid)
}
