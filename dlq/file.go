package dlq

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileSink stores dead-lettered entries as one JSON record per line under
// <dir>/<queueName>.jsonl. Appends are durable across process restarts.
type FileSink struct {
	dir string
}

// NewFileSink creates a sink rooted at dir. The directory is created on
// first append.
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

// path sanitizes the queue name so "chat:storage" maps to a flat filename.
func (s *FileSink) path(queueName string) string {
	name := strings.ReplaceAll(queueName, string(os.PathSeparator), "_")
	return filepath.Join(s.dir, name+".jsonl")
}

// Add appends the entry as a JSON line to the queue's file.
func (s *FileSink) Add(ctx context.Context, queueName string, entry Entry) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create dead-letter directory: %w", err)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal dead-letter entry: %w", err)
	}

	f, err := os.OpenFile(s.path(queueName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open dead-letter file for %s: %w", queueName, err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append dead-letter entry for %s: %w", queueName, err)
	}
	return nil
}

// Count returns the number of dead-lettered entries for queueName. A missing
// file means zero entries.
func (s *FileSink) Count(ctx context.Context, queueName string) (int, error) {
	f, err := os.Open(s.path(queueName))
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to open dead-letter file for %s: %w", queueName, err)
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if len(strings.TrimSpace(scanner.Text())) > 0 {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to read dead-letter file for %s: %w", queueName, err)
	}
	return count, nil
}

// Entries reads all dead-lettered entries for queueName, oldest first,
// without removing them.
func (s *FileSink) Entries(ctx context.Context, queueName string) ([]Entry, error) {
	f, err := os.Open(s.path(queueName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open dead-letter file for %s: %w", queueName, err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return entries, fmt.Errorf("failed to parse dead-letter entry for %s: %w", queueName, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("failed to read dead-letter file for %s: %w", queueName, err)
	}
	return entries, nil
}
