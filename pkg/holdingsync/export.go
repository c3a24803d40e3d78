package holdingsync

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseExport reads a broker holdings CSV. The first line is the header; rows
// shorter than the header get empty values for the missing columns.
func ParseExport(r io.Reader) ([]RawRecord, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	var records []RawRecord
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		rec := make(RawRecord, len(header))
		for i, h := range header {
			if i < len(fields) {
				rec[h] = fields[i]
			} else {
				rec[h] = ""
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// Source lists and opens the export files of one run.
type Source interface {
	Files(ctx context.Context) ([]string, error)
	Open(name string) (io.ReadCloser, error)
}

// DirSource reads *.csv files from a directory in listing order. A missing
// directory has no files.
type DirSource struct {
	Dir string
}

// Files implements Source.
func (s DirSource) Files(context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		files = append(files, e.Name())
	}
	return files, nil
}

// Open implements Source.
func (s DirSource) Open(name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.Dir, name))
}
