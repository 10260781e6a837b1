package parsers

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
)

// DataSource yields the streams to feed through the pipeline.
type DataSource interface {
	Streams() ([]DataStream, error)
}

// DataStream is one unit of loggable output, a file on disk or one
// task response fetched from a C2 server.
type DataStream interface {
	Identifier() string
	Lines() (LineIterator, error)
}

type LineIterator interface {
	Next() (string, bool)
	Err() error
	Close() error
}

// FileDataSource walks a file or directory tree and yields matching
// log files ordered by modification time, so replayed logs apply their
// attribute updates in the order they were captured.
type FileDataSource struct {
	Path    string
	Pattern string
}

func NewFileDataSource(path, pattern string) *FileDataSource {
	return &FileDataSource{Path: path, Pattern: pattern}
}

func (s *FileDataSource) Streams() ([]DataStream, error) {
	info, err := os.Stat(s.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "input path %v does not exist", s.Path)
	}
	if !info.IsDir() {
		return []DataStream{&FileDataStream{path: s.Path}}, nil
	}

	matcher, err := glob.Compile(s.Pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "bad filename pattern %v", s.Pattern)
	}

	type candidate struct {
		path  string
		mtime time.Time
	}
	var found []candidate
	err = filepath.WalkDir(s.Path, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !matcher.Match(d.Name()) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		found = append(found, candidate{path: path, mtime: fi.ModTime()})
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walking %v", s.Path)
	}

	sort.Slice(found, func(i, j int) bool {
		if !found[i].mtime.Equal(found[j].mtime) {
			return found[i].mtime.Before(found[j].mtime)
		}
		return found[i].path < found[j].path
	})

	streams := make([]DataStream, len(found))
	for i, c := range found {
		streams[i] = &FileDataStream{path: c.path}
	}
	return streams, nil
}

type FileDataStream struct {
	path string
}

func (s *FileDataStream) Identifier() string {
	return s.path
}

func (s *FileDataStream) Lines() (LineIterator, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	scanner := bufio.NewScanner(file)
	// Security descriptor attributes come out as very long base64 lines
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return &fileLineIterator{file: file, scanner: scanner}, nil
}

type fileLineIterator struct {
	file    *os.File
	scanner *bufio.Scanner
}

func (it *fileLineIterator) Next() (string, bool) {
	if !it.scanner.Scan() {
		return "", false
	}
	return it.scanner.Text(), true
}

func (it *fileLineIterator) Err() error {
	return it.scanner.Err()
}

func (it *fileLineIterator) Close() error {
	return it.file.Close()
}
