package parsers

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeLog(t *testing.T, dir, name, contents string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileDataSourceSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeLog(t, dir, "beacon.log", "cn: test\n", time.Now())

	streams, err := NewFileDataSource(path, "*.log").Streams()
	if err != nil {
		t.Fatal(err)
	}
	if len(streams) != 1 || streams[0].Identifier() != path {
		t.Errorf("expected the single file back, got %v streams", len(streams))
	}
}

func TestFileDataSourceOrdersByModTime(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	writeLog(t, dir, "newest.log", "", base.Add(30*time.Minute))
	writeLog(t, dir, "oldest.log", "", base)
	writeLog(t, dir, "middle.log", "", base.Add(10*time.Minute))

	streams, err := NewFileDataSource(dir, "*.log").Streams()
	if err != nil {
		t.Fatal(err)
	}
	if len(streams) != 3 {
		t.Fatalf("expected 3 streams, got %v", len(streams))
	}
	order := []string{
		filepath.Base(streams[0].Identifier()),
		filepath.Base(streams[1].Identifier()),
		filepath.Base(streams[2].Identifier()),
	}
	if order[0] != "oldest.log" || order[1] != "middle.log" || order[2] != "newest.log" {
		t.Errorf("wrong replay order: %v", order)
	}
}

func TestFileDataSourcePatternFilter(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeLog(t, dir, "b-0708.log", "", now)
	writeLog(t, dir, "Console_123.log", "", now)
	writeLog(t, dir, "notes.txt", "", now)

	streams, err := NewFileDataSource(dir, "b-*.log").Streams()
	if err != nil {
		t.Fatal(err)
	}
	if len(streams) != 1 || filepath.Base(streams[0].Identifier()) != "b-0708.log" {
		t.Errorf("pattern should select only matching files, got %v streams", len(streams))
	}
}

func TestFileDataStreamLines(t *testing.T) {
	dir := t.TempDir()
	path := writeLog(t, dir, "beacon.log", "first\nsecond\n", time.Now())

	iterator, err := (&FileDataStream{path: path}).Lines()
	if err != nil {
		t.Fatal(err)
	}
	defer iterator.Close()

	var lines []string
	for {
		line, ok := iterator.Next()
		if !ok {
			break
		}
		lines = append(lines, line)
	}
	if iterator.Err() != nil {
		t.Fatal(iterator.Err())
	}
	if len(lines) != 2 || lines[0] != "first" || lines[1] != "second" {
		t.Errorf("lines = %v", lines)
	}
}
