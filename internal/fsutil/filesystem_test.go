package fsutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
)

func TestMemoryFileSystem_CreateVisibleOnClose(t *testing.T) {
	m := NewMemoryFileSystem()

	w, err := m.Create("out/run.csv")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := w.Write([]byte("freq_Hz,contrast\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if data, _ := m.ReadFile("out/run.csv"); len(data) != 0 {
		t.Errorf("data visible before Close: %q", data)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := m.ReadFile("out/./run.csv")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "freq_Hz,contrast\n" {
		t.Errorf("ReadFile = %q", data)
	}
}

func TestMemoryFileSystem_WriteFileIsolation(t *testing.T) {
	m := NewMemoryFileSystem()
	data := []byte("abc")
	if err := m.WriteFile("a.txt", data, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data[0] = 'x'

	got, _ := m.ReadFile("a.txt")
	if string(got) != "abc" {
		t.Errorf("stored data changed with caller's slice: %q", got)
	}
	got[1] = 'y'
	again, _ := m.ReadFile("a.txt")
	if string(again) != "abc" {
		t.Errorf("stored data changed with returned slice: %q", again)
	}
}

func TestMemoryFileSystem_Dirs(t *testing.T) {
	m := NewMemoryFileSystem()
	if err := m.MkdirAll("results/2025/03", 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	for _, p := range []string{"results", "results/2025", "results/2025/03"} {
		if !m.Exists(p) {
			t.Errorf("expected %s to exist", p)
		}
	}
	if m.Exists("other") {
		t.Error("unexpected directory")
	}
	if _, err := m.Create("results/2025"); !errors.Is(err, fs.ErrExist) {
		t.Errorf("Create over a directory: got %v", err)
	}
}

func TestMemoryFileSystem_ReadMissing(t *testing.T) {
	m := NewMemoryFileSystem()
	if _, err := m.ReadFile("missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestMemoryFileSystem_Files(t *testing.T) {
	m := NewMemoryFileSystem()
	_ = m.WriteFile("b.png", nil, 0644)
	_ = m.WriteFile("a.csv", nil, 0644)
	got := m.Files()
	if len(got) != 2 || got[0] != "a.csv" || got[1] != "b.png" {
		t.Errorf("Files() = %v", got)
	}
}

func TestOSFileSystem(t *testing.T) {
	var fsys FileSystem = OSFileSystem{}
	dir := filepath.Join(t.TempDir(), "nested", "dir")
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	path := filepath.Join(dir, "x.txt")
	if fsys.Exists(path) {
		t.Fatal("file exists before creation")
	}

	w, err := fsys.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	got, err := fsys.ReadFile(path)
	if err != nil || string(got) != "hello" {
		t.Errorf("ReadFile = %q, %v", got, err)
	}

	if err := fsys.WriteFile(path, []byte("bye"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, _ = fsys.ReadFile(path)
	if string(got) != "bye" {
		t.Errorf("ReadFile after WriteFile = %q", got)
	}
}
