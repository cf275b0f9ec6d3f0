package config

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func openArchive(t *testing.T, path string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("failed to open report archive: %v", err)
	}
	defer zr.Close()

	files := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open archive member %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("failed to read archive member %s: %v", f.Name, err)
		}
		files[f.Name] = string(data)
	}
	return files
}

func TestReport_StoreAndClose(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "report.zip")
	conf := &ReporterConfig{Destination: dest}

	r, err := conf.Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	srcFile := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(srcFile, []byte("<html/>"), 0644); err != nil {
		t.Fatalf("failed to write source file: %v", err)
	}

	r.Store("source/page.html", srcFile)
	r.StoreData("resolved/page.html", []byte("resolved text"))

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	files := openArchive(t, dest)
	if _, ok := files["MANIFEST"]; !ok {
		t.Error("archive has no MANIFEST")
	}
	if files["source/page.html"] != "<html/>" {
		t.Errorf("stored file content = %q, want %q", files["source/page.html"], "<html/>")
	}
	if files["resolved/page.html"] != "resolved text" {
		t.Errorf("stored data content = %q, want %q", files["resolved/page.html"], "resolved text")
	}
}

func TestReport_StoreDataVersionsDuplicates(t *testing.T) {
	// in watch mode the same document may be resolved many times, so repeated
	// names must not clobber earlier snapshots
	dest := filepath.Join(t.TempDir(), "report.zip")
	r, err := (&ReporterConfig{Destination: dest}).Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	r.StoreData("resolved/index.html", []byte("first"))
	r.StoreData("resolved/index.html", []byte("second"))

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	files := openArchive(t, dest)
	delete(files, "MANIFEST")
	if len(files) != 2 {
		t.Errorf("archive has %d data members, want 2: %v", len(files), files)
	}
	if files["resolved/index.html"] != "first" {
		t.Errorf("original member = %q, want %q", files["resolved/index.html"], "first")
	}
}

func TestReport_NilIsSafe(t *testing.T) {
	var r *Report

	// every method must tolerate the no-report-requested case
	r.Store("a", "b")
	r.StoreData("c", []byte("d"))
	if got := r.Name(); got != "" {
		t.Errorf("Name() on nil report = %q, want empty", got)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close() on nil report error = %v", err)
	}
}

func TestReport_AbsentStoredFileIgnored(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "report.zip")
	r, err := (&ReporterConfig{Destination: dest}).Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	r.Store("gone", filepath.Join(t.TempDir(), "never-existed.txt"))

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	files := openArchive(t, dest)
	if _, ok := files["gone"]; ok {
		t.Error("archive contains a member for an absent file")
	}
	if _, ok := files["MANIFEST"]; !ok {
		t.Error("archive has no MANIFEST")
	}
}
