package pdfx

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExtractFilePlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	body := "Line one  with   extra spaces\r\n\r\nLine two here\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ExtractFile(path)
	if err != nil {
		t.Fatalf("ExtractFile: %v", err)
	}
	want := "Line one with extra spaces\n\nLine two here\n"
	if got != want {
		t.Fatalf("ExtractFile = %q, want %q", got, want)
	}
}

func TestExtractFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ExtractFile(path); err == nil {
		t.Fatal("expected error for empty file")
	}
}

func TestExtractFileMissing(t *testing.T) {
	if _, err := ExtractFile(filepath.Join(t.TempDir(), "nope.pdf")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestIsPDF(t *testing.T) {
	if !isPDF([]byte("%PDF-1.7\n...")) {
		t.Error("real header not detected")
	}
	if isPDF([]byte("plain text")) {
		t.Error("plain text misdetected as PDF")
	}
}
