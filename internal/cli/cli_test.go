package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func writeBatchFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "symbols.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadBatchFile(t *testing.T) {
	path := writeBatchFile(t, `{"symbols": [
		{"symbol": "005930.ks", "name": "Samsung Electronics"},
		{"symbol": "000660.KS", "name": "SK hynix"}
	]}`)

	symbols, err := loadBatchFile(path)
	if err != nil {
		t.Fatalf("loadBatchFile() error = %v", err)
	}
	if len(symbols) != 2 {
		t.Fatalf("symbol count = %d, want 2", len(symbols))
	}
	if symbols[0].Code != "005930.KS" {
		t.Errorf("symbol = %s, want normalized 005930.KS", symbols[0].Code)
	}
}

func TestLoadBatchFileRejectsBadSymbol(t *testing.T) {
	path := writeBatchFile(t, `{"symbols": [{"symbol": "not a ticker!!"}]}`)
	if _, err := loadBatchFile(path); err == nil {
		t.Fatal("expected error for invalid symbol")
	}
}

func TestLoadBatchFileRejectsEmptyList(t *testing.T) {
	path := writeBatchFile(t, `{"symbols": []}`)
	if _, err := loadBatchFile(path); err == nil {
		t.Fatal("expected error for empty symbol list")
	}
}

func TestLoadBatchFileMissing(t *testing.T) {
	if _, err := loadBatchFile(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
