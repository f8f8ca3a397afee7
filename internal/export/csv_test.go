package export

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriteInventoryCSV(t *testing.T) {
	rows := []InventoryRow{
		{ID: 1, Name: "Натрий хлористый", Stock: 120.5, Unit: "g", MinWeight: 50},
		{ID: 2, Name: "Agar", Stock: 0, Unit: "g", MinWeight: 10},
	}

	var buf bytes.Buffer
	if err := WriteInventoryCSV(&buf, rows); err != nil {
		t.Fatalf("WriteInventoryCSV() error = %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "\ufeff") {
		t.Errorf("output must start with UTF-8 BOM")
	}

	lines := strings.Split(strings.TrimRight(strings.TrimPrefix(out, "\ufeff"), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 rows:\n%s", len(lines), out)
	}
	if lines[0] != "ID,Name,Stock,Unit,Min Weight" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "1,Натрий хлористый,120.5,g,50" {
		t.Errorf("row 1 = %q", lines[1])
	}
	if lines[2] != "2,Agar,0,g,10" {
		t.Errorf("row 2 = %q", lines[2])
	}
}

func TestWriteInventoryCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteInventoryCSV(&buf, nil); err != nil {
		t.Fatalf("WriteInventoryCSV() error = %v", err)
	}
	if got := buf.String(); got != "\ufeffID,Name,Stock,Unit,Min Weight\n" {
		t.Errorf("empty export = %q", got)
	}
}
