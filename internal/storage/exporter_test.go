package storage

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/timberwood/outreach/internal/dataset"
	"github.com/timberwood/outreach/internal/domain"
)

func TestLocalExporter(t *testing.T) {
	dir := t.TempDir()
	e := &LocalExporter{dir: dir}

	tbl := &dataset.Table{
		UserColumns:    []string{"business_name"},
		BusinessColumn: "business_name",
		Rows: []*domain.Record{
			domain.NewRecord(map[string]string{"business_name": "Acme Co"}),
		},
	}

	path, err := e.Export(context.Background(), tbl, "session-1")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "business_name") || !strings.Contains(content, "Acme Co") {
		t.Errorf("export content:\n%s", content)
	}
	if !strings.Contains(path, "session-1-") || !strings.HasSuffix(path, ".csv") {
		t.Errorf("path = %q", path)
	}
}

func TestLocalExporterDefaultName(t *testing.T) {
	e := &LocalExporter{dir: t.TempDir()}
	tbl := &dataset.Table{UserColumns: []string{"business_name"}, BusinessColumn: "business_name"}

	path, err := e.Export(context.Background(), tbl, "")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.Contains(path, "outreach-") {
		t.Errorf("path = %q", path)
	}
}
