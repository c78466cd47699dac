package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tablewright/tablewright/internal/catalog"
)

// exportPageSize is the row batch read per catalog round trip.
const exportPageSize = 5000

// WriteCSV streams a table's current version to a CSV file under dir,
// named <table>.csv. It returns the written path.
func WriteCSV(ctx context.Context, cat *catalog.Catalog, tableID int64, dir string) (string, error) {
	t, err := cat.GetTable(ctx, tableID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}

	path := filepath.Join(dir, t.Name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col.Name
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	for offset := 0; ; offset += exportPageSize {
		_, rows, err := cat.Rows(ctx, tableID, offset, exportPageSize)
		if err != nil {
			return "", err
		}
		for _, row := range rows {
			rec := make([]string, len(row))
			for i, v := range row {
				rec[i] = formatValue(v)
			}
			if err := w.Write(rec); err != nil {
				return "", err
			}
		}
		if len(rows) < exportPageSize {
			break
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, f.Close()
}

func formatValue(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
