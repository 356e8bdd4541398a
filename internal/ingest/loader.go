package ingest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// LoadFile extracts plain text from a source document. Plain text and
// markdown are read as-is; spreadsheets are flattened sheet by sheet into
// tab-separated lines.
func LoadFile(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", eris.Wrapf(err, "ingest: read %s", path)
		}
		return string(data), nil
	case ".xlsx":
		return loadXLSX(path)
	default:
		return "", eris.Errorf("ingest: unsupported file type %q", filepath.Ext(path))
	}
}

func loadXLSX(path string) (string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "ingest: open xlsx %s", path)
	}

	var b strings.Builder
	for _, sheet := range f.Sheets {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Sheet: " + sheet.Name + "\n")
		for _, row := range sheet.Rows {
			cells := make([]string, len(row.Cells))
			for j, cell := range row.Cells {
				cells[j] = cell.String()
			}
			line := strings.TrimRight(strings.Join(cells, "\t"), "\t ")
			if strings.TrimSpace(line) == "" {
				continue
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	if strings.TrimSpace(b.String()) == "" {
		return "", eris.Errorf("ingest: no text content in %s", path)
	}
	return b.String(), nil
}
