package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Progress report",
		Notes:   []string{"Student: Hanako"},
		Headers: []string{"material", "completed_at"},
		Rows: []map[string]string{
			{"material": "Fractions", "completed_at": "2024-05-01"},
			{"material": "Kanji 1", "completed_at": ""},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(out, utf8BOM))
	assert.Equal(t, "material,completed_at\nFractions,2024-05-01\nKanji 1,\n", string(out[len(utf8BOM):]))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestColumnWidthsFillPage(t *testing.T) {
	widths := columnWidths(sampleDataset())
	require.Len(t, widths, 2)
	assert.InDelta(t, pageWidth, widths[0]+widths[1], 0.01)
}
