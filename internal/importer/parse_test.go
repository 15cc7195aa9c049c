package importer

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/encoding/charmap"
)

func TestParser_CSV_Basic(t *testing.T) {
	p := NewParser("")

	data := []byte("name,phone,source,status\nAlisher,901234567,instagram,new\nBekzod,+998911112233,,sold\n")
	rows, err := p.Parse(data, "leads.csv")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 2, rows[0].Number)
	assert.Equal(t, "Alisher", rows[0].Fields[FieldName])
	assert.Equal(t, "901234567", rows[0].Fields[FieldPhone])
	assert.Equal(t, "instagram", rows[0].Fields[FieldSource])
	assert.Equal(t, "new", rows[0].Fields[FieldStatus])

	assert.Equal(t, 3, rows[1].Number)
	assert.Equal(t, "+998911112233", rows[1].Fields[FieldPhone])
}

func TestParser_CSV_HeaderSynonyms(t *testing.T) {
	p := NewParser("")

	data := []byte("Full Name, TEL ,Channel,Stage\nAlisher,901234567,telegram,sold\n")
	rows, err := p.Parse(data, "text/csv")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "Alisher", rows[0].Fields[FieldName])
	assert.Equal(t, "901234567", rows[0].Fields[FieldPhone])
	assert.Equal(t, "telegram", rows[0].Fields[FieldSource])
	assert.Equal(t, "sold", rows[0].Fields[FieldStatus])
}

func TestParser_CSV_UnknownColumnsIgnored(t *testing.T) {
	p := NewParser("")

	data := []byte("name,phone,favorite color\nAlisher,901234567,blue\n")
	rows, err := p.Parse(data, "leads.csv")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	_, ok := rows[0].Fields["favorite color"]
	assert.False(t, ok)
	assert.Equal(t, "Alisher", rows[0].Fields[FieldName])
}

func TestParser_CSV_ShortRow(t *testing.T) {
	p := NewParser("")

	data := []byte("name,phone,source\nAlisher\n")
	rows, err := p.Parse(data, "leads.csv")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "Alisher", rows[0].Fields[FieldName])
	_, ok := rows[0].Fields[FieldPhone]
	assert.False(t, ok)
}

func TestParser_CSV_HeaderOnly(t *testing.T) {
	p := NewParser("")

	rows, err := p.Parse([]byte("name,phone\n"), "leads.csv")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParser_CSV_EmptyFile(t *testing.T) {
	p := NewParser("")

	rows, err := p.Parse(nil, "leads.csv")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParser_CSV_Malformed(t *testing.T) {
	p := NewParser("")

	_, err := p.Parse([]byte("name,phone\n\"Alisher,901234567\n"), "leads.csv")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedFile)
}

func TestParser_CSV_BOMStripped(t *testing.T) {
	p := NewParser("")

	data := append([]byte{0xef, 0xbb, 0xbf}, []byte("name,phone\nAlisher,901234567\n")...)
	rows, err := p.Parse(data, "leads.csv")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Alisher", rows[0].Fields[FieldName])
}

func TestParser_CSV_Windows1251(t *testing.T) {
	p := NewParser("windows-1251")

	encoded, err := charmap.Windows1251.NewEncoder().Bytes([]byte("name,phone\nАлишер,901234567\n"))
	require.NoError(t, err)

	rows, err := p.Parse(encoded, "leads.csv")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Алишер", rows[0].Fields[FieldName])
}

func buildXLSX(t *testing.T, records [][]string) []byte {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Leads")
	require.NoError(t, err)
	for _, rec := range records {
		row := sheet.AddRow()
		for _, v := range rec {
			row.AddCell().Value = v
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestParser_XLSX_Basic(t *testing.T) {
	p := NewParser("")

	data := buildXLSX(t, [][]string{
		{"Name", "Phone", "Source"},
		{"Alisher", "901234567", "instagram"},
		{"Bekzod", "+998911112233", ""},
	})

	rows, err := p.Parse(data, "leads.xlsx")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Number)
	assert.Equal(t, "Alisher", rows[0].Fields[FieldName])
	assert.Equal(t, "+998911112233", rows[1].Fields[FieldPhone])
}

func TestParser_XLSX_DetectedByMagicBytes(t *testing.T) {
	p := NewParser("")

	data := buildXLSX(t, [][]string{
		{"name", "phone"},
		{"Alisher", "901234567"},
	})

	// No media type hint at all; the zip magic should route to XLSX.
	rows, err := p.Parse(data, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Alisher", rows[0].Fields[FieldName])
}

func TestParser_XLSX_SkipsBlankTrailingRows(t *testing.T) {
	p := NewParser("")

	data := buildXLSX(t, [][]string{
		{"name", "phone"},
		{"Alisher", "901234567"},
		{"", ""},
		{"", ""},
	})

	rows, err := p.Parse(data, "leads.xlsx")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestParser_XLSX_Malformed(t *testing.T) {
	p := NewParser("")

	_, err := p.Parse([]byte("PK\x03\x04 not really a zip"), "leads.xlsx")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedFile)
}

func TestLoadAliases_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	content := "aliases:\n  phone: [phone, whatsapp]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	aliases, err := LoadAliases(path)
	require.NoError(t, err)

	p := NewParser("")
	p.Aliases = aliases

	data := []byte("name,WhatsApp\nAlisher,901234567\n")
	rows, err := p.Parse(data, "leads.csv")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "901234567", rows[0].Fields[FieldPhone])

	// Overridden field drops defaults not re-listed.
	data = []byte("name,tel\nAlisher,901234567\n")
	rows, err = p.Parse(data, "leads.csv")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	_, ok := rows[0].Fields[FieldPhone]
	assert.False(t, ok)
}

func TestLoadAliases_MissingFile(t *testing.T) {
	_, err := LoadAliases(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
