package importer

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/encoding/htmlindex"
	"gopkg.in/yaml.v3"
)

// ErrMalformedFile marks a whole-file parse failure. Row-level problems are
// never reported through it; they surface as per-row outcomes instead.
var ErrMalformedFile = eris.New("malformed file")

// Canonical field names recognized by the pipeline.
const (
	FieldName   = "name"
	FieldPhone  = "phone"
	FieldSource = "source"
	FieldStatus = "status"
)

// defaultAliases maps canonical field names to accepted header spellings.
// Matching is case-insensitive after trimming.
var defaultAliases = map[string][]string{
	FieldName:   {"name", "full name", "fullname", "client", "client name", "fio"},
	FieldPhone:  {"phone", "tel", "telephone", "phone number", "mobile", "contact"},
	FieldSource: {"source", "channel", "lead source"},
	FieldStatus: {"status", "stage"},
}

// AliasTable resolves file headers to canonical field names. Built once per
// parser, applied once per file.
type AliasTable map[string]string

// NewAliasTable builds the lookup from canonical field to accepted headers.
func NewAliasTable(aliases map[string][]string) AliasTable {
	t := make(AliasTable)
	for field, names := range aliases {
		for _, n := range names {
			t[strings.ToLower(strings.TrimSpace(n))] = field
		}
	}
	return t
}

// LoadAliases reads a header alias override file and merges it over the
// defaults. The file maps canonical field names to header lists:
//
//	aliases:
//	  phone: [phone, tel, whatsapp]
func LoadAliases(path string) (AliasTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: read aliases %s", path)
	}

	var wrapper struct {
		Aliases map[string][]string `yaml:"aliases"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "importer: parse aliases")
	}

	merged := make(map[string][]string, len(defaultAliases))
	for field, names := range defaultAliases {
		merged[field] = names
	}
	for field, names := range wrapper.Aliases {
		merged[field] = names
	}
	return NewAliasTable(merged), nil
}

// Parser extracts RawRows from uploaded CSV or XLSX bytes.
type Parser struct {
	// Charset decodes CSV input that is not UTF-8 (e.g. "windows-1251"
	// exports from regional Excel installs). Empty means UTF-8.
	Charset string
	Aliases AliasTable
}

// NewParser returns a Parser with the default header alias table.
func NewParser(charset string) Parser {
	return Parser{Charset: charset, Aliases: NewAliasTable(defaultAliases)}
}

// Parse extracts the ordered data rows from a file. mediaType may be a MIME
// type or a filename; both are used to pick the format. Row 1 is consumed as
// the header. A header-only or empty file yields an empty slice, not an error.
func (p Parser) Parse(data []byte, mediaType string) ([]RawRow, error) {
	if isXLSX(data, mediaType) {
		return p.parseXLSX(data)
	}
	return p.parseCSV(data)
}

// isXLSX detects the spreadsheet container by declared type or by the zip
// magic bytes XLSX files start with.
func isXLSX(data []byte, mediaType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	if strings.HasSuffix(mt, ".xlsx") || strings.Contains(mt, "spreadsheetml") {
		return true
	}
	if strings.Contains(mt, "csv") {
		return false
	}
	return bytes.HasPrefix(data, []byte("PK\x03\x04"))
}

func (p Parser) parseCSV(data []byte) ([]RawRow, error) {
	decoded, err := p.decodeCharset(data)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(ErrMalformedFile, "parse csv: %v", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	return p.mapRows(records[0], records[1:]), nil
}

func (p Parser) parseXLSX(data []byte) ([]RawRow, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrapf(ErrMalformedFile, "open xlsx: %v", err)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Wrap(ErrMalformedFile, "xlsx has no sheets")
	}

	sheet := f.Sheets[0]
	var records [][]string
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		records = append(records, cells)
	}
	if len(records) == 0 {
		return nil, nil
	}

	return p.mapRows(records[0], records[1:]), nil
}

// decodeCharset strips a UTF-8 BOM and, when a non-UTF-8 charset is
// configured, transcodes the input.
func (p Parser) decodeCharset(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, []byte{0xef, 0xbb, 0xbf})

	if p.Charset == "" || strings.EqualFold(p.Charset, "utf-8") {
		return data, nil
	}

	enc, err := htmlindex.Get(p.Charset)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: unsupported charset %q", p.Charset)
	}
	decoded, err := io.ReadAll(enc.NewDecoder().Reader(bytes.NewReader(data)))
	if err != nil {
		return nil, eris.Wrapf(ErrMalformedFile, "decode %s: %v", p.Charset, err)
	}
	return decoded, nil
}

// mapRows resolves headers through the alias table and projects each data
// record into a RawRow. Unrecognized columns are ignored. Fully blank rows
// (common as trailing XLSX rows) are skipped.
func (p Parser) mapRows(headers []string, records [][]string) []RawRow {
	fieldByCol := make(map[int]string, len(headers))
	for i, h := range headers {
		if field, ok := p.Aliases[strings.ToLower(strings.TrimSpace(h))]; ok {
			fieldByCol[i] = field
		}
	}

	var rows []RawRow
	for i, rec := range records {
		if blankRecord(rec) {
			continue
		}
		fields := make(map[string]string, len(fieldByCol))
		for col, field := range fieldByCol {
			if col < len(rec) {
				fields[field] = rec[col]
			}
		}
		// Header is row 1, so the first data record is row 2.
		rows = append(rows, RawRow{Number: i + 2, Fields: fields})
	}
	return rows
}

func blankRecord(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
