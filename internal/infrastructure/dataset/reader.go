// Package dataset reads delimited point datasets from local files or any
// byte stream into facility.Table values.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/turtacn/RiskOverlay/internal/domain/facility"
	"github.com/turtacn/RiskOverlay/pkg/errors"
)

// Supported text encodings.
const (
	EncodingUTF8        = "utf-8"
	EncodingLatin1      = "latin1"
	EncodingWindows1252 = "windows-1252"
)

// Options controls how a delimited stream is decoded.
type Options struct {
	// Delimiter separates fields. Zero means ';'.
	Delimiter rune
	// Encoding names the byte encoding of the stream. Empty means UTF-8.
	Encoding string
}

// OptionsFor builds Options from configuration strings.
func OptionsFor(delimiter, encoding string) Options {
	o := Options{Encoding: encoding}
	if r, _ := utf8.DecodeRuneInString(delimiter); r != utf8.RuneError {
		o.Delimiter = r
	}
	return o
}

func (o Options) delimiter() rune {
	if o.Delimiter == 0 {
		return ';'
	}
	return o.Delimiter
}

// decoder returns a transformer that strips a leading UTF-8 byte order mark
// and otherwise decodes with the configured encoding.
func (o Options) decoder() (transform.Transformer, error) {
	switch strings.ToLower(o.Encoding) {
	case "", EncodingUTF8, "utf8":
		return unicode.BOMOverride(unicode.UTF8.NewDecoder()), nil
	case EncodingLatin1, "iso-8859-1":
		return unicode.BOMOverride(charmap.ISO8859_1.NewDecoder()), nil
	case EncodingWindows1252, "cp1252":
		return unicode.BOMOverride(charmap.Windows1252.NewDecoder()), nil
	default:
		return nil, errors.Newf(errors.ErrCodeValidation, "unsupported encoding %q", o.Encoding)
	}
}

// Read parses r as a delimited table with a header row. Header cells are
// trimmed; data rows may be shorter or longer than the header. A stream
// without a header row is a SchemaError.
func Read(name string, r io.Reader, opts Options) (*facility.Table, error) {
	dec, err := opts.decoder()
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(transform.NewReader(r, dec))
	cr.Comma = opts.delimiter()
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrCodeSchema, "dataset has no header row").
			WithDetail(name)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSchema, "failed to read header").
			WithDetail(name)
	}

	t := &facility.Table{Name: name, Columns: make([]string, len(header))}
	for i, h := range header {
		t.Columns[i] = strings.TrimSpace(h)
	}

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSchema, "malformed row").
				WithDetail(fmt.Sprintf("%s: row %d", name, len(t.Rows)+1))
		}
		if blank(row) {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
