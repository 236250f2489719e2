// Package corpus reads raw recipe CSV exports and turns rows into
// normalized records.
package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"recipes/internal/domain"
)

const (
	EncodingAuto   = "auto"
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin-1"
)

// Rejection reasons reported in domain.MalformedRecordError.
const (
	ReasonParse              = "unparseable row"
	ReasonMissingIngredients = "missing ingredients"
	ReasonMissingDirections  = "missing directions"
	ReasonIngredientCount    = "ingredient count out of range"
	ReasonShortDirections    = "too few direction words"
)

// Filter bounds the records accepted by a Reader.
type Filter struct {
	MinIngredients    int
	MaxIngredients    int
	MinDirectionWords int
}

type Options struct {
	Filter    Filter
	ChunkSize int
	Encoding  string
}

// Reader yields cleaned recipes from a CSV stream with a header row.
// Rows that fail cleaning or filtering are reported as
// *domain.MalformedRecordError and never stop the stream.
type Reader struct {
	csv      *csv.Reader
	opts     Options
	row      int
	colTitle int
	colIngr  int
	colDir   int
	colSrc   int
}

// NewReader consumes the header row. The ingredients and directions
// columns are required; title and source are optional.
func NewReader(r io.Reader, opts Options) (*Reader, error) {
	switch opts.Encoding {
	case "", EncodingAuto, EncodingUTF8:
	case EncodingLatin1:
		r = charmap.ISO8859_1.NewDecoder().Reader(r)
	default:
		return nil, fmt.Errorf("%w: unknown encoding %q", domain.ErrInvalidArgument, opts.Encoding)
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 50000
	}

	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty csv", domain.ErrInsufficientData)
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	rd := &Reader{csv: cr, opts: opts, colTitle: -1, colIngr: -1, colDir: -1, colSrc: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "title":
			rd.colTitle = i
		case "ingredients":
			rd.colIngr = i
		case "directions":
			rd.colDir = i
		case "source":
			rd.colSrc = i
		}
	}
	if rd.colIngr < 0 || rd.colDir < 0 {
		return nil, fmt.Errorf("%w: csv header must contain ingredients and directions columns", domain.ErrInvalidArgument)
	}
	return rd, nil
}

// Next returns the next row. io.EOF marks the end of the stream.
func (r *Reader) Next() (domain.Recipe, error) {
	record, err := r.csv.Read()
	r.row++
	if err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Recipe{}, io.EOF
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return domain.Recipe{}, &domain.MalformedRecordError{Row: r.row, Reason: ReasonParse}
		}
		return domain.Recipe{}, err
	}
	return r.convert(record)
}

func (r *Reader) field(record []string, col int) (string, bool) {
	if col < 0 || col >= len(record) {
		return "", false
	}
	s := record[col]
	if r.opts.Encoding == EncodingAuto && !utf8.ValidString(s) {
		if decoded, err := charmap.ISO8859_1.NewDecoder().String(s); err == nil {
			s = decoded
		}
	}
	return s, true
}

func (r *Reader) convert(record []string) (domain.Recipe, error) {
	ingr, ok := r.field(record, r.colIngr)
	if !ok || strings.TrimSpace(ingr) == "" {
		return domain.Recipe{}, &domain.MalformedRecordError{Row: r.row, Reason: ReasonMissingIngredients}
	}
	dir, ok := r.field(record, r.colDir)
	if !ok || strings.TrimSpace(dir) == "" {
		return domain.Recipe{}, &domain.MalformedRecordError{Row: r.row, Reason: ReasonMissingDirections}
	}

	title, _ := r.field(record, r.colTitle)
	source, _ := r.field(record, r.colSrc)
	rec := domain.Recipe{
		Title:       title,
		Ingredients: Clean(ingr),
		Directions:  Clean(dir),
		Source:      source,
	}

	f := r.opts.Filter
	if n := IngredientCount(rec.Ingredients); n < f.MinIngredients || (f.MaxIngredients > 0 && n > f.MaxIngredients) {
		return domain.Recipe{}, &domain.MalformedRecordError{Row: r.row, Reason: ReasonIngredientCount}
	}
	if WordCount(rec.Directions) < f.MinDirectionWords {
		return domain.Recipe{}, &domain.MalformedRecordError{Row: r.row, Reason: ReasonShortDirections}
	}
	return rec, nil
}

// Chunk is the outcome of reading up to ChunkSize raw rows.
type Chunk struct {
	Recipes  []domain.Recipe
	Rejected []*domain.MalformedRecordError
	Rows     int
}

// ReadChunk reads up to ChunkSize raw rows. It returns io.EOF only when
// no row at all was read.
func (r *Reader) ReadChunk() (*Chunk, error) {
	c := &Chunk{}
	for c.Rows < r.opts.ChunkSize {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		c.Rows++
		var mre *domain.MalformedRecordError
		switch {
		case errors.As(err, &mre):
			c.Rejected = append(c.Rejected, mre)
		case err != nil:
			return nil, err
		default:
			c.Recipes = append(c.Recipes, rec)
		}
	}
	if c.Rows == 0 {
		return nil, io.EOF
	}
	return c, nil
}
