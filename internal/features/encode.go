package features

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Format selects the table encoding of an output unit.
type Format string

// Supported output formats.
const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatJSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use csv or json)", s)
	}
}

// Ext returns the file extension of the format, with the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv"
}

// Encoding fixes the table shape shared by every unit of a run.
type Encoding struct {
	Format       Format
	MaxNeighbors int
	IncludeID    bool
}

// Encode writes records in the configured format.
func (e Encoding) Encode(w io.Writer, records []Record) error {
	switch e.Format {
	case FormatCSV:
		return EncodeCSV(w, records, e.MaxNeighbors, e.IncludeID)
	case FormatJSON:
		return EncodeJSON(w, records, e.IncludeID)
	default:
		return fmt.Errorf("unsupported output format %q", e.Format)
	}
}

// EncodeCSV writes a header and one row per record. A NaN orientation is
// written as an empty field. Records are padded or cut to n neighbor slots.
func EncodeCSV(w io.Writer, records []Record, n int, includeID bool) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Columns(n, includeID)); err != nil {
		return err
	}
	for _, r := range records {
		if err := writer.Write(csvRow(r, n, includeID)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func csvRow(r Record, n int, includeID bool) []string {
	row := make([]string, 0, 12+2*n)
	if includeID {
		row = append(row, strconv.Itoa(r.Cell))
	}
	row = append(row,
		strconv.Itoa(r.T),
		strconv.Itoa(r.X),
		strconv.Itoa(r.Y),
		strconv.Itoa(r.Area),
		strconv.Itoa(r.MajorAxis),
		strconv.Itoa(r.MinorAxis),
		formatFloat(r.Orientation),
		strconv.Itoa(r.Perimeter),
		strconv.Itoa(r.Color[0]),
		strconv.Itoa(r.Color[1]),
		strconv.Itoa(r.Color[2]),
	)
	ids := make([]string, n)
	counts := make([]string, n)
	for i := range n {
		nb := NoNeighbor
		if i < len(r.Neighbors) {
			nb = r.Neighbors[i]
		}
		ids[i] = strconv.Itoa(nb.ID)
		counts[i] = strconv.Itoa(nb.ContactPoints)
	}
	row = append(row, ids...)
	return append(row, counts...)
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

type jsonRecord struct {
	ID        *int       `json:"id,omitempty"`
	T         int        `json:"t"`
	X         int        `json:"x"`
	Y         int        `json:"y"`
	A         int        `json:"A"`
	L1        int        `json:"l1"`
	L2        int        `json:"l2"`
	Theta     *float64   `json:"theta"`
	P         int        `json:"P"`
	Color     [3]int     `json:"color"`
	Neighbors []Neighbor `json:"neighbors"`
}

// EncodeJSON writes records as a JSON array. A NaN orientation is null.
func EncodeJSON(w io.Writer, records []Record, includeID bool) error {
	out := make([]jsonRecord, 0, len(records))
	for _, r := range records {
		jr := jsonRecord{
			T: r.T, X: r.X, Y: r.Y,
			A: r.Area, L1: r.MajorAxis, L2: r.MinorAxis,
			P: r.Perimeter, Color: r.Color, Neighbors: r.Neighbors,
		}
		if includeID {
			id := r.Cell
			jr.ID = &id
		}
		if !math.IsNaN(r.Orientation) && !math.IsInf(r.Orientation, 0) {
			theta := r.Orientation
			jr.Theta = &theta
		}
		out = append(out, jr)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
