package document

import (
	"math"
	"net/url"
	"strconv"

	"github.com/fractree/fractree/internal/engine"
)

// Query keys understood by FromQuery and produced by Query.
const (
	KeyName   = "name"
	KeyWidth  = "w"
	KeyMode   = "mode"
	KeyPoints = "points"

	PointsVisible = "visible"
	PointsHidden  = "hidden"
)

// coordKeys lists the x/y keys for each role in role order.
var coordKeys = [engine.NumPoints][2]string{
	{"x0", "y0"},
	{"x1", "y1"},
	{"x2", "y2"},
	{"x3", "y3"},
}

// FromQuery overrides fields of base with the values found in q.
// Missing, non-numeric or non-finite values leave the base value in place.
func FromQuery(q url.Values, base TreeDocument) TreeDocument {
	d := base

	if q.Has(KeyName) {
		d.Name = q.Get(KeyName)
	}
	if w, ok := parseFloat(q, KeyWidth); ok && w > 0 {
		d.BranchWidth = w
	}
	if m, err := engine.ParseMode(q.Get(KeyMode)); err == nil {
		d.Mode = m
	}
	switch q.Get(KeyPoints) {
	case PointsVisible:
		d.ShowPoints = true
	case PointsHidden:
		d.ShowPoints = false
	}

	for i, p := range d.Points.ptrs() {
		if x, ok := parseFloat(q, coordKeys[i][0]); ok {
			p.X = x
		}
		if y, ok := parseFloat(q, coordKeys[i][1]); ok {
			p.Y = y
		}
	}
	return d
}

// ParseQuery parses a raw query string on top of the default document.
func ParseQuery(raw string) (TreeDocument, error) {
	q, err := url.ParseQuery(raw)
	if err != nil {
		return TreeDocument{}, err
	}
	return FromQuery(q, NewDefaultDocument()), nil
}

// Query serializes the document to the same key set FromQuery reads.
func (d TreeDocument) Query() url.Values {
	q := url.Values{}
	if d.Name != "" {
		q.Set(KeyName, d.Name)
	}
	q.Set(KeyWidth, formatFloat(d.BranchWidth))
	q.Set(KeyMode, d.Mode.String())
	if d.ShowPoints {
		q.Set(KeyPoints, PointsVisible)
	} else {
		q.Set(KeyPoints, PointsHidden)
	}
	for i, v := range d.Points.slice() {
		q.Set(coordKeys[i][0], formatFloat(v.X))
		q.Set(coordKeys[i][1], formatFloat(v.Y))
	}
	return q
}

// Encode returns the URL-encoded query string for sharing.
func (d TreeDocument) Encode() string {
	return d.Query().Encode()
}

func parseFloat(q url.Values, key string) (float64, bool) {
	if !q.Has(key) {
		return 0, false
	}
	v, err := strconv.ParseFloat(q.Get(key), 64)
	if err != nil || !finite(v) {
		return 0, false
	}
	return v, true
}

// formatFloat uses the shortest representation that parses back exactly.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
