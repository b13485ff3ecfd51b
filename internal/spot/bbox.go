package spot

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidBBox is returned for a malformed bounding box.
var ErrInvalidBBox = errors.New("bbox must be minLng,minLat,maxLng,maxLat")

// BBox is a geographic bounding box.
type BBox struct {
	MinLng, MinLat, MaxLng, MaxLat float64
}

// ParseBBox parses "minLng,minLat,maxLng,maxLat".
func ParseBBox(v string) (BBox, error) {
	parts := strings.Split(v, ",")
	if len(parts) != 4 {
		return BBox{}, ErrInvalidBBox
	}

	var vals [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return BBox{}, ErrInvalidBBox
		}
		vals[i] = f
	}

	b := BBox{MinLng: vals[0], MinLat: vals[1], MaxLng: vals[2], MaxLat: vals[3]}
	if b.MinLng > b.MaxLng || b.MinLat > b.MaxLat ||
		b.MinLat < -90 || b.MaxLat > 90 || b.MinLng < -180 || b.MaxLng > 180 {
		return BBox{}, ErrInvalidBBox
	}
	return b, nil
}
