package h3mapper

import (
	"errors"
	"fmt"
	"math"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/model"
	"github.com/mohammed-shakir/ogcapi-features-ets/pkg/crs"
)

// sample positions inside the extent, as fractions of its width and height
var samples = [][2]float64{
	{0.5, 0.5},
	{0.25, 0.25},
	{0.75, 0.75},
	{0.25, 0.75},
	{0.75, 0.25},
}

type Mapper struct {
	res int
}

func New(res int) (*Mapper, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	return &Mapper{res: res}, nil
}

// ProbeBBoxes samples points of extent, maps each to its H3 cell and returns
// the bounding boxes of the distinct cells. Extents crossing the antimeridian
// (X1 > X2) are sampled across it.
func (m *Mapper) ProbeBBoxes(extent model.BBox, n int) ([]model.BBox, error) {
	if n <= 0 {
		return nil, nil
	}
	if extent.Y1 > extent.Y2 || extent.Y1 < -90 || extent.Y2 > 90 {
		return nil, fmt.Errorf("invalid extent latitudes %v", extent)
	}
	if extent.SRID != "" && extent.SRID != crs.DefaultCRS && extent.SRID != crs.DefaultCRS3D {
		return nil, fmt.Errorf("%w: extent in %s", crs.ErrUnsupported, extent.SRID)
	}
	width := extent.X2 - extent.X1
	if width < 0 {
		width += 360
	}

	seen := map[h3.Cell]struct{}{}
	var out []model.BBox
	for _, s := range samples {
		if len(out) == n {
			break
		}
		lon := normalizeLon(extent.X1 + s[0]*width)
		lat := extent.Y1 + s[1]*(extent.Y2-extent.Y1)
		cell, err := h3.LatLngToCell(h3.LatLng{Lat: lat, Lng: lon}, m.res)
		if err != nil {
			return nil, fmt.Errorf("h3 cell for %f,%f: %w", lon, lat, err)
		}
		if _, dup := seen[cell]; dup {
			continue
		}
		seen[cell] = struct{}{}
		bb, err := cellBBox(cell)
		if errors.Is(err, errCrossesAntimeridian) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, bb)
	}
	return out, nil
}

var errCrossesAntimeridian = errors.New("cell crosses the antimeridian")

func cellBBox(c h3.Cell) (model.BBox, error) {
	boundary, err := c.Boundary()
	if err != nil {
		return model.BBox{}, fmt.Errorf("h3 boundary of %s: %w", c, err)
	}
	if len(boundary) == 0 {
		return model.BBox{}, fmt.Errorf("h3 boundary of %s is empty", c)
	}
	bb := model.BBox{
		X1: math.Inf(1), Y1: math.Inf(1),
		X2: math.Inf(-1), Y2: math.Inf(-1),
		SRID: crs.DefaultCRS,
	}
	for _, v := range boundary {
		bb.X1 = math.Min(bb.X1, v.Lng)
		bb.X2 = math.Max(bb.X2, v.Lng)
		bb.Y1 = math.Min(bb.Y1, v.Lat)
		bb.Y2 = math.Max(bb.Y2, v.Lat)
	}
	if bb.X2-bb.X1 > 180 {
		return model.BBox{}, errCrossesAntimeridian
	}
	return bb, nil
}

func normalizeLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}
