// Package mapper derives bbox query probes from a collection's spatial extent.
package mapper

import (
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/model"
)

type Interface interface {
	// ProbeBBoxes returns up to n small boxes inside extent, in lon/lat degrees.
	ProbeBBoxes(extent model.BBox, n int) ([]model.BBox, error)
}
