package crscheck

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mohammed-shakir/ogcapi-features-ets/pkg/crs"
	"github.com/mohammed-shakir/ogcapi-features-ets/pkg/verdict"
)

// HeaderContentCrs is the response header naming the CRS of the returned geometries.
const HeaderContentCrs = "Content-Crs"

var (
	ErrMissingContentCrs   = errors.New("Content-Crs header is missing")
	ErrMalformedContentCrs = errors.New("Content-Crs header is malformed")
)

// ParseContentCrs extracts the identifier from a header value of the form
// "<uri>".
func ParseContentCrs(header string) (string, error) {
	v := strings.TrimSpace(header)
	if v == "" {
		return "", ErrMissingContentCrs
	}
	if !strings.HasPrefix(v, "<") || !strings.HasSuffix(v, ">") {
		return "", fmt.Errorf("%w: %q is not enclosed in angle brackets", ErrMalformedContentCrs, header)
	}
	code := strings.TrimSpace(v[1 : len(v)-1])
	if code == "" {
		return "", fmt.Errorf("%w: %q is empty", ErrMalformedContentCrs, header)
	}
	return code, nil
}

// CheckContentCrs requires the header to name exactly the expected CRS.
func CheckContentCrs(header string, expected crs.CoordinateSystem) verdict.Result {
	code, err := ParseContentCrs(header)
	if err != nil {
		return verdict.Failf("expected %s %q: %v", HeaderContentCrs, expected.Code(), err)
	}
	if code != expected.Code() {
		return verdict.Failf("%s is %q, expected %q", HeaderContentCrs, code, expected.Code())
	}
	return verdict.Pass()
}
