// Package crs models coordinate reference system identifiers as they appear in
// OGC API documents: classification by syntax family, grammar validation and
// extraction of the SRID and authority-qualified code.
package crs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultCRS is the 2D default CRS (WGS 84 longitude/latitude).
	DefaultCRS = "http://www.opengis.net/def/crs/OGC/1.3/CRS84"
	// DefaultCRS3D is the 3D default CRS (WGS 84 longitude/latitude/ellipsoidal height).
	DefaultCRS3D = "http://www.opengis.net/def/crs/OGC/0/CRS84h"

	defaultSRID          = 84
	defaultCodeAuthority = "OGC:CRS84"

	ogcURNPrefix   = "urn:ogc:def:crs:"
	ogcHTTPPrefix  = "http://www.opengis.net/def/crs/"
	ogcHTTPSPrefix = "https://www.opengis.net/def/crs/"
	urnPrefix      = "urn:"
	httpPrefix     = "http:"
	httpsPrefix    = "https:"
	authorityEPSG  = "EPSG"
)

// BackReference is the crs list entry that stands for the global list of the
// enclosing collections document.
const BackReference = "#/crs"

// ErrUnsupported marks identifiers this package cannot interpret. Callers treat
// it as inconclusive rather than as proof of invalidity.
var ErrUnsupported = errors.New("crs unsupported")

// Family is the syntax family an identifier was classified into.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyHTTPURI
	FamilyHTTPSURI
	FamilyGenericURN
	FamilyOGCURN
	FamilyOGCHTTPURI
)

func (f Family) String() string {
	switch f {
	case FamilyHTTPURI:
		return "http-uri"
	case FamilyHTTPSURI:
		return "https-uri"
	case FamilyGenericURN:
		return "urn"
	case FamilyOGCURN:
		return "ogc-urn"
	case FamilyOGCHTTPURI:
		return "ogc-http-uri"
	default:
		return "unknown"
	}
}

// Classify picks the most specific family whose prefix matches code.
func Classify(code string) Family {
	switch {
	case code == "":
		return FamilyUnknown
	case strings.HasPrefix(code, ogcURNPrefix):
		return FamilyOGCURN
	case strings.HasPrefix(code, ogcHTTPPrefix), strings.HasPrefix(code, ogcHTTPSPrefix):
		return FamilyOGCHTTPURI
	case strings.HasPrefix(code, urnPrefix):
		return FamilyGenericURN
	case strings.HasPrefix(code, httpPrefix):
		return FamilyHTTPURI
	case strings.HasPrefix(code, httpsPrefix):
		return FamilyHTTPSURI
	default:
		return FamilyUnknown
	}
}

// CoordinateSystem wraps a raw CRS identifier. Two values are equal only when
// their identifiers are byte-identical.
type CoordinateSystem struct {
	code string
}

func New(code string) CoordinateSystem {
	return CoordinateSystem{code: code}
}

// Defaults returns the two default CRSs in preference order.
func Defaults() []CoordinateSystem {
	return []CoordinateSystem{New(DefaultCRS), New(DefaultCRS3D)}
}

func (c CoordinateSystem) Code() string   { return c.code }
func (c CoordinateSystem) String() string { return c.code }
func (c CoordinateSystem) Family() Family { return Classify(c.code) }

// IsDefault reports whether c is one of the two default CRSs.
func (c CoordinateSystem) IsDefault() bool {
	return c.code == DefaultCRS || c.code == DefaultCRS3D
}

// IsBackReference reports whether c is the "#/crs" shorthand that points at the
// global CRS list of the enclosing collections document.
func (c CoordinateSystem) IsBackReference() bool {
	return c.code == BackReference
}

// IsValid reports whether the identifier passes its family's grammar.
func (c CoordinateSystem) IsValid() bool {
	return Validate(c.code) == nil
}

// Srid returns the numeric spatial reference id.
func (c CoordinateSystem) Srid() (int, error) {
	if c.IsDefault() {
		return defaultSRID, nil
	}
	var tail string
	switch c.Family() {
	case FamilyOGCHTTPURI:
		tail = c.code[strings.LastIndex(c.code, "/")+1:]
	case FamilyOGCURN:
		tail = c.code[strings.LastIndex(c.code, ":")+1:]
	default:
		return 0, fmt.Errorf("%w: no srid for %s identifier %q", ErrUnsupported, c.Family(), c.code)
	}
	n, err := strconv.Atoi(tail)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: srid %q of %q is not a positive integer", ErrUnsupported, tail, c.code)
	}
	return n, nil
}

// CodeWithAuthority returns the identifier as AUTHORITY:CODE.
func (c CoordinateSystem) CodeWithAuthority() (string, error) {
	if c.IsDefault() {
		return defaultCodeAuthority, nil
	}
	if c.authority() != authorityEPSG {
		return "", fmt.Errorf("%w: authority of %q is not %s", ErrUnsupported, c.code, authorityEPSG)
	}
	srid, err := c.Srid()
	if err != nil {
		return "", err
	}
	return authorityEPSG + ":" + strconv.Itoa(srid), nil
}

// authority returns the authority component of OGC identifiers, "" otherwise.
func (c CoordinateSystem) authority() string {
	var rest, sep string
	switch c.Family() {
	case FamilyOGCURN:
		rest, sep = strings.TrimPrefix(c.code, ogcURNPrefix), ":"
	case FamilyOGCHTTPURI:
		rest = strings.TrimPrefix(c.code, ogcHTTPPrefix)
		rest, sep = strings.TrimPrefix(rest, ogcHTTPSPrefix), "/"
	default:
		return ""
	}
	auth, _, _ := strings.Cut(rest, sep)
	return auth
}
