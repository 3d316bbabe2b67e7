package crs

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// RFC 3986 character classes, without IPv6 literal parsing.
const (
	uriAuthority = `[A-Za-z0-9\-._~%!$&'()*+,;=:@\[\]]+`
	uriPath      = `(/[A-Za-z0-9\-._~%!$&'()*+,;=:@/]*)?`
	uriQuery     = `(\?[A-Za-z0-9\-._~%!$&'()*+,;=:@/?]*)?`
	uriFragment  = `(#[A-Za-z0-9\-._~%!$&'()*+,;=:@/?]*)?`

	// OGC Name Type Specification tokens
	ogcAuthority = `[A-Za-z][A-Za-z0-9._-]*`
	ogcVersion   = `[A-Za-z0-9._-]+`
	ogcCode      = `[A-Za-z0-9._-]+`
)

var (
	httpURIPattern  = regexp.MustCompile(`^http://` + uriAuthority + uriPath + uriQuery + uriFragment + `$`)
	httpsURIPattern = regexp.MustCompile(`^https://` + uriAuthority + uriPath + uriQuery + uriFragment + `$`)

	// RFC 8141: "urn:" NID ":" NSS, NID is 2..32 chars and may not be "urn"
	urnPattern = regexp.MustCompile(`(?i)^urn:([a-z0-9][a-z0-9-]{0,30}[a-z0-9]):([a-z0-9()+,\-.:=@;$_!*'%/?#]+)$`)

	ogcHTTPPattern = regexp.MustCompile(`^https?://www\.opengis\.net/def/crs/(` + ogcAuthority + `)/(` + ogcVersion + `)/(` + ogcCode + `)$`)
	// the version component may be empty, e.g. urn:ogc:def:crs:EPSG::4326
	ogcURNPattern = regexp.MustCompile(`^urn:ogc:def:crs:(` + ogcAuthority + `):(` + ogcVersion + `)?:(` + ogcCode + `)$`)
)

// Validate checks code against the grammar of the family it classifies into.
func Validate(code string) error {
	fam := Classify(code)
	switch fam {
	case FamilyOGCHTTPURI:
		return validateOGCName(code, ogcHTTPPattern)
	case FamilyOGCURN:
		return validateOGCName(code, ogcURNPattern)
	case FamilyGenericURN:
		return validateURN(code)
	case FamilyHTTPURI:
		return validateHTTPURI(code, "http", httpURIPattern)
	case FamilyHTTPSURI:
		return validateHTTPURI(code, "https", httpsURIPattern)
	default:
		if code == "" {
			return fmt.Errorf("crs identifier is empty")
		}
		return fmt.Errorf("crs identifier %q is neither an http(s) URI nor a URN", code)
	}
}

func validateHTTPURI(code, scheme string, re *regexp.Regexp) error {
	if !re.MatchString(code) {
		return fmt.Errorf("crs identifier %q is not a valid %s URI", code, scheme)
	}
	u, err := url.Parse(code)
	if err != nil {
		return fmt.Errorf("crs identifier %q: parse %s URI: %w", code, scheme, err)
	}
	if u.Host == "" {
		return fmt.Errorf("crs identifier %q has no host", code)
	}
	return nil
}

func validateURN(code string) error {
	m := urnPattern.FindStringSubmatch(code)
	if m == nil {
		return fmt.Errorf("crs identifier %q is not a valid URN", code)
	}
	if strings.EqualFold(m[1], "urn") {
		return fmt.Errorf("crs identifier %q uses the reserved namespace id %q", code, m[1])
	}
	return nil
}

func validateOGCName(code string, re *regexp.Regexp) error {
	if !re.MatchString(code) {
		return fmt.Errorf("crs identifier %q does not follow the OGC name type specification (authority, version, code)", code)
	}
	return nil
}
