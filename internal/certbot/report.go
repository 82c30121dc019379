package certbot

import (
	"bufio"
	"regexp"
	"strings"
	"time"

	"github.com/MrSnakeDoc/nginxlb/internal/domain"
)

// ExpiryLayout is the timestamp form certbot prints before the "(VALID: N days)" note.
const ExpiryLayout = "2006-01-02 15:04:05-07:00"

var (
	namePattern   = regexp.MustCompile(`^\s*Certificate Name:\s+(.*)$`)
	domainPattern = regexp.MustCompile(`^\s*Domains:\s+(.*)$`)
	expiryPattern = regexp.MustCompile(`^\s*Expiry Date:\s+(.*)$`)
	pathPattern   = regexp.MustCompile(`^\s*Certificate Path:\s+(.*)$`)

	expiryPrefix = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}[+-]\d{2}:\d{2})`)
)

// reportFields holds the raw labeled values scraped from a report.
type reportFields struct {
	name    string
	domains string
	expiry  string
	path    string
	seen    int
}

// ParseReport extracts a certificate record from the output of
// "certbot certificates". Labels may appear in any order; when a label
// repeats, the last value wins. It returns a miss reason instead of an error
// when the report does not describe a usable certificate.
//
// Labels are not grouped per certificate: if certbot lists several
// certificates matching the domain, the record mixes the last value of each
// label across them.
func ParseReport(output string) (*domain.CertificateRecord, domain.MissReason) {
	f := scanReport(output)
	if f.seen == 0 {
		return nil, domain.MissNoFields
	}

	expiry, ok := parseExpiry(f.expiry)
	if !ok {
		return nil, domain.MissBadExpiry
	}

	return &domain.CertificateRecord{
		Name:    f.name,
		Domains: f.domains,
		Expiry:  expiry,
		Path:    f.path,
	}, domain.MissNone
}

func scanReport(output string) reportFields {
	var f reportFields

	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		line := sc.Text()
		switch {
		case match(namePattern, line, &f.name):
			f.seen++
		case match(domainPattern, line, &f.domains):
			f.seen++
		case match(expiryPattern, line, &f.expiry):
			f.seen++
		case match(pathPattern, line, &f.path):
			// informational, does not count as a labeled field
		}
	}
	return f
}

func match(re *regexp.Regexp, line string, dst *string) bool {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	*dst = strings.TrimSpace(m[1])
	return true
}

// parseExpiry reads the leading timestamp and drops the descriptive rest.
func parseExpiry(raw string) (time.Time, bool) {
	m := expiryPrefix.FindStringSubmatch(raw)
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.Parse(ExpiryLayout, m[1])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
