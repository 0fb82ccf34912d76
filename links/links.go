// Package links validates report links and rewrites shared-document URLs into
// direct-download URLs.
package links

import (
	"net/url"
	"regexp"
	"strings"
)

// AcceptedReportHosts are the document hosts a report link may point at.
var AcceptedReportHosts = []string{"drive.google.com", "docs.google.com"}

var driveFilePath = regexp.MustCompile(`^/file/d/([A-Za-z0-9_-]+)`)

// IsAcceptedReportLink reports whether raw is an https URL on an accepted document host.
func IsAcceptedReportLink(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range AcceptedReportHosts {
		if host == h {
			return true
		}
	}
	return false
}

// IsHTTPURL reports whether raw is an absolute http or https URL.
func IsHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// DirectDownloadURL turns a Google Drive sharing link into a direct download link.
// Any other URL is returned unchanged.
func DirectDownloadURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	u, err := url.Parse(trimmed)
	if err != nil || !strings.EqualFold(u.Hostname(), "drive.google.com") {
		return trimmed
	}

	id := ""
	if m := driveFilePath.FindStringSubmatch(u.Path); m != nil {
		id = m[1]
	} else if u.Path == "/open" || u.Path == "/uc" {
		id = u.Query().Get("id")
	}
	if id == "" {
		return trimmed
	}
	return "https://drive.google.com/uc?export=download&id=" + url.QueryEscape(id)
}
