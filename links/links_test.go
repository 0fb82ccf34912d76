package links

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAcceptedReportLink(t *testing.T) {
	tests := []struct {
		link string
		want bool
	}{
		{"https://drive.google.com/file/d/abc123/view?usp=sharing", true},
		{"https://docs.google.com/document/d/xyz/edit", true},
		{"  https://DRIVE.google.com/open?id=abc  ", true},
		{"http://drive.google.com/file/d/abc/view", false},
		{"https://dropbox.com/s/abc/report.pdf", false},
		{"https://drive.google.com.evil.io/file/d/abc", false},
		{"drive.google.com/file/d/abc", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsAcceptedReportLink(tt.link), tt.link)
	}
}

func TestIsHTTPURL(t *testing.T) {
	assert.True(t, IsHTTPURL("https://github.com/team/repo"))
	assert.True(t, IsHTTPURL("http://gitlab.local/x"))
	assert.False(t, IsHTTPURL("github.com/team/repo"))
	assert.False(t, IsHTTPURL("ftp://host/file"))
}

func TestDirectDownloadURL(t *testing.T) {
	tests := map[string]string{
		"https://drive.google.com/file/d/1AbC-_9/view?usp=sharing": "https://drive.google.com/uc?export=download&id=1AbC-_9",
		"https://drive.google.com/file/d/1AbC/preview":             "https://drive.google.com/uc?export=download&id=1AbC",
		"https://drive.google.com/open?id=XYZ":                     "https://drive.google.com/uc?export=download&id=XYZ",
		"https://drive.google.com/drive/folders/abc":               "https://drive.google.com/drive/folders/abc",
		"https://docs.google.com/document/d/xyz/edit":              "https://docs.google.com/document/d/xyz/edit",
		"https://example.com/report.pdf":                           "https://example.com/report.pdf",
	}
	for in, want := range tests {
		assert.Equal(t, want, DirectDownloadURL(in), in)
	}
}
