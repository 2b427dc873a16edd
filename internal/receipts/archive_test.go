package receipts

import (
	"strings"
	"testing"
	"time"
)

func TestObjectName(t *testing.T) {
	at := time.Date(2026, time.March, 7, 23, 59, 0, 0, time.UTC)

	tests := []struct {
		mime string
		want string
	}{
		{"image/jpeg", "receipts/2026/03/07/abc.jpg"},
		{"", "receipts/2026/03/07/abc.jpg"},
		{"image/png", "receipts/2026/03/07/abc.png"},
		{"image/webp", "receipts/2026/03/07/abc.webp"},
	}
	for _, tt := range tests {
		if got := ObjectName(at, "abc", tt.mime); got != tt.want {
			t.Errorf("ObjectName(%q) = %q, want %q", tt.mime, got, tt.want)
		}
	}
}

func TestObjectNameNoLeadingSlash(t *testing.T) {
	got := ObjectName(time.Now(), "id", "image/jpeg")
	if strings.HasPrefix(got, "/") {
		t.Errorf("object name %q must be relative to the bucket", got)
	}
}
