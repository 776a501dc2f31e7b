package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestValidateReportID(t *testing.T) {
	if err := ValidateReportID("7f2c1f0e-3a5b-4c6d-8e9f-0a1b2c3d4e5f"); err != nil {
		t.Fatalf("valid uuid rejected: %v", err)
	}
	for _, id := range []string{"", "abc", "../etc/passwd"} {
		if ValidateReportID(id) == nil {
			t.Fatalf("expected %q to be rejected", id)
		}
	}
}

func TestValidateUpload(t *testing.T) {
	cases := []struct {
		name string
		size int64
		ok   bool
	}{
		{"usr02.csv", 10, true},
		{"UST12.TXT", 10, true},
		{"usr02.xlsx", 10, false},
		{"../usr02.csv", 10, false},
		{"usr02.csv", 0, false},
		{"usr02.csv", MaxUploadBytes + 1, false},
		{"", 10, false},
	}
	for _, c := range cases {
		if err := ValidateUpload(c.name, c.size); (err == nil) != c.ok {
			t.Fatalf("%q size=%d: got err=%v want ok=%v", c.name, c.size, err, c.ok)
		}
	}
}

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange("", "")
	if err != nil || r != nil {
		t.Fatalf("empty bounds must give nil range: %v %v", r, err)
	}
	r, err = ParseDateRange("2024-01-01", "")
	if err != nil || !r.Start.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) || !r.End.IsZero() {
		t.Fatalf("unexpected range %+v err=%v", r, err)
	}
	if _, err := ParseDateRange("2024-02-01", "2024-01-01"); err == nil {
		t.Fatalf("reversed range must fail")
	}
	if _, err := ParseDateRange("01.02.2024", ""); err == nil {
		t.Fatalf("bad format must fail")
	}
}

func TestSanitizeAndLimit(t *testing.T) {
	if got := SanitizeString(" a\x00b\x07c "); got != "abc" {
		t.Fatalf("sanitize: %q", got)
	}
	if ValidateLimit(0) != 20 || ValidateLimit(500) != 100 || ValidateLimit(5) != 5 {
		t.Fatalf("limit clamping")
	}
}

func TestRateLimitByIP(t *testing.T) {
	h := RateLimitMiddleware(1, 0)(httpOK{})
	req := httptest.NewRequest("GET", "/v1/failures", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("first request must pass, got %d", rec.Code)
	}
	req.RemoteAddr = "10.0.0.1:5678"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != 429 {
		t.Fatalf("same ip on another port must be limited, got %d", rec.Code)
	}

	probe := httptest.NewRequest("GET", "/live", nil)
	probe.RemoteAddr = "10.0.0.1:1"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, probe)
	if rec.Code != 200 {
		t.Fatalf("probes are never limited, got %d", rec.Code)
	}
}

type httpOK struct{}

func (httpOK) ServeHTTP(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
