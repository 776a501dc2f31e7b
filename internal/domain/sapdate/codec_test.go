package sapdate

import (
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	c := Default()
	cases := []struct {
		raw     string
		want    string
		wantErr error
	}{
		{"20200115", "2020-01-15", nil},
		{"20200101.0", "2020-01-01", nil},
		{"2.0200101E7", "2020-01-01", nil},
		{" 20231231 ", "2023-12-31", nil},
		{"2021-03-04", "2021-03-04", nil},
		{"04.03.2021", "2021-03-04", nil},
		{"20201301", "", ErrUnparseable},
		{"20200230", "", ErrUnparseable},
		{"00000000", "", ErrBlank},
		{"", "", ErrBlank},
		{"nan", "", ErrBlank},
		{"NaT", "", ErrBlank},
		{"garbage", "", ErrUnparseable},
	}
	for _, tc := range cases {
		got, err := c.ParseDate(tc.raw)
		if tc.wantErr != nil {
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("ParseDate(%q) err=%v want %v", tc.raw, err, tc.wantErr)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseDate(%q) unexpected err: %v", tc.raw, err)
		}
		if s := got.Format("2006-01-02"); s != tc.want {
			t.Fatalf("ParseDate(%q)=%s want %s", tc.raw, s, tc.want)
		}
	}
}

func TestFormatTimePadsShortValues(t *testing.T) {
	c := Default()
	cases := map[string]string{
		"93015":   "09:30:15",
		"93015.0": "09:30:15",
		"235959":  "23:59:59",
		"000000":  "",
		"0":       "",
		"":        "",
		"12:00:01": "12:00:01",
	}
	for raw, want := range cases {
		if got := c.FormatTime(raw); got != want {
			t.Fatalf("FormatTime(%q)=%q want %q", raw, got, want)
		}
	}
}

func TestFormatDateKeepsUnparseableText(t *testing.T) {
	c := Default()
	if got := c.FormatDate("20201301"); got != "20201301" {
		t.Fatalf("got %q", got)
	}
	if got := c.FormatDate("nan"); got != "" {
		t.Fatalf("blank should render empty, got %q", got)
	}
}

func TestFormatDateTime(t *testing.T) {
	c := Default()
	cases := []struct {
		date, clock, want string
	}{
		{"20240105", "081500", "2024-01-05 08:15:00"},
		{"20240105", "000000", "2024-01-05 at unknown time"},
		{"", "081500", "Unknown date at 08:15:00"},
		{"00000000", "", "Not available"},
	}
	for _, tc := range cases {
		if got := c.FormatDateTime(tc.date, tc.clock); got != tc.want {
			t.Fatalf("FormatDateTime(%q,%q)=%q want %q", tc.date, tc.clock, got, tc.want)
		}
	}
}

func TestIsExpired(t *testing.T) {
	c := Default()
	today := time.Date(2024, 6, 15, 13, 0, 0, 0, time.UTC)
	cases := map[string]bool{
		"20240614": true,
		"20240615": false,
		"20240616": false,
		"99991231": false,
		"29991231": false,
		"":         false,
		"bogus":    false,
		"20241301": false,
	}
	for raw, want := range cases {
		if got := c.IsExpired(raw, today); got != want {
			t.Fatalf("IsExpired(%q)=%v want %v", raw, got, want)
		}
	}
}

func TestCustomOutputFormat(t *testing.T) {
	c := NewCodec(Formats{DateOutput: "%d.%m.%Y"})
	if got := c.FormatDate("20240105"); got != "05.01.2024" {
		t.Fatalf("got %q", got)
	}
}

func TestLayout(t *testing.T) {
	if got := Layout("%Y-%m-%d %H:%M:%S"); got != "2006-01-02 15:04:05" {
		t.Fatalf("got %q", got)
	}
	if got := Layout("100%%"); got != "100%" {
		t.Fatalf("got %q", got)
	}
}

func TestTimelineSorted(t *testing.T) {
	got := Timeline(map[string]int{"2024-03": 1, "2023-12": 4, "2024-01": 2})
	if len(got) != 3 || got[0].Month != "2023-12" || got[2].Month != "2024-03" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestZeroCodecFallsBackToDefault(t *testing.T) {
	var zero Codec
	if !zero.IsZero() || Default().IsZero() {
		t.Fatalf("IsZero mismatch")
	}
	d, err := zero.OrDefault().ParseDate("20240131")
	if err != nil || d.Day() != 31 {
		t.Fatalf("ParseDate through OrDefault: %v %v", d, err)
	}
	custom := NewCodec(Formats{DateOutput: "%d.%m.%Y"})
	if custom.OrDefault() != custom {
		t.Fatalf("a configured codec must be kept")
	}
}
