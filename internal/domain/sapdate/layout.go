package sapdate

import (
	"sort"
	"strings"
	"time"
)

var directives = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'H': "15",
	'M': "04",
	'S': "05",
	'b': "Jan",
	'B': "January",
	'a': "Mon",
	'A': "Monday",
	'p': "PM",
	'%': "%",
}

// Layout translates a strftime style format ("%Y-%m-%d") into a Go layout.
// Unknown directives are kept literally.
func Layout(format string) string {
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		if format[i] == '%' && i+1 < len(format) {
			if l, ok := directives[format[i+1]]; ok {
				b.WriteString(l)
				i++
				continue
			}
		}
		b.WriteByte(format[i])
	}
	return b.String()
}

// MonthCount is one bucket of a monthly timeline.
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// Month returns the YYYY-MM bucket of t.
func Month(t time.Time) string { return t.Format("2006-01") }

// Timeline turns month buckets into a chronologically sorted slice.
func Timeline(buckets map[string]int) []MonthCount {
	out := make([]MonthCount, 0, len(buckets))
	for m, n := range buckets {
		out = append(out, MonthCount{Month: m, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}
