package middleware

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/tables"
)

// Input validation and sanitization utilities

// MaxUploadBytes caps one uploaded table
const MaxUploadBytes = 64 << 20

var uploadExt = map[string]bool{".csv": true, ".txt": true, ".tsv": true}

// ValidateReportID checks the id is a UUID as generated by the analyses
func ValidateReportID(id string) error {
	if id == "" {
		return fmt.Errorf("report ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid report ID format")
	}
	return nil
}

// ValidateUpload checks the file name and size of an uploaded table
func ValidateUpload(filename string, size int64) error {
	name := SanitizeString(filename)
	if name == "" {
		return fmt.Errorf("file name cannot be empty")
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid characters in file name")
	}
	if ext := strings.ToLower(filepath.Ext(name)); !uploadExt[ext] {
		return fmt.Errorf("unsupported file type %q (allowed: .csv, .txt, .tsv)", ext)
	}
	if size <= 0 {
		return fmt.Errorf("file %s is empty", name)
	}
	if size > MaxUploadBytes {
		return fmt.Errorf("file %s exceeds %d MiB", name, MaxUploadBytes>>20)
	}
	return nil
}

// ParseDateRange reads optional YYYY-MM-DD bounds; nil when both are empty
func ParseDateRange(start, end string) (*tables.DateRange, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" && end == "" {
		return nil, nil
	}
	r := &tables.DateRange{}
	var err error
	if start != "" {
		if r.Start, err = time.Parse(time.DateOnly, start); err != nil {
			return nil, fmt.Errorf("invalid start_date %q (expected YYYY-MM-DD)", start)
		}
	}
	if end != "" {
		if r.End, err = time.Parse(time.DateOnly, end); err != nil {
			return nil, fmt.Errorf("invalid end_date %q (expected YYYY-MM-DD)", end)
		}
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return nil, fmt.Errorf("end_date must not be before start_date")
	}
	return r, nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}
