package tle

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Parse reads 3-line NORAD TLE format from r and returns parsed element
// sets. Bare 2-line entries (no name line) are accepted with the name
// "UNKNOWN". Malformed entries are skipped with a warning log.
func Parse(r io.Reader, logger *slog.Logger) ([]ElementSet, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading TLE data: %w", err)
	}

	var sets []ElementSet
	for i := 0; i < len(lines); {
		name := "UNKNOWN"
		j := i
		if !strings.HasPrefix(lines[i], "1 ") {
			name = strings.TrimSpace(lines[i])
			j = i + 1
		}
		if j+1 >= len(lines) || !strings.HasPrefix(lines[j], "1 ") || !strings.HasPrefix(lines[j+1], "2 ") {
			logger.Warn("skipping malformed TLE entry", "line_index", i, "name", name)
			i++
			continue
		}
		line1, line2 := lines[j], lines[j+1]

		set, err := NewElementSet(name, line1, line2)
		if err != nil {
			logger.Warn("skipping TLE entry", "name", name, "error", err)
			i = j + 2
			continue
		}
		sets = append(sets, set)
		i = j + 2
	}

	return sets, nil
}

// NewElementSet extracts the NORAD ID and epoch from line1 and builds the
// element set.
func NewElementSet(name, line1, line2 string) (ElementSet, error) {
	// NORAD ID is line1 cols 3-7 (0-indexed: 2..7).
	if len(line1) < 32 {
		return ElementSet{}, fmt.Errorf("line1 too short: %d chars", len(line1))
	}
	noradID, err := strconv.Atoi(strings.TrimSpace(line1[2:7]))
	if err != nil {
		return ElementSet{}, fmt.Errorf("invalid NORAD ID %q", line1[2:7])
	}

	// Epoch is line1 cols 19-32 (0-indexed: 18..32) in YYDDD.DDDDDDDD.
	epoch, err := parseEpoch(strings.TrimSpace(line1[18:32]))
	if err != nil {
		return ElementSet{}, fmt.Errorf("invalid epoch: %w", err)
	}

	return ElementSet{
		NoradID: noradID,
		Name:    strings.TrimSpace(name),
		Epoch:   epoch,
		Line1:   line1,
		Line2:   line2,
	}, nil
}

// parseEpoch converts a TLE epoch string in YYDDD.DDDDDDDD format to
// time.Time. Year 00-56 → 2000s, 57-99 → 1900s.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch string too short: %q", s)
	}

	year, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year %q: %w", s[:2], err)
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	dayOfYear, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day %q: %w", s[2:], err)
	}

	// Day-of-year is 1-based: day 1 = Jan 1.
	t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return t.Add(time.Duration((dayOfYear - 1) * float64(24*time.Hour))), nil
}
