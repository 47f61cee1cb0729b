package feeds

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/web3guy0/xylbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// CSV LOADER - Bar files for replay
// ═══════════════════════════════════════════════════════════════════════════════
//
// Header names are case-insensitive. Required: time, open, high, low, close,
// volume. Optional: ask_volume, bid_volume, symbol.
// Sierra Chart exports ("Date, Time, Open, High, Low, Last, Volume,
// AskVolume, BidVolume") are accepted too.
//
// ═══════════════════════════════════════════════════════════════════════════════

var columnAliases = map[string]string{
	"time":       "time",
	"timestamp":  "time",
	"datetime":   "time",
	"date":       "date",
	"open":       "open",
	"high":       "high",
	"low":        "low",
	"close":      "close",
	"last":       "close",
	"volume":     "volume",
	"vol":        "volume",
	"ask_volume": "ask_volume",
	"askvolume":  "ask_volume",
	"bid_volume": "bid_volume",
	"bidvolume":  "bid_volume",
	"symbol":     "symbol",
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/1/2 15:04:05",
	"2006/01/02 15:04",
}

// LoadCSVFile reads a bar file from disk
func LoadCSVFile(path, defaultSymbol string, loc *time.Location) ([]types.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bars: %w", err)
	}
	defer f.Close()
	return LoadCSV(f, defaultSymbol, loc)
}

// LoadCSV parses bars and returns them sorted by (symbol, time).
// Timestamps without a zone are interpreted in loc.
func LoadCSV(r io.Reader, defaultSymbol string, loc *time.Location) ([]types.Bar, error) {
	if loc == nil {
		loc = time.UTC
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int)
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if name, ok := columnAliases[key]; ok {
			cols[name] = i
		}
	}
	for _, need := range []string{"open", "high", "low", "close", "volume"} {
		if _, ok := cols[need]; !ok {
			return nil, fmt.Errorf("missing column %q", need)
		}
	}
	_, hasTime := cols["time"]
	_, hasDate := cols["date"]
	if !hasTime && !hasDate {
		return nil, fmt.Errorf("missing column %q", "time")
	}

	var bars []types.Bar
	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		bar, err := parseRecord(rec, cols, hasDate && hasTime, defaultSymbol, loc)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, bar)
	}

	sort.SliceStable(bars, func(i, j int) bool {
		if bars[i].Symbol != bars[j].Symbol {
			return bars[i].Symbol < bars[j].Symbol
		}
		return bars[i].Time.Before(bars[j].Time)
	})
	return bars, nil
}

func parseRecord(rec []string, cols map[string]int, splitDateTime bool, defaultSymbol string, loc *time.Location) (types.Bar, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	num := func(name string) (float64, error) {
		s := field(name)
		if s == "" {
			return 0, nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
		return v, nil
	}

	stamp := field("time")
	if splitDateTime {
		stamp = field("date") + " " + stamp
	} else if stamp == "" {
		stamp = field("date")
	}
	ts, err := parseTime(stamp, loc)
	if err != nil {
		return types.Bar{}, err
	}

	bar := types.Bar{Symbol: field("symbol"), Time: ts}
	if bar.Symbol == "" {
		bar.Symbol = defaultSymbol
	}
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"open", &bar.Open},
		{"high", &bar.High},
		{"low", &bar.Low},
		{"close", &bar.Close},
		{"volume", &bar.Volume},
		{"ask_volume", &bar.AskVolume},
		{"bid_volume", &bar.BidVolume},
	} {
		v, err := num(f.name)
		if err != nil {
			return types.Bar{}, err
		}
		*f.dst = v
	}
	return bar, nil
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		// seconds or milliseconds since epoch
		if n > 1e12 {
			return time.UnixMilli(n), nil
		}
		return time.Unix(n, 0), nil
	}
	for _, layout := range timeLayouts {
		if layout == time.RFC3339Nano {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
