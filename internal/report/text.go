// Package report renders point time series as text tables and charts.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rkm/swathpoint/internal/swath"
)

// columnHeader is the second line of every text report.
const columnHeader = "yyyy mm dd hh mn ss time,days   %s\n"

// Row is one parsed line of a text report.
type Row struct {
	Time  time.Time
	Days  float64
	Value float64
}

// FileName returns the conventional report name, e.g.
// UVAI_TEMPO_20240801_20240802_Washington_038.9072N_077.0369W.txt.
func FileName(label string, start, end time.Time, site string, poi swath.Point) string {
	return fmt.Sprintf("%s_%s_%s_%s_%08.4fN_%08.4fW.txt",
		label, start.Format("20060102"), end.Format("20060102"), site, poi.Lat, -poi.Lon)
}

// WriteText writes s as a two-line header followed by one row per sample:
// date and time fields, fractional days since the series start, value, then
// the position and raw value of each corner of the located cell.
func WriteText(w io.Writer, label string, s *swath.Series) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "timeseries of %s at %s %08.4fN %08.4fW\n", label, s.Site, s.POI.Lat, -s.POI.Lon)
	fmt.Fprintf(bw, columnHeader, label)
	for _, smp := range s.Samples {
		t := smp.Time.UTC()
		fmt.Fprintf(bw, "%d %02d %02d %02d %02d %02d %9.6f %10.3e",
			t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second(), smp.DayOffset, smp.Value)
		for _, c := range smp.Corners {
			fmt.Fprintf(bw, " %9.4fN %9.4fW %10.3e", c.Lat, -c.Lon, c.Value)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// ReadText parses a report written by WriteText. Corner columns are ignored.
// Rows whose value is at or below noData are dropped.
func ReadText(r io.Reader, noData float64) ([]Row, error) {
	sc := bufio.NewScanner(r)
	var rows []Row
	line := 0
	for sc.Scan() {
		line++
		if line <= 2 {
			continue
		}
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		row, err := parseRow(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if row.Value > noData {
			rows = append(rows, row)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

func parseRow(text string) (Row, error) {
	fields := strings.Fields(text)
	if len(fields) < 8 {
		return Row{}, fmt.Errorf("want 8 fields, got %d", len(fields))
	}

	var parts [6]int
	for i := range parts {
		v, err := strconv.Atoi(fields[i])
		if err != nil {
			return Row{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		parts[i] = v
	}
	days, err := strconv.ParseFloat(fields[6], 64)
	if err != nil {
		return Row{}, fmt.Errorf("days: %w", err)
	}
	value, err := strconv.ParseFloat(fields[7], 64)
	if err != nil {
		return Row{}, fmt.Errorf("value: %w", err)
	}

	return Row{
		Time:  time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5], 0, time.UTC),
		Days:  days,
		Value: value,
	}, nil
}
