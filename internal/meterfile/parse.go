package meterfile

import (
	"bufio"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gridheat/internal/models"
)

// Layouts seen in the wild for the DATE + START TIME pair.
var periodLayouts = []string{
	"2006-01-02 15:04",
	"1/2/2006 15:04",
	"2006-01-02 3:04 PM",
	"1/2/2006 3:04 PM",
}

// ParseUsage reads the tabular section that follows header.HeaderLine and
// returns one record per metering interval. Timestamps are interpreted in
// loc, the account's local zone. The TYPE column is dropped; COST has its
// leading currency symbol stripped before numeric parsing. Price per kWh
// is left NULL when the interval used no energy.
func ParseUsage(r io.Reader, header *models.HeaderAddress, loc *time.Location) ([]models.UsageRecord, error) {
	idxDate, idxStart, idxUsage, idxCost := -1, -1, -1, -1
	for i, name := range header.ColumnNames {
		switch {
		case name == "DATE":
			idxDate = i
		case name == "START TIME":
			idxStart = i
		case strings.HasPrefix(name, "USAGE"):
			idxUsage = i
		case name == "COST":
			idxCost = i
		}
	}
	if idxDate == -1 || idxStart == -1 || idxUsage == -1 || idxCost == -1 {
		return nil, fmt.Errorf("%w: header missing DATE, START TIME, USAGE or COST", ErrMalformedInput)
	}

	// Skip the preamble and the header line itself, then hand the rest to
	// the CSV reader.
	br := bufio.NewReader(r)
	for i := 0; i <= header.HeaderLine; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			return nil, fmt.Errorf("%w: no data rows after header", ErrMalformedInput)
		}
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	var records []models.UsageRecord
	line := header.HeaderLine + 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedInput, line+1, err)
		}
		line++
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		maxIdx := idxDate
		for _, idx := range []int{idxStart, idxUsage, idxCost} {
			if idx > maxIdx {
				maxIdx = idx
			}
		}
		if len(row) <= maxIdx {
			return nil, fmt.Errorf("%w: line %d has %d fields", ErrMalformedInput, line, len(row))
		}

		start, err := parsePeriodStart(row[idxDate], row[idxStart], loc)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedInput, line, err)
		}

		usage, err := strconv.ParseFloat(strings.TrimSpace(row[idxUsage]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: usage %q: %v", ErrMalformedInput, line, row[idxUsage], err)
		}

		cost, err := parseCost(row[idxCost])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedInput, line, err)
		}

		rec := models.UsageRecord{
			PeriodStart: start,
			UsageKWh:    usage,
			Cost:        cost,
			Month:       start.Format("Jan"),
		}
		if usage != 0 {
			rec.PricePerKWh = sql.NullFloat64{Float64: cost / usage, Valid: true}
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no data rows after header", ErrMalformedInput)
	}
	return records, nil
}

func parsePeriodStart(date, start string, loc *time.Location) (time.Time, error) {
	combined := strings.TrimSpace(date) + " " + strings.TrimSpace(start)
	for _, layout := range periodLayouts {
		if t, err := time.ParseInLocation(layout, combined, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", combined)
}

func parseCost(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(trimmed, "$")
	cost, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("cost %q: %v", s, err)
	}
	return cost, nil
}
