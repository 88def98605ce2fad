// Package meterfile parses utility "Download My Data" electric usage
// exports: a variable-length preamble of metadata lines followed by a
// comma-separated tabular section.
package meterfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"gridheat/internal/models"
)

// ErrMalformedInput indicates the export is missing a required marker
// line or the embedded zip code. Matched with errors.Is.
var ErrMalformedInput = errors.New("malformed usage export")

const (
	addressPrefix = "Address"
	headerPrefix  = "TYPE"
)

// West-coast 5+4 zip embedded in the address line: five digits starting
// with 9, then a four digit extension.
var zipPattern = regexp.MustCompile(`(9\d{4})(\d{4})`)

// LocateHeader scans the document for the address line (which carries the
// account zip code) and the column header line. The two scans are
// independent forward scans from the top of the document, but the header
// must come after the address line. The reader is consumed; callers
// re-read the document from the start before parsing the tabular section.
func LocateHeader(r io.Reader) (*models.HeaderAddress, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read lines: %w", err)
	}

	addressLine := -1
	for i, line := range lines {
		if strings.HasPrefix(line, addressPrefix) {
			addressLine = i
			break
		}
	}
	if addressLine == -1 {
		return nil, fmt.Errorf("%w: no address line found", ErrMalformedInput)
	}

	m := zipPattern.FindStringSubmatch(lines[addressLine])
	if m == nil {
		return nil, fmt.Errorf("%w: no zip code found", ErrMalformedInput)
	}
	zip5, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, fmt.Errorf("%w: zip primary %q: %v", ErrMalformedInput, m[1], err)
	}
	zip4, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, fmt.Errorf("%w: zip extension %q: %v", ErrMalformedInput, m[2], err)
	}

	headerLine := -1
	for i, line := range lines {
		if strings.HasPrefix(line, headerPrefix) {
			headerLine = i
			break
		}
	}
	if headerLine == -1 {
		return nil, fmt.Errorf("%w: no header line found", ErrMalformedInput)
	}
	if headerLine <= addressLine {
		return nil, fmt.Errorf("%w: header line precedes address line", ErrMalformedInput)
	}

	return &models.HeaderAddress{
		Zip5:        zip5,
		Zip4:        zip4,
		AddressLine: addressLine,
		HeaderLine:  headerLine,
		ColumnNames: strings.Split(lines[headerLine], ","),
	}, nil
}
