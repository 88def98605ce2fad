package meterfile

import (
	"errors"
	"strings"
	"testing"
)

const validDoc = `Name,JOHN DOE
Address,"123 MAIN ST SACRAMENTO CA 958141234"
Account Number,1234567890
Service,Service 1
TYPE,DATE,START TIME,END TIME,USAGE (kWh),COST,NOTES
Electric usage,2024-01-01,00:00,00:59,0.50,$0.25,
Electric usage,2024-01-01,01:00,01:59,2.00,$1.00,
`

func TestLocateHeader(t *testing.T) {
	header, err := LocateHeader(strings.NewReader(validDoc))
	if err != nil {
		t.Fatalf("LocateHeader: %v", err)
	}

	if header.Zip5 != 95814 {
		t.Errorf("Zip5 = %d, want 95814", header.Zip5)
	}
	if header.Zip4 != 1234 {
		t.Errorf("Zip4 = %d, want 1234", header.Zip4)
	}
	if header.AddressLine != 1 {
		t.Errorf("AddressLine = %d, want 1", header.AddressLine)
	}
	if header.HeaderLine != 4 {
		t.Errorf("HeaderLine = %d, want 4", header.HeaderLine)
	}
	if header.HeaderLine <= header.AddressLine {
		t.Errorf("header line %d not after address line %d", header.HeaderLine, header.AddressLine)
	}

	want := []string{"TYPE", "DATE", "START TIME", "END TIME", "USAGE (kWh)", "COST", "NOTES"}
	if len(header.ColumnNames) != len(want) {
		t.Fatalf("got %d column names, want %d", len(header.ColumnNames), len(want))
	}
	for i, name := range want {
		if header.ColumnNames[i] != name {
			t.Errorf("column %d = %q, want %q", i, header.ColumnNames[i], name)
		}
	}
}

func TestLocateHeader_ColumnCountMatchesCommas(t *testing.T) {
	header, err := LocateHeader(strings.NewReader(validDoc))
	if err != nil {
		t.Fatalf("LocateHeader: %v", err)
	}
	headerLine := strings.Split(validDoc, "\n")[header.HeaderLine]
	if got, want := len(header.ColumnNames), strings.Count(headerLine, ",")+1; got != want {
		t.Errorf("got %d columns, want comma count + 1 = %d", got, want)
	}
}

func TestLocateHeader_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		msg  string
	}{
		{
			name: "no address line",
			doc:  "Name,X\nTYPE,DATE\nrow,1\n",
			msg:  "no address line found",
		},
		{
			name: "no zip code",
			doc:  "Address,123 MAIN ST\nTYPE,DATE\nrow,1\n",
			msg:  "no zip code found",
		},
		{
			name: "zip not starting with 9",
			doc:  "Address,123 MAIN ST 123456789\nTYPE,DATE\nrow,1\n",
			msg:  "no zip code found",
		},
		{
			name: "no header line",
			doc:  "Address,123 MAIN ST 958141234\nrow,1\n",
			msg:  "no header line found",
		},
		{
			name: "header precedes address",
			doc:  "TYPE,DATE\nAddress,123 MAIN ST 958141234\n",
			msg:  "header line precedes address line",
		},
		{
			name: "empty document",
			doc:  "",
			msg:  "no address line found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, err := LocateHeader(strings.NewReader(tt.doc))
			if err == nil {
				t.Fatalf("expected error, got header %+v", header)
			}
			if !errors.Is(err, ErrMalformedInput) {
				t.Errorf("error %v does not match ErrMalformedInput", err)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("error %q does not contain %q", err, tt.msg)
			}
			if header != nil {
				t.Errorf("expected nil header on failure, got %+v", header)
			}
		})
	}
}

func TestLocateHeader_ZipEmbeddedMidLine(t *testing.T) {
	doc := "Address,\"1 A ST, SAN FRANCISCO CA 941071234 USA\"\nTYPE,DATE\n"
	header, err := LocateHeader(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LocateHeader: %v", err)
	}
	if header.Zip5 != 94107 || header.Zip4 != 1234 {
		t.Errorf("zip = %d-%d, want 94107-1234", header.Zip5, header.Zip4)
	}
}
