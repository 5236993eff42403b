package bigquery

import (
	"math/big"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		uri     string
		want    TableRef
		wantErr bool
	}{
		{"bq://proj.sales.diwali", TableRef{"proj", "sales", "diwali"}, false},
		{"bq://proj.sales", TableRef{}, true},
		{"bq://proj..diwali", TableRef{}, true},
		{"gs://proj/sales", TableRef{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, err := ParseRef(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRef(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseRef(%q) = %+v, want %+v", tt.uri, got, tt.want)
			}
		})
	}

	ref := TableRef{"proj", "sales", "diwali"}
	if ref.String() != "proj.sales.diwali" {
		t.Errorf("TableRef.String() = %q", ref.String())
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   bigquery.Value
		want string
	}{
		{"null", nil, ""},
		{"string", "Gujarat", "Gujarat"},
		{"int", int64(1000732), "1000732"},
		{"float", 23952.0, "23952"},
		{"float fraction", 23952.5, "23952.5"},
		{"bool", true, "true"},
		{"bytes", []byte("M"), "M"},
		{"numeric int", big.NewRat(500, 1), "500"},
		{"numeric fraction", big.NewRat(1, 4), "0.25"},
		{"timestamp", time.Date(2024, 11, 1, 10, 0, 0, 0, time.UTC), "2024-11-01T10:00:00Z"},
		{"date", civil.Date{Year: 2024, Month: 11, Day: 1}, "2024-11-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatValue(tt.in); got != tt.want {
				t.Errorf("FormatValue(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
