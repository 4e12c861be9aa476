package postgres

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

func TestDecimalNumericRoundTrip(t *testing.T) {
	values := []string{"0", "100.5000", "-42.01", "999999999999.9999"}

	for _, v := range values {
		d, err := decimal.NewFromString(v)
		if err != nil {
			t.Fatalf("bad test value %q: %v", v, err)
		}

		n, err := decimalToNumeric(d)
		if err != nil {
			t.Fatalf("decimalToNumeric(%s): %v", v, err)
		}
		if !n.Valid {
			t.Fatalf("decimalToNumeric(%s) produced invalid numeric", v)
		}

		back := numericToDecimal(n)
		if !back.Equal(d) {
			t.Fatalf("round trip of %s gave %s", d, back)
		}
	}
}

func TestNumericToDecimalInvalidIsZero(t *testing.T) {
	back := numericToDecimal(pgtype.Numeric{})
	if !back.IsZero() {
		t.Fatalf("expected zero for invalid numeric, got %s", back)
	}
}
