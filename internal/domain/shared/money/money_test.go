package money

import (
	"errors"
	"strings"
	"testing"
)

func TestNewFormatterValidatesInputs(t *testing.T) {
	if _, err := NewFormatter("??", "INR"); !errors.Is(err, ErrInvalidLocale) {
		t.Fatalf("expected ErrInvalidLocale, got %v", err)
	}
	if _, err := NewFormatter("en-IN", "RUPEES"); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}
	if _, err := NewFormatter("en-IN", "INR"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestAmountCarriesCurrencySymbol(t *testing.T) {
	f := Must("en-IN", "INR")

	got := f.Amount(50)
	if !strings.Contains(got, "₹") {
		t.Fatalf("expected rupee symbol in %q", got)
	}
	if f.Code() != "INR" {
		t.Fatalf("expected code INR, got %s", f.Code())
	}
}

func TestPerHourAppendsUnit(t *testing.T) {
	f := Must("en-IN", "INR")

	got := f.PerHour(50)
	if !strings.HasSuffix(got, "/hr") {
		t.Fatalf("expected /hr suffix in %q", got)
	}
}

func TestZeroFormatterStaysQuiet(t *testing.T) {
	var f Formatter
	if !f.Zero() {
		t.Fatalf("expected zero value to report Zero")
	}
	if got := f.Amount(10); got != "" {
		t.Fatalf("expected empty render from zero formatter, got %q", got)
	}
}
