package pricing

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/slogsolutions/WebBuyer/internal/domain/shared/timewindow"
)

// Discount is the price reduction a space carries in the catalog.
// Legacy records encode it as a bare number, a string like "15%", or an
// object holding a percent, value or amount field. Whatever the shape,
// it resolves to a percentage in [0, 100]; unrecognized shapes resolve
// to zero instead of failing the whole space.
type Discount struct {
	percent    float64
	recognized bool
}

func DiscountPercent(p float64) Discount {
	return Discount{percent: clampPercent(p), recognized: true}
}

func NoDiscount() Discount {
	return Discount{}
}

// ParseDiscount interprets a decoded JSON or BSON value as a discount.
func ParseDiscount(v any) Discount {
	switch val := v.(type) {
	case nil:
		return Discount{}
	case float64:
		return DiscountPercent(val)
	case float32:
		return DiscountPercent(float64(val))
	case int:
		return DiscountPercent(float64(val))
	case int32:
		return DiscountPercent(float64(val))
	case int64:
		return DiscountPercent(float64(val))
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return Discount{}
		}
		return DiscountPercent(f)
	case string:
		return parseDiscountString(val)
	case map[string]any:
		for _, key := range []string{"percent", "value", "amount"} {
			raw, ok := val[key]
			if !ok {
				continue
			}
			if d := ParseDiscount(raw); d.recognized {
				return d
			}
		}
		return Discount{}
	default:
		return Discount{}
	}
}

func parseDiscountString(s string) Discount {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return Discount{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Discount{}
	}
	return DiscountPercent(f)
}

func clampPercent(p float64) float64 {
	switch {
	case math.IsNaN(p) || math.IsInf(p, 0) || p <= 0:
		return 0
	case p >= 100:
		return 100
	default:
		return p
	}
}

// Percent returns the resolved percentage in [0, 100].
func (d Discount) Percent() float64 {
	return d.percent
}

func (d Discount) IsZero() bool {
	return d.percent == 0
}

func (d *Discount) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = ParseDiscount(raw)
	return nil
}

func (d Discount) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.percent)
}

// Round2 rounds half away from zero to two decimals. All rate math in
// the summary flow goes through it so equal displays compare equal.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Breakdown is the rate card shown on a space summary.
type Breakdown struct {
	BasePerHour       float64
	DiscountPercent   float64
	DiscountedPerHour float64
	HasDiscount       bool
}

// Compute derives the discounted hourly rate from the base rate. A
// discount only counts as present when it moves the displayed price:
// rates that round to the same two decimals show no discount badge.
func Compute(basePerHour float64, d Discount) Breakdown {
	if basePerHour < 0 || math.IsNaN(basePerHour) || math.IsInf(basePerHour, 0) {
		basePerHour = 0
	}
	pct := d.Percent()
	discounted := Round2(basePerHour * (1 - pct/100))
	return Breakdown{
		BasePerHour:       basePerHour,
		DiscountPercent:   pct,
		DiscountedPerHour: discounted,
		HasDiscount:       pct > 0 && discounted < Round2(basePerHour),
	}
}

// Quote extends a Breakdown with window-dependent totals. Duration and
// Total stay nil until the driver has picked a complete window.
type Quote struct {
	Breakdown
	DurationHours *float64
	Total         *float64
}

func QuoteFor(basePerHour float64, d Discount, w timewindow.Window) Quote {
	q := Quote{Breakdown: Compute(basePerHour, d)}
	if hours, ok := w.Hours(); ok {
		total := Round2(q.DiscountedPerHour * hours)
		q.DurationHours = &hours
		q.Total = &total
	}
	return q
}
