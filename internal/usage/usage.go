// internal/usage/usage.go
//
// Normalisation of heterogeneous usage values.
//
// Context
// -------
// WHM reports quotas and usage as numbers, numeric strings, or words such
// as "unlimited" and "N/A", sometimes as JSON null.  Everything here is a
// pure function over `any` so callers can pass decoded JSON straight in.
//
//   • SanitizeNumeric  – always a finite number ≥ 0, never an error.
//   • Percentage       – 0 when the limit is 0 (unlimited or unknown).
//   • FormatForDisplay – keeps "Unlimited" and "N/A" apart.
//
// Notes
// -----
//   • A sanitised 0 limit means "no limit or unknown".  It never renders as
//     over quota.
//   • Byte labels use IEC units via go-humanize ("1.5 KiB", "2.0 GiB").
package usage

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Display labels for the two non-numeric outcomes.
const (
	LabelUnlimited = "Unlimited"
	LabelNA        = "N/A"
)

// zeroTokens collapse to 0 in SanitizeNumeric.  Compared case-insensitively.
var zeroTokens = map[string]struct{}{
	"unlimited": {},
	"n/a":       {},
	"na":        {},
	"-":         {},
	"∞":         {},
}

// unlimitedTokens render as LabelUnlimited.  The rest of zeroTokens are
// "unknown" and render as LabelNA.
var unlimitedTokens = map[string]struct{}{
	"unlimited": {},
	"∞":         {},
}

// parse returns the float value of v and whether v was numeric at all.
func parse(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		if _, tok := zeroTokens[strings.ToLower(s)]; tok {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// SanitizeNumeric maps v to a finite number ≥ 0.  Missing, token, and
// unparseable values become 0.  Negative, NaN, and infinite values clamp
// to 0.
func SanitizeNumeric(v any) float64 {
	f, ok := parse(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// Percentage returns used as a share of limit in [0, 100], rounded to one
// decimal.  A limit ≤ 0 yields 0.
func Percentage(used, limit any) float64 {
	u := SanitizeNumeric(used)
	l := SanitizeNumeric(limit)
	if l <= 0 {
		return 0
	}
	p := math.Min(u/l*100, 100)
	return math.Round(p*10) / 10
}

// FormatForDisplay renders a byte quantity for humans.  Explicit unlimited
// tokens give "Unlimited", missing or unparseable values give "N/A", and
// numbers give an IEC byte size.
func FormatForDisplay(v any) string {
	if s, ok := v.(string); ok {
		if _, unl := unlimitedTokens[strings.ToLower(strings.TrimSpace(s))]; unl {
			return LabelUnlimited
		}
	}
	f, ok := parse(v)
	if !ok || math.IsNaN(f) {
		return LabelNA
	}
	if math.IsInf(f, 1) {
		return LabelUnlimited
	}
	n := SanitizeNumeric(f)
	if n >= maxBytes {
		return humanize.IBytes(math.MaxUint64)
	}
	return humanize.IBytes(uint64(n))
}

// maxBytes is 2^64, the first float64 that no longer converts to uint64.
const maxBytes = float64(1 << 64)
