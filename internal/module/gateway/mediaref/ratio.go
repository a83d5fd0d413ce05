package mediaref

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Sentinel aspect-ratio values that ask for inference rather than a fixed shape.
const (
	Auto  = "auto"
	Smart = "smart"
)

// IsSentinel reports whether v is "auto" or "smart".
func IsSentinel(v string) bool {
	return v == Auto || v == Smart
}

// ParseRatio parses "W:H". Sentinels and malformed values yield false.
func ParseRatio(s string) (float64, bool) {
	if IsSentinel(s) {
		return 0, false
	}
	w, h, ok := splitPair(s, ":")
	if !ok || h == 0 {
		return 0, false
	}
	return w / h, true
}

// ParseSize parses "W*H" into integer dimensions.
func ParseSize(s string) (width, height int, ok bool) {
	if IsSentinel(s) {
		return 0, 0, false
	}
	w, h, ok := splitPair(s, "*")
	if !ok || w <= 0 || h <= 0 || w != math.Trunc(w) || h != math.Trunc(h) {
		return 0, 0, false
	}
	return int(w), int(h), true
}

// NearestPreset returns the preset closest to ratio. Presets that do not parse are skipped;
// if none parse the first preset is returned.
func NearestPreset(ratio float64, presets []string) string {
	if len(presets) == 0 {
		return ""
	}
	best := presets[0]
	minDiff := math.Inf(1)
	for _, p := range presets {
		pr, ok := ParseRatio(p)
		if !ok {
			continue
		}
		if diff := math.Abs(ratio - pr); diff < minDiff {
			minDiff = diff
			best = p
		}
	}
	return best
}

var commonRatios = map[string]string{
	"2.333": "21:9",
	"2.370": "21:9",
	"1.778": "16:9",
	"1.777": "16:9",
	"1.500": "3:2",
	"1.333": "4:3",
	"1.250": "5:4",
	"1.000": "1:1",
	"0.800": "4:5",
	"0.750": "3:4",
	"0.667": "2:3",
	"0.563": "9:16",
	"0.562": "9:16",
	"0.429": "9:21",
	"0.422": "9:21",
}

// FormatRatio renders a ratio as "W:H", snapping to common shapes.
func FormatRatio(ratio float64) string {
	if r, ok := commonRatios[strconv.FormatFloat(ratio, 'f', 3, 64)]; ok {
		return r
	}
	w := int(math.Round(ratio * 100))
	h := 100
	d := gcd(w, h)
	if d == 0 {
		return "1:1"
	}
	return fmt.Sprintf("%d:%d", w/d, h/d)
}

func splitPair(s, sep string) (float64, float64, bool) {
	parts := strings.Split(strings.TrimSpace(s), sep)
	if len(parts) != 2 {
		return 0, 0, false
	}
	a, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	b, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, false
	}
	return a, b, true
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
