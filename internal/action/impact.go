package action

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Impact is the parsed form of an expected-impact directive such as
// "-10%", "+5 dias" or "reduzir 3 p.p.". Sign is -1 or +1; Magnitude is
// the absolute numeric part; Unit is whatever trails the number.
type Impact struct {
	Sign      int
	Magnitude decimal.Decimal
	Unit      string
}

// ParseImpact extracts a signed magnitude from a free-text directive. The
// sign is negative when the text carries a minus marker anywhere before or
// at the number, positive otherwise. ok is false when no numeric part can
// be found; callers fall back to eficácia "média" in that case because
// there is no basis to judge.
func ParseImpact(text string) (Impact, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Impact{}, false
	}

	start := strings.IndexFunc(trimmed, unicode.IsDigit)
	if start < 0 {
		return Impact{}, false
	}

	sign := 1
	if strings.Contains(trimmed[:start], "-") {
		sign = -1
	}

	end := start
	seenSep := false
	for end < len(trimmed) {
		c := trimmed[end]
		if c >= '0' && c <= '9' {
			end++
			continue
		}
		if (c == '.' || c == ',') && !seenSep && end+1 < len(trimmed) && trimmed[end+1] >= '0' && trimmed[end+1] <= '9' {
			seenSep = true
			end++
			continue
		}
		break
	}

	number := strings.ReplaceAll(trimmed[start:end], ",", ".")
	magnitude, err := decimal.NewFromString(number)
	if err != nil {
		return Impact{}, false
	}

	return Impact{
		Sign:      sign,
		Magnitude: magnitude.Abs(),
		Unit:      strings.TrimSpace(trimmed[end:]),
	}, true
}
