package money

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// decimalKeys are the fields decimal-like objects from the shop API carry
// their value under.
var decimalKeys = []string{"$numberDecimal", "value", "amount"}

// ToNumber converts a loosely typed monetary value (number, numeric string,
// json.Number, decimal or decimal-like object) into a float64. ok is false
// when v is missing or cannot be read as a finite number; the value is 0 then.
func ToNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		return finite(n)
	case float32:
		return finite(float64(n))
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		return parseNumeric(n.String())
	case string:
		return parseNumeric(n)
	case decimal.Decimal:
		return n.InexactFloat64(), true
	case *decimal.Decimal:
		if n == nil {
			return 0, false
		}
		return n.InexactFloat64(), true
	case map[string]any:
		for _, key := range decimalKeys {
			if raw, exists := n[key]; exists {
				return ToNumber(raw)
			}
		}
		return 0, false
	case fmt.Stringer:
		return parseNumeric(n.String())
	default:
		return 0, false
	}
}

// Normalize is ToNumber for values arriving from outside the process. A
// malformed value is logged and replaced by zero.
func Normalize(logger *zap.Logger, field string, v any) float64 {
	value, ok := ToNumber(v)
	if ok || logger == nil {
		return value
	}
	if v == nil {
		logger.Debug("monetary value missing, using zero", zap.String("field", field))
		return 0
	}
	logger.Warn("malformed monetary value, using zero",
		zap.String("field", field),
		zap.String("type", fmt.Sprintf("%T", v)),
		zap.Any("value", v),
	)
	return 0
}

func parseNumeric(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return finite(f)
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
