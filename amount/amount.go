package amount

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// Decimals is the fixed-point precision of the marketplace token.
const Decimals = 18

func digitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ToBaseUnits converts a decimal token amount like "1.5" into its integer
// base-unit string ("1500000000000000000" at 18 decimals). The fractional
// part is padded or truncated to exactly decimals digits. Empty input is
// zero. No floating point is involved at any step.
func ToBaseUnits(value string, decimals int) (string, error) {
	if value == "" {
		return "0", nil
	}
	integer := value
	fraction := ""
	if i := strings.IndexByte(value, '.'); i >= 0 {
		integer, fraction = value[:i], value[i+1:]
	}
	if integer == "" {
		integer = "0"
	}
	if !digitsOnly(integer) || (fraction != "" && !digitsOnly(fraction)) {
		return "", fmt.Errorf("invalid decimal amount %q", value)
	}
	if len(fraction) > decimals {
		fraction = fraction[:decimals]
	}
	fraction += strings.Repeat("0", decimals-len(fraction))
	combined := strings.TrimLeft(integer+fraction, "0")
	if combined == "" {
		return "0", nil
	}
	return combined, nil
}

// FromBaseUnits renders an integer base-unit string as a decimal amount,
// stripping trailing fractional zeros ("950000000000000000" -> "0.95").
// A fully stripped fraction collapses to a single zero digit.
func FromBaseUnits(value string, decimals int) (string, error) {
	if value == "" {
		return "0.0", nil
	}
	if !digitsOnly(value) {
		return "", fmt.Errorf("invalid base unit amount %q", value)
	}
	if len(value) < decimals+1 {
		value = strings.Repeat("0", decimals+1-len(value)) + value
	}
	integer := value[:len(value)-decimals]
	fraction := strings.TrimRight(value[len(value)-decimals:], "0")
	if fraction == "" {
		fraction = "0"
	}
	return integer + "." + fraction, nil
}

// ParseBig converts a value read from a command or the state store into a
// non-negative big integer. Only decimal-digit strings, big integers and
// integer-valued numbers are accepted; anything else is a conversion error
// rather than a silently wrong amount. Nil parses as zero.
func ParseBig(v any) (*big.Int, error) {
	switch x := v.(type) {
	case nil:
		return big.NewInt(0), nil
	case *big.Int:
		if x.Sign() < 0 {
			return nil, fmt.Errorf("negative amount %s", x)
		}
		return new(big.Int).Set(x), nil
	case string:
		if !digitsOnly(x) {
			return nil, fmt.Errorf("invalid integer string %q", x)
		}
		n, ok := new(big.Int).SetString(x, 10)
		if !ok {
			return nil, fmt.Errorf("invalid integer string %q", x)
		}
		return n, nil
	case json.Number:
		return ParseBig(string(x))
	case int:
		return parseInt64(int64(x))
	case int64:
		return parseInt64(x)
	case uint64:
		return new(big.Int).SetUint64(x), nil
	case float64:
		if x != float64(int64(x)) {
			return nil, fmt.Errorf("cannot convert decimal %v to integer amount", x)
		}
		return parseInt64(int64(x))
	default:
		return nil, fmt.Errorf("unsupported amount type %T", v)
	}
}

func parseInt64(n int64) (*big.Int, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative amount %d", n)
	}
	return big.NewInt(n), nil
}
