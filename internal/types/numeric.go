package types

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Numeric sign field values, per PostgreSQL's numeric.c.
const (
	numericPositive uint16 = 0x0000
	numericNegative uint16 = 0x4000
	numericNaN      uint16 = 0xC000
)

// Numeric is the core's in-memory form of the NUMERIC/DECIMAL wire format:
// (ndigits, weight, sign, dscale, digit[ndigits]), digits base-10000,
// most-significant first. It is kept in this decomposed form rather than
// converted to a float or big.Rat so that a value decoded off the wire and
// re-encoded reproduces the identical bytes (§4.3 exact round-trip).
type Numeric struct {
	Sign   uint16
	Weight int16
	DScale int16
	Digits []int16
}

func init() {
	register(&Codec{
		OID:          OIDNumeric,
		DecodeText:   func(src []byte) (interface{}, error) { return ParseNumeric(string(src)) },
		EncodeText:   func(v interface{}) ([]byte, error) { return []byte(v.(*Numeric).String()), nil },
		DecodeBinary: decodeNumericBinary,
		EncodeBinary: encodeNumericBinary,
	})
}

func decodeNumericBinary(src []byte) (interface{}, error) {
	if len(src) < 8 {
		return nil, fmt.Errorf("pgwire: numeric binary too short: %d bytes", len(src))
	}
	ndigits := int(int16(binary.BigEndian.Uint16(src[0:2])))
	weight := int16(binary.BigEndian.Uint16(src[2:4]))
	sign := binary.BigEndian.Uint16(src[4:6])
	dscale := int16(binary.BigEndian.Uint16(src[6:8]))
	if len(src) != 8+2*ndigits {
		return nil, fmt.Errorf("pgwire: numeric binary length mismatch: ndigits=%d len=%d", ndigits, len(src))
	}
	digits := make([]int16, ndigits)
	for i := 0; i < ndigits; i++ {
		digits[i] = int16(binary.BigEndian.Uint16(src[8+2*i : 10+2*i]))
	}
	return &Numeric{Sign: sign, Weight: weight, DScale: dscale, Digits: digits}, nil
}

func encodeNumericBinary(v interface{}) ([]byte, error) {
	n := v.(*Numeric)
	buf := make([]byte, 8+2*len(n.Digits))
	binary.BigEndian.PutUint16(buf[0:2], uint16(int16(len(n.Digits))))
	binary.BigEndian.PutUint16(buf[2:4], uint16(n.Weight))
	binary.BigEndian.PutUint16(buf[4:6], n.Sign)
	binary.BigEndian.PutUint16(buf[6:8], uint16(n.DScale))
	for i, d := range n.Digits {
		binary.BigEndian.PutUint16(buf[8+2*i:10+2*i], uint16(d))
	}
	return buf, nil
}

// ParseNumeric parses a plain decimal string ("-123.4500", "0", "NaN") into
// the group-of-4 representation PostgreSQL stores on the wire.
func ParseNumeric(s string) (*Numeric, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "nan") {
		return &Numeric{Sign: numericNaN}, nil
	}

	sign := numericPositive
	if strings.HasPrefix(s, "-") {
		sign = numericNegative
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("pgwire: invalid numeric literal %q", s)
		}
	}
	dscale := int16(len(fracPart))

	// Strip leading zeros from intPart so group padding below doesn't
	// manufacture a spurious leading digit group. An all-zero integer part
	// becomes empty and is handled below as a pure fraction.
	trimmedInt := strings.TrimLeft(intPart, "0")
	if trimmedInt == "" {
		trimmedInt = ""
	}

	padLeft := (4 - len(trimmedInt)%4) % 4
	if trimmedInt == "" {
		padLeft = 0
	}
	combined := strings.Repeat("0", padLeft) + trimmedInt + fracPart
	if combined == "" {
		combined = "0"
	}
	padRight := (4 - len(combined)%4) % 4
	combined += strings.Repeat("0", padRight)

	weight := int16(len(trimmedInt)+padLeft)/4 - 1
	if trimmedInt == "" {
		// Pure fraction or zero: weight is relative to the decimal point,
		// computed below from leading zero groups in the fractional part.
		weight = -1
	}

	ndigits := len(combined) / 4
	digits := make([]int16, ndigits)
	for i := 0; i < ndigits; i++ {
		v, err := strconv.Atoi(combined[i*4 : i*4+4])
		if err != nil {
			return nil, err
		}
		digits[i] = int16(v)
	}

	// When there is no integer part at all, leading zero-valued digit
	// groups belong to the fraction and must lower the weight accordingly
	// rather than just being stripped outright (they encode the magnitude
	// of a value like 0.00001234).
	if trimmedInt == "" {
		lead := 0
		for lead < len(digits) && digits[lead] == 0 {
			lead++
		}
		if lead == len(digits) {
			digits = nil
			weight = 0
		} else {
			weight = int16(-1 - lead)
			digits = digits[lead:]
		}
	} else {
		// Strip trailing all-zero groups; they're redundant once dscale
		// records the true display precision.
		end := len(digits)
		for end > 0 && digits[end-1] == 0 {
			end--
		}
		digits = digits[:end]
	}

	if len(digits) == 0 {
		sign = numericPositive
		if s == "" || strings.Trim(s, "0.") == "" {
			weight = 0
		}
	}

	return &Numeric{Sign: sign, Weight: weight, DScale: dscale, Digits: digits}, nil
}

// String renders the canonical decimal text form, matching what
// PostgreSQL's own numeric_out would print for this bit pattern.
func (n *Numeric) String() string {
	if n.Sign == numericNaN {
		return "NaN"
	}

	var sb strings.Builder
	if n.Sign == numericNegative && len(n.Digits) > 0 {
		sb.WriteByte('-')
	}

	if len(n.Digits) == 0 {
		sb.WriteByte('0')
	} else {
		var digitStr strings.Builder
		for _, d := range n.Digits {
			fmt.Fprintf(&digitStr, "%04d", d)
		}
		all := digitStr.String()

		intDigitCount := 4 * (int(n.Weight) + 1)
		var intPart, fracPart string
		switch {
		case intDigitCount <= 0:
			intPart = "0"
			fracPart = strings.Repeat("0", -intDigitCount) + all
		case intDigitCount >= len(all):
			intPart = all + strings.Repeat("0", intDigitCount-len(all))
			fracPart = ""
		default:
			intPart = all[:intDigitCount]
			fracPart = all[intDigitCount:]
		}
		sb.WriteString(stripLeadingZeros(intPart))

		if n.DScale > 0 {
			if len(fracPart) < int(n.DScale) {
				fracPart += strings.Repeat("0", int(n.DScale)-len(fracPart))
			} else {
				fracPart = fracPart[:n.DScale]
			}
			sb.WriteByte('.')
			sb.WriteString(fracPart)
		}
	}

	return sb.String()
}

// stripLeadingZeros drops insignificant leading zeros from an assembled
// integer-part digit string, keeping exactly one digit if the whole thing is
// zero (digitStr zero-pads every NBASE group to 4 digits including the
// most-significant one, which numeric_out never does).
func stripLeadingZeros(s string) string {
	i := 0
	for i < len(s)-1 && s[i] == '0' {
		i++
	}
	return s[i:]
}
