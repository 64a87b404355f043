// Package encoding implements the pure value encoders of the transcoding
// engine: textual decimals to fixed-length two's-complement byte arrays, and
// date/time/timestamp values to the integer encodings of the columnar
// physical types.
package encoding

import (
	"encoding/binary"
	"math/big"
	"math/bits"

	"github.com/parquio/parquio/pkg/xerrors"
)

// int128Threshold is the highest precision whose full value range fits a
// signed 128-bit integer. 10^38 < 2^127.
const int128Threshold = 38

// DecimalScratch is a reusable byte buffer holding the digits of one decimal
// value, sign included, without the decimal point. It is sized once per
// column to precision+1 and refilled per value.
type DecimalScratch struct {
	digits []byte
}

// NewDecimalScratch returns a scratch buffer for decimals of the given
// precision.
func NewDecimalScratch(precision int) *DecimalScratch {
	return &DecimalScratch{digits: make([]byte, 0, precision+1)}
}

// EncodeDecimal writes the big-endian two's-complement encoding of a textual
// decimal into dst, sized exactly to len(dst) bytes. The text holds an
// optional sign and at most one decimal point; its fraction is normalized to
// exactly scale digits (zero-padded, excess truncated), so non-canonical
// driver text like "1.5" in a scale-2 column still encodes the unscaled
// value 150. Decimals up to precision 38 take a native 128-bit fast path;
// larger precisions fall back to arbitrary-precision arithmetic. Both paths
// produce identical bytes on overlapping ranges.
func EncodeDecimal(dst, text []byte, precision, scale int, scratch *DecimalScratch) error {
	scratch.digits = scratch.digits[:0]
	frac := -1
	ndigits := 0
	for _, c := range text {
		if c == '.' {
			if frac >= 0 {
				return xerrors.Newf(xerrors.ErrorTypeEncode, "malformed decimal %q", text)
			}
			frac = 0
			continue
		}
		scratch.digits = append(scratch.digits, c)
		if c >= '0' && c <= '9' {
			ndigits++
		}
		if frac >= 0 {
			frac++
		}
	}
	if ndigits == 0 {
		return xerrors.Newf(xerrors.ErrorTypeEncode, "malformed decimal %q", text)
	}
	if frac < 0 {
		frac = 0
	}
	for ; frac < scale; frac++ {
		scratch.digits = append(scratch.digits, '0')
	}
	if frac > scale {
		scratch.digits = scratch.digits[:len(scratch.digits)-(frac-scale)]
	}

	if precision <= int128Threshold {
		return encodeDecimal128(dst, scratch.digits)
	}
	return encodeDecimalBig(dst, scratch.digits)
}

// encodeDecimal128 computes the two's complement of decimals with a
// precision up to and including 38 using two 64-bit limbs.
func encodeDecimal128(dst, digits []byte) error {
	i := 0
	negative := false
	if len(digits) > 0 && (digits[0] == '+' || digits[0] == '-') {
		negative = digits[0] == '-'
		i++
	}
	if i == len(digits) {
		return xerrors.Newf(xerrors.ErrorTypeEncode, "malformed decimal %q", digits)
	}

	var hi, lo uint64
	for ; i < len(digits); i++ {
		c := digits[i]
		if c < '0' || c > '9' {
			return xerrors.Newf(xerrors.ErrorTypeEncode, "malformed decimal %q", digits)
		}
		carryHi, mulLo := bits.Mul64(lo, 10)
		hi = hi*10 + carryHi
		var carry uint64
		lo, carry = bits.Add64(mulLo, uint64(c-'0'), 0)
		hi += carry
	}

	if negative {
		lo = ^lo + 1
		hi = ^hi
		if lo == 0 {
			hi++
		}
	}

	var full [16]byte
	binary.BigEndian.PutUint64(full[:8], hi)
	binary.BigEndian.PutUint64(full[8:], lo)
	copy(dst, full[16-len(dst):])
	return nil
}

// encodeDecimalBig computes the two's complement of decimals of arbitrary
// precision. Negative values are sign-extended with leading 0xFF bytes,
// non-negative values with 0x00, so the array reads back as a big-endian
// two's-complement integer of exactly len(dst) bytes.
func encodeDecimalBig(dst, digits []byte) error {
	n, ok := new(big.Int).SetString(string(digits), 10)
	if !ok {
		return xerrors.Newf(xerrors.ErrorTypeEncode, "malformed decimal %q", digits)
	}

	if n.Sign() < 0 {
		n.Add(n, twosComplementModulus(len(dst)))
	}
	if n.BitLen() > len(dst)*8 {
		return xerrors.Newf(xerrors.ErrorTypeEncode,
			"decimal %q does not fit %d bytes", digits, len(dst))
	}
	n.FillBytes(dst)
	return nil
}

// DecodeDecimal interprets a big-endian two's-complement byte array with the
// given scale and renders it back as a textual decimal.
func DecodeDecimal(b []byte, scale int) string {
	n := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		n.Sub(n, twosComplementModulus(len(b)))
	}
	return formatScaled(n, scale)
}

func twosComplementModulus(byteLen int) *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), uint(byteLen)*8)
}

// formatScaled renders an unscaled integer with the decimal point inserted
// scale digits from the right, preserving leading fractional zeros.
func formatScaled(n *big.Int, scale int) string {
	digits := new(big.Int).Abs(n).String()
	sign := ""
	if n.Sign() < 0 {
		sign = "-"
	}

	if scale <= 0 {
		return sign + digits
	}
	if len(digits) <= scale {
		pad := make([]byte, scale-len(digits))
		for i := range pad {
			pad[i] = '0'
		}
		return sign + "0." + string(pad) + digits
	}
	split := len(digits) - scale
	return sign + digits[:split] + "." + digits[split:]
}
