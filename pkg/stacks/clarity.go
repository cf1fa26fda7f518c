package stacks

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Clarity value type prefixes (consensus serialization)
const (
	clarityBuffer            byte = 0x02
	clarityResponseOk        byte = 0x07
	clarityResponseErr       byte = 0x08
	clarityOptionalNone      byte = 0x09
	clarityOptionalSome      byte = 0x0a
	clarityStandardPrincipal byte = 0x05
	clarityContractPrincipal byte = 0x06
	clarityStringASCII       byte = 0x0d
	clarityStringUTF8        byte = 0x0e
)

const (
	c32Alphabet    = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
	hash160Len     = 20
	checksumLen    = 4
	maxContractLen = 128
)

var (
	errInvalidAddress = errors.New("invalid c32 address")
	errShortValue     = errors.New("clarity value truncated")
)

// Principal is a decoded Stacks principal
type Principal struct {
	Version  byte
	Hash160  [hash160Len]byte
	Contract string // empty for standard principals
}

// String renders the principal in c32check form
func (p Principal) String() string {
	addr := C32Address(p.Version, p.Hash160)
	if p.Contract != "" {
		return addr + "." + p.Contract
	}
	return addr
}

// ParsePrincipal decodes "SP..." or "SP....contract-name"
func ParsePrincipal(s string) (Principal, error) {
	addr, name, _ := strings.Cut(strings.TrimSpace(s), ".")
	version, h, err := DecodeC32Address(addr)
	if err != nil {
		return Principal{}, err
	}
	if len(name) > maxContractLen {
		return Principal{}, fmt.Errorf("%w: contract name too long", errInvalidAddress)
	}
	return Principal{Version: version, Hash160: h, Contract: name}, nil
}

// Serialize returns the Clarity wire encoding of the principal
func (p Principal) Serialize() []byte {
	var buf bytes.Buffer
	if p.Contract == "" {
		buf.WriteByte(clarityStandardPrincipal)
	} else {
		buf.WriteByte(clarityContractPrincipal)
	}
	buf.WriteByte(p.Version)
	buf.Write(p.Hash160[:])
	if p.Contract != "" {
		buf.WriteByte(byte(len(p.Contract)))
		buf.WriteString(p.Contract)
	}
	return buf.Bytes()
}

// PrincipalArg encodes a principal as a hex read-only call argument
func PrincipalArg(s string) (string, error) {
	p, err := ParsePrincipal(s)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(p.Serialize()), nil
}

// DecodeC32Address decodes a c32check Stacks address into its version and hash160
func DecodeC32Address(addr string) (byte, [hash160Len]byte, error) {
	var out [hash160Len]byte
	addr = normalizeC32(addr)
	if len(addr) < 3 || addr[0] != 'S' {
		return 0, out, fmt.Errorf("%w: %q", errInvalidAddress, addr)
	}

	version := strings.IndexByte(c32Alphabet, addr[1])
	if version < 0 {
		return 0, out, fmt.Errorf("%w: bad version character in %q", errInvalidAddress, addr)
	}

	payload, err := c32Decode(addr[2:])
	if err != nil {
		return 0, out, err
	}
	if len(payload) > hash160Len+checksumLen {
		return 0, out, fmt.Errorf("%w: payload too long", errInvalidAddress)
	}
	if len(payload) < hash160Len+checksumLen {
		padded := make([]byte, hash160Len+checksumLen)
		copy(padded[len(padded)-len(payload):], payload)
		payload = padded
	}

	copy(out[:], payload[:hash160Len])
	want := c32Checksum(byte(version), out[:])
	if !bytes.Equal(want, payload[hash160Len:]) {
		return 0, out, fmt.Errorf("%w: checksum mismatch", errInvalidAddress)
	}
	return byte(version), out, nil
}

// C32Address encodes a version and hash160 as a c32check address
func C32Address(version byte, h [hash160Len]byte) string {
	payload := make([]byte, 0, hash160Len+checksumLen)
	payload = append(payload, h[:]...)
	payload = append(payload, c32Checksum(version, h[:])...)
	return "S" + string(c32Alphabet[version&0x1f]) + c32Encode(payload)
}

func c32Checksum(version byte, data []byte) []byte {
	first := sha256.Sum256(append([]byte{version}, data...))
	second := sha256.Sum256(first[:])
	return second[:checksumLen]
}

// c32Encode writes data as base32 digits; each leading zero byte becomes a leading '0'
func c32Encode(data []byte) string {
	zeros := 0
	for zeros < len(data) && data[zeros] == 0 {
		zeros++
	}

	n := new(big.Int).SetBytes(data)
	base := big.NewInt(32)
	mod := new(big.Int)
	var digits []byte
	for n.Sign() > 0 {
		n.DivMod(n, base, mod)
		digits = append(digits, c32Alphabet[mod.Int64()])
	}
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return strings.Repeat("0", zeros) + string(digits)
}

func c32Decode(s string) ([]byte, error) {
	zeros := 0
	for zeros < len(s) && s[zeros] == '0' {
		zeros++
	}

	n := new(big.Int)
	base := big.NewInt(32)
	for i := zeros; i < len(s); i++ {
		d := strings.IndexByte(c32Alphabet, s[i])
		if d < 0 {
			return nil, fmt.Errorf("%w: invalid character %q", errInvalidAddress, s[i])
		}
		n.Mul(n, base)
		n.Add(n, big.NewInt(int64(d)))
	}
	return append(make([]byte, zeros), n.Bytes()...), nil
}

func normalizeC32(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer("O", "0", "L", "1", "I", "1").Replace(s)
}

// DecodeCustodianResult extracts an EVM address from a read-only call result.
// Accepted shapes are (response ...), (optional ...), a 20-byte buffer, or an
// ASCII/UTF-8 string holding a hex address. none and empty values return nil.
func DecodeCustodianResult(result string) (*common.Address, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(result), "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode result hex: %w", err)
	}
	return decodeCustodian(raw)
}

func decodeCustodian(raw []byte) (*common.Address, error) {
	if len(raw) == 0 {
		return nil, errShortValue
	}
	switch raw[0] {
	case clarityResponseOk, clarityOptionalSome:
		return decodeCustodian(raw[1:])
	case clarityOptionalNone:
		return nil, nil
	case clarityResponseErr:
		return nil, errors.New("custodian lookup returned err")
	case clarityBuffer:
		b, err := readLengthPrefixed(raw[1:])
		if err != nil {
			return nil, err
		}
		if len(b) == 0 {
			return nil, nil
		}
		if len(b) != common.AddressLength {
			return nil, fmt.Errorf("custodian buffer has %d bytes, want %d", len(b), common.AddressLength)
		}
		addr := common.BytesToAddress(b)
		return zeroAsNil(addr), nil
	case clarityStringASCII, clarityStringUTF8:
		b, err := readLengthPrefixed(raw[1:])
		if err != nil {
			return nil, err
		}
		s := strings.TrimSpace(string(b))
		if s == "" {
			return nil, nil
		}
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("custodian %q is not an EVM address", s)
		}
		return zeroAsNil(common.HexToAddress(s)), nil
	default:
		return nil, fmt.Errorf("unsupported clarity type 0x%02x", raw[0])
	}
}

func readLengthPrefixed(raw []byte) ([]byte, error) {
	if len(raw) < 4 {
		return nil, errShortValue
	}
	n := binary.BigEndian.Uint32(raw[:4])
	if uint64(len(raw)-4) < uint64(n) {
		return nil, errShortValue
	}
	return raw[4 : 4+n], nil
}

func zeroAsNil(addr common.Address) *common.Address {
	if addr == (common.Address{}) {
		return nil
	}
	return &addr
}
