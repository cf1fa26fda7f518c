package stacks

import (
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

const (
	testSender  = "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7"
	testHash160 = "a46ff88886c2ef9762d970b4d2c63678835bd39d"
)

func TestDecodeC32Address(t *testing.T) {
	version, h, err := DecodeC32Address(testSender)
	if err != nil {
		t.Fatalf("DecodeC32Address failed: %v", err)
	}
	if version != 22 {
		t.Errorf("expected version 22, got %d", version)
	}
	if got := hex.EncodeToString(h[:]); got != testHash160 {
		t.Errorf("expected hash160 %s, got %s", testHash160, got)
	}
}

func TestC32Address_RoundTrip(t *testing.T) {
	tests := []struct {
		version byte
		hash    string
		want    string
	}{
		{version: 22, hash: testHash160, want: testSender},
		{version: 26, hash: testHash160, want: "ST2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKQYAC0RQ"},
		{version: 22, hash: "0000000000000000000000000000000000000000", want: "SP000000000000000000002Q6VF78"},
	}
	for _, tt := range tests {
		var h [20]byte
		raw, _ := hex.DecodeString(tt.hash)
		copy(h[:], raw)

		got := C32Address(tt.version, h)
		if got != tt.want {
			t.Errorf("C32Address(%d, %s) = %s, want %s", tt.version, tt.hash, got, tt.want)
			continue
		}
		v, back, err := DecodeC32Address(got)
		if err != nil || v != tt.version || back != h {
			t.Errorf("round trip of %s failed: v=%d err=%v", got, v, err)
		}
	}
}

func TestDecodeC32Address_Invalid(t *testing.T) {
	for _, addr := range []string{
		"",
		"XP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7",
		"SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ8", // checksum
		"SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ!",
	} {
		if _, _, err := DecodeC32Address(addr); err == nil {
			t.Errorf("expected error for %q", addr)
		}
	}
}

func TestPrincipal_Serialize(t *testing.T) {
	p, err := ParsePrincipal(testSender)
	if err != nil {
		t.Fatalf("ParsePrincipal failed: %v", err)
	}
	if got := hex.EncodeToString(p.Serialize()); got != "0516"+testHash160 {
		t.Errorf("unexpected standard principal encoding %s", got)
	}

	c, err := ParsePrincipal(testSender + ".registry")
	if err != nil {
		t.Fatalf("ParsePrincipal failed: %v", err)
	}
	want := "0616" + testHash160 + "08" + hex.EncodeToString([]byte("registry"))
	if got := hex.EncodeToString(c.Serialize()); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
	if c.String() != testSender+".registry" {
		t.Errorf("unexpected string form %s", c.String())
	}

	arg, err := PrincipalArg(testSender)
	if err != nil || arg != "0x0516"+testHash160 {
		t.Errorf("unexpected argument %s (%v)", arg, err)
	}
}

func TestDecodeCustodianResult(t *testing.T) {
	custodian := common.HexToAddress("0x00000000000000000000000000000000000000c5")
	buff := "02" + "00000014" + hex.EncodeToString(custodian.Bytes())
	ascii := hex.EncodeToString([]byte(custodian.Hex()))

	tests := []struct {
		name    string
		in      string
		want    *common.Address
		wantErr bool
	}{
		{name: "ok some buff", in: "0x070a" + buff, want: &custodian},
		{name: "some buff", in: "0x0a" + buff, want: &custodian},
		{name: "bare buff", in: buff, want: &custodian},
		{name: "string", in: "0x0a0d0000002a" + ascii, want: &custodian},
		{name: "none", in: "0x09"},
		{name: "ok none", in: "0x0709"},
		{name: "empty buff", in: "0x0a0200000000"},
		{name: "err", in: "0x0801", wantErr: true},
		{name: "short buff", in: "0x0a02000000140102", wantErr: true},
		{name: "wrong length", in: "0x0a020000000201ff", wantErr: true},
		{name: "bad hex", in: "0xzz", wantErr: true},
		{name: "unsupported", in: "0x01", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCustodianResult(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want == nil {
				if got != nil {
					t.Errorf("expected nil custodian, got %s", got.Hex())
				}
				return
			}
			if got == nil || *got != *tt.want {
				t.Errorf("expected %s, got %v", tt.want.Hex(), got)
			}
		})
	}
}
