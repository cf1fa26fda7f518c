package bridge

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestMessageID_Deterministic(t *testing.T) {
	a := MessageID("0xAA", "S1", big.NewInt(100000000))
	b := MessageID("0xAA", "S1", big.NewInt(100000000))
	if a != b {
		t.Fatalf("expected identical ids, got %x and %x", a, b)
	}

	// hex prefix and case do not change the id
	if c := MessageID("aa", "S1", big.NewInt(100000000)); c != a {
		t.Errorf("expected normalized tx hash to yield same id, got %x", c)
	}
}

func TestMessageID_DiffersPerField(t *testing.T) {
	base := MessageID("0xAA", "S1", big.NewInt(100))

	cases := map[string][32]byte{
		"tx hash": MessageID("0xAB", "S1", big.NewInt(100)),
		"sender":  MessageID("0xAA", "S2", big.NewInt(100)),
		"amount":  MessageID("0xAA", "S1", big.NewInt(101)),
	}
	for name, id := range cases {
		if id == base {
			t.Errorf("changing %s should change the id", name)
		}
	}
}

func TestNewDepositMessage(t *testing.T) {
	custodian := common.HexToAddress("0x00000000000000000000000000000000000000c5")
	event := &SourceDepositEvent{
		ID:                   "0xAA",
		EventType:            EventTypeDeposit,
		SourceAddress:        "S1",
		Amount:               big.NewInt(100000000),
		SourceTxHash:         "0xAA",
		BlockHeight:          42,
		DestinationCustodian: &custodian,
	}

	msg, err := NewDepositMessage(event, nil)
	if err != nil {
		t.Fatalf("NewDepositMessage failed: %v", err)
	}
	if msg.MessageID != EventMessageID(event) {
		t.Errorf("message id mismatch")
	}
	if msg.MessageType != MessageTypeDeposit {
		t.Errorf("expected deposit type, got %s", msg.MessageType)
	}
	if msg.DestinationCustodian != custodian {
		t.Errorf("expected custodian %s, got %s", custodian.Hex(), msg.DestinationCustodian.Hex())
	}
	if msg.SourceTxHash != common.HexToHash("0xaa") {
		t.Errorf("unexpected source tx hash %x", msg.SourceTxHash)
	}
	if len(msg.Proof) != 32 {
		t.Errorf("expected 32 byte placeholder proof, got %d", len(msg.Proof))
	}

	// the message owns its amount
	msg.Amount.SetInt64(1)
	if event.Amount.Int64() != 100000000 {
		t.Errorf("event amount mutated through message")
	}
}

func TestNewDepositMessage_MissingCustodian(t *testing.T) {
	event := &SourceDepositEvent{SourceTxHash: "0xAA", SourceAddress: "S1", Amount: big.NewInt(1)}

	_, err := NewDepositMessage(event, nil)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestSourceDepositEvent_Processed(t *testing.T) {
	event := &SourceDepositEvent{}
	if event.Processed() {
		t.Fatal("new event should not be processed")
	}
	event.MarkProcessed()
	if !event.Processed() {
		t.Fatal("expected processed flag")
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "100000000", want: "100000000"},
		{in: "1", want: "1"},
		{in: "raw:12345", want: "12345"},
		{in: "decimal:1", want: "100000000"},
		{in: "decimal:0.5", want: "50000000"},
		{in: "decimal:0.00000001", want: "1"},
		{in: "decimal:0.000000001", wantErr: true},
		{in: "decimal:-1", wantErr: true},
		{in: "1.5", wantErr: true},
		{in: "0", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "raw:abc", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.in, 8)
		if tt.wantErr {
			if !errors.Is(err, ErrValidation) {
				t.Errorf("ParseAmount(%q): expected validation error, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q) failed: %v", tt.in, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(big.NewInt(150000000), 8); got != "1.5" {
		t.Errorf("expected 1.5, got %s", got)
	}
	if got := FormatAmount(nil, 8); got != "0" {
		t.Errorf("expected 0, got %s", got)
	}
}
