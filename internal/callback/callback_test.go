package callback

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Payload
	}{
		{"underscore approve", "approve_42_abc1234567", Payload{Action: ActionApprove, UserID: "42", TxID: "abc1234567"}},
		{"underscore txid keeps delimiters", "reject_42_tx_with_under_scores", Payload{Action: ActionReject, UserID: "42", TxID: "tx_with_under_scores"}},
		{"underscore note", "note_7_0xdeadbeef00", Payload{Action: ActionNote, UserID: "7", TxID: "0xdeadbeef00"}},
		{"cancel with target", "cancel_note_7_tx_1_2", Payload{Action: ActionCancelNote, UserID: "7", TxID: "tx_1_2"}},
		{"bare cancel", "cancel_note", Payload{Action: ActionCancelNote}},
		{"legacy approve", "approve|42|abc1234567", Payload{Action: ActionApprove, UserID: "42", TxID: "abc1234567"}},
		{"legacy with note", "reject|42|abc1234567|wrong network", Payload{Action: ActionReject, UserID: "42", TxID: "abc1234567", Note: "wrong network"}},
		{"legacy note keeps pipes", "approve|42|abc1234567|a|b", Payload{Action: ActionApprove, UserID: "42", TxID: "abc1234567", Note: "a|b"}},
		{"legacy underscore txid", "note|42|tx_1", Payload{Action: ActionNote, UserID: "42", TxID: "tx_1"}},
		{"partial marker", "approve_42_abcdef*", Payload{Action: ActionApprove, UserID: "42", TxID: "abcdef", Partial: true}},
		{"underscore txid with pipes", "approve_42_abc|def|ghijkl", Payload{Action: ActionApprove, UserID: "42", TxID: "abc|def|ghijkl"}},
		{"underscore note txid with pipe", "note_42_a|b", Payload{Action: ActionNote, UserID: "42", TxID: "a|b"}},
		{"cancel txid with pipe", "cancel_note_42_x|y", Payload{Action: ActionCancelNote, UserID: "42", TxID: "x|y"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.data, got, tt.want)
			}
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	for _, data := range []string{
		"",
		"approve",
		"approve_42",
		"approve__tx",
		"approve_42_",
		"delete_42_abc1234567",
		"approve|42",
		"drop|42|abc1234567",
		"cancel_notex",
		"cancel_note_42",
		"approve_42|abc1234567",
		"drop_42_x|y",
	} {
		if _, err := Parse(data); !errors.Is(err, ErrMalformed) {
			t.Errorf("Parse(%q): expected ErrMalformed, got %v", data, err)
		}
	}
}

func TestEncode(t *testing.T) {
	if got := Approve("42", "tx_1").Encode(); got != "approve_42_tx_1" {
		t.Errorf("unexpected encoding %q", got)
	}
	if got := CancelNote("42", "tx_1").Encode(); got != "cancel_note_42_tx_1" {
		t.Errorf("unexpected encoding %q", got)
	}

	p, err := Parse(Note("42", "tx_1").Encode())
	if err != nil || p != Note("42", "tx_1") {
		t.Errorf("encoded payload did not parse back: %+v, %v", p, err)
	}
}

func TestEncode_TruncatesLongTxID(t *testing.T) {
	txID := strings.Repeat("f", 64)
	data := Approve("123456789", txID).Encode()

	if len(data) > MaxDataLength {
		t.Fatalf("payload exceeds limit: %d bytes", len(data))
	}

	p, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Partial {
		t.Errorf("expected truncated payload to be marked partial")
	}
	if !strings.HasPrefix(txID, p.TxID) {
		t.Errorf("expected %q to be a prefix of the txid", p.TxID)
	}
}

func TestEncode_PipeTxIDParsesBack(t *testing.T) {
	for _, p := range []Payload{
		Approve("42", "abc|def|ghijkl"),
		Reject("42", "|leading"),
		Note("42", "trailing|"),
	} {
		got, err := Parse(p.Encode())
		if err != nil {
			t.Fatalf("Parse(%q): %v", p.Encode(), err)
		}
		if got != p {
			t.Errorf("Parse(%q) = %+v, want %+v", p.Encode(), got, p)
		}
	}
}

func TestEncode_TruncatesOnRuneBoundary(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		txID   string
	}{
		{"two byte runes", "123456789", strings.Repeat("é", 40)},
		{"three byte runes", "42", strings.Repeat("€", 30)},
		{"four byte runes", "1", strings.Repeat("😀", 20)},
		{"mixed", "123456789", "a" + strings.Repeat("é", 40)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := Approve(tt.userID, tt.txID).Encode()
			if len(data) > MaxDataLength {
				t.Fatalf("payload exceeds limit: %d bytes", len(data))
			}
			if !utf8.ValidString(data) {
				t.Fatalf("payload is not valid UTF-8: %q", data)
			}
			p, err := Parse(data)
			if err != nil {
				t.Fatal(err)
			}
			if !p.Partial || !strings.HasPrefix(tt.txID, p.TxID) {
				t.Errorf("expected a partial prefix of the txid, got %+v", p)
			}
		})
	}
}
