package chain

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestMethodID(t *testing.T) {
	// Known ERC-20 selectors.
	cases := map[string]string{
		"transfer(address,uint256)":             "a9059cbb",
		"transferFrom(address,address,uint256)": "23b872dd",
		"approve(address,uint256)":              "095ea7b3",
		"balanceOf(address)":                    "70a08231",
	}
	for sig, want := range cases {
		got := hex.EncodeToString(MethodID(sig))
		if got != want {
			t.Errorf("MethodID(%q) = %s, want %s", sig, got, want)
		}
	}
}

func TestPackCall(t *testing.T) {
	to := common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	amount := big.NewInt(1_000_000)

	data, err := PackCall("transfer(address,uint256)", to, amount)
	if err != nil {
		t.Fatalf("PackCall() error = %v", err)
	}
	if len(data) != 4+2*Word {
		t.Fatalf("PackCall() len = %d, want %d", len(data), 4+2*Word)
	}
	if !bytes.Equal(data[:4], MethodID("transfer(address,uint256)")) {
		t.Error("selector mismatch")
	}
	if !bytes.Equal(data[4:4+Word], common.LeftPadBytes(to.Bytes(), Word)) {
		t.Error("address word mismatch")
	}
	if !bytes.Equal(data[4+Word:], common.LeftPadBytes(amount.Bytes(), Word)) {
		t.Error("amount word mismatch")
	}
}

func TestPackCallRejectsUnsupported(t *testing.T) {
	if _, err := PackCall("f(string)", "nope"); err == nil {
		t.Error("PackCall() should reject unsupported types")
	}
	if _, err := PackCall("f(uint256)", big.NewInt(-1)); err == nil {
		t.Error("PackCall() should reject negative integers")
	}
}

func TestWordDecoding(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	blob := append(
		common.LeftPadBytes(big.NewInt(42).Bytes(), Word),
		common.LeftPadBytes(addr.Bytes(), Word)...,
	)

	n, err := BigAt(blob, 0)
	if err != nil {
		t.Fatalf("BigAt() error = %v", err)
	}
	if n.Int64() != 42 {
		t.Errorf("BigAt() = %s, want 42", n)
	}

	got, err := AddressAt(blob, 1)
	if err != nil {
		t.Fatalf("AddressAt() error = %v", err)
	}
	if got != addr {
		t.Errorf("AddressAt() = %s, want %s", got.Hex(), addr.Hex())
	}

	if _, err := WordAt(blob, 2); err == nil {
		t.Error("WordAt() should fail past the end of the blob")
	}
}
