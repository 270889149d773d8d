package minting

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"

	"vibemint/internal/domain"
	"vibemint/internal/wallet"
)

// createCoinSignature is the factory function the platform exposes for
// creating a coin with a payout recipient and platform referrer.
const createCoinSignature = "createCoin(string,string,string,address,address)"

// BuildCreateCoinCall validates the params and encodes the factory call.
func BuildCreateCoinCall(factoryAddress string, params domain.MintParams) (wallet.ContractCall, error) {
	if err := params.Validate(); err != nil {
		return wallet.ContractCall{}, err
	}
	if _, err := parseAddress(factoryAddress); err != nil {
		return wallet.ContractCall{}, fmt.Errorf("factory address: %w", err)
	}

	payout, err := parseAddress(params.PayoutRecipient)
	if err != nil {
		return wallet.ContractCall{}, fmt.Errorf("payout recipient: %w", err)
	}

	// A missing referrer encodes as the zero address.
	var referrer [20]byte
	if params.PlatformReferrer != "" {
		referrer, err = parseAddress(params.PlatformReferrer)
		if err != nil {
			return wallet.ContractCall{}, fmt.Errorf("platform referrer: %w", err)
		}
	}

	data := selector(createCoinSignature)
	data = append(data, encodeArgs(params.Name, params.Symbol, params.ContentURI, payout, referrer)...)

	return wallet.ContractCall{To: factoryAddress, Data: data}, nil
}

// selector returns the 4-byte function selector.
func selector(signature string) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	return h.Sum(nil)[:4]
}

// encodeArgs ABI-encodes (string, string, string, address, address).
// Three dynamic heads point into the tail; addresses encode inline.
func encodeArgs(name, symbol, uri string, payout, referrer [20]byte) []byte {
	const headSlots = 5
	head := make([]byte, 0, headSlots*32)
	var tail []byte

	appendOffset := func(s string) {
		offset := headSlots*32 + len(tail)
		head = append(head, encodeUint(uint64(offset))...)
		tail = append(tail, encodeString(s)...)
	}

	appendOffset(name)
	appendOffset(symbol)
	appendOffset(uri)
	head = append(head, encodeAddress(payout)...)
	head = append(head, encodeAddress(referrer)...)

	return append(head, tail...)
}

// encodeUint encodes a uint as a 32-byte big-endian word.
func encodeUint(v uint64) []byte {
	word := make([]byte, 32)
	for i := 0; i < 8; i++ {
		word[31-i] = byte(v >> (8 * i))
	}
	return word
}

// encodeAddress left-pads a 20-byte address to a 32-byte word.
func encodeAddress(addr [20]byte) []byte {
	word := make([]byte, 32)
	copy(word[12:], addr[:])
	return word
}

// encodeString encodes length plus data padded to a 32-byte boundary.
func encodeString(s string) []byte {
	data := []byte(s)
	padded := (len(data) + 31) / 32 * 32
	out := make([]byte, 0, 32+padded)
	out = append(out, encodeUint(uint64(len(data)))...)
	out = append(out, data...)
	out = append(out, make([]byte, padded-len(data))...)
	return out
}

// parseAddress decodes a 0x-prefixed 20-byte hex address.
func parseAddress(s string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(s, "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("decode address %q: %w", s, err)
	}
	if len(raw) != 20 {
		return addr, fmt.Errorf("address %q is %d bytes, want 20", s, len(raw))
	}
	copy(addr[:], raw)
	return addr, nil
}
