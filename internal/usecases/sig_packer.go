package usecases

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"quorum-vault.backend/pkg/ethaddr"
)

// SignerSignature pairs a signer address with the signature it produced
// over the typed transaction hash.
type SignerSignature struct {
	Signer    string
	Signature string // 0x-prefixed hex
}

// PackSignatures concatenates signatures sorted by normalized signer
// address ascending. The wallet contract iterates recovered signers and
// requires strictly increasing addresses, so any other order reverts
// on-chain.
func PackSignatures(sigs []SignerSignature) ([]byte, error) {
	type normalized struct {
		addr string
		raw  []byte
	}

	entries := make([]normalized, 0, len(sigs))
	for _, s := range sigs {
		addr, err := ethaddr.Normalize(s.Signer)
		if err != nil {
			return nil, err
		}
		raw, err := hex.DecodeString(strings.TrimPrefix(s.Signature, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid signature for %s: %w", addr, err)
		}
		if len(raw) == 0 {
			return nil, fmt.Errorf("empty signature for %s", addr)
		}
		entries = append(entries, normalized{addr: addr, raw: raw})
	}

	sort.Slice(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].addr) < strings.ToLower(entries[j].addr)
	})

	var packed []byte
	for _, e := range entries {
		packed = append(packed, e.raw...)
	}
	return packed, nil
}
