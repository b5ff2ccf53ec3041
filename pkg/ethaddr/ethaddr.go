package ethaddr

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Normalize returns the EIP-55 checksummed form of an address.
// Every address comparison in the engine goes through this first, so
// differently-cased representations of the same address compare equal.
func Normalize(address string) (string, error) {
	trimmed := strings.TrimSpace(address)
	if !common.IsHexAddress(trimmed) {
		return "", fmt.Errorf("invalid address %q", address)
	}
	return common.HexToAddress(trimmed).Hex(), nil
}

// MustNormalize is Normalize for addresses already known to be valid.
func MustNormalize(address string) string {
	normalized, err := Normalize(address)
	if err != nil {
		panic(err)
	}
	return normalized
}

// Equal reports whether two addresses refer to the same account,
// ignoring case and padding differences. Malformed input never equals
// anything, including itself.
func Equal(a, b string) bool {
	na, errA := Normalize(a)
	nb, errB := Normalize(b)
	if errA != nil || errB != nil {
		return false
	}
	return na == nb
}

// FallbackAddress derives a stable placeholder address for a wallet
// that has not (or cannot) be deployed on-chain. The derivation is a
// CREATE2-style image of the chain id, sorted signer set and threshold,
// so repeated calls with the same inputs yield the same address. The
// result is not independently verifiable on-chain.
func FallbackAddress(chainID *big.Int, signers []string, threshold int) (string, error) {
	if chainID == nil {
		return "", fmt.Errorf("nil chain id")
	}

	normalized := make([]string, 0, len(signers))
	for _, s := range signers {
		n, err := Normalize(s)
		if err != nil {
			return "", err
		}
		normalized = append(normalized, n)
	}
	sort.Strings(normalized)

	preimage := make([]byte, 0, 32+len(normalized)*common.AddressLength+32)
	preimage = append(preimage, common.LeftPadBytes(chainID.Bytes(), 32)...)
	for _, n := range normalized {
		preimage = append(preimage, common.HexToAddress(n).Bytes()...)
	}
	preimage = append(preimage, common.LeftPadBytes(big.NewInt(int64(threshold)).Bytes(), 32)...)

	digest := crypto.Keccak256(preimage)
	return common.BytesToAddress(digest[12:]).Hex(), nil
}
