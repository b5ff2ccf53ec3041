package usecases

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Safe-style operation kinds.
const (
	OperationCall         = 0
	OperationDelegateCall = 1
)

// TypedTransaction is the canonical structured representation of a
// multisig transfer. Its hash is what each signer signs off-chain.
type TypedTransaction struct {
	WalletAddress  common.Address
	ChainID        *big.Int
	To             common.Address
	Value          *big.Int
	Data           []byte
	Operation      uint8
	SafeTxGas      *big.Int
	BaseGas        *big.Int
	GasPrice       *big.Int
	GasToken       common.Address
	RefundReceiver common.Address
	Nonce          *big.Int
}

// BuildTypedTransaction assembles a simple-transfer transaction with all
// gas parameters zeroed, matching what the wallet contract expects for
// plain value moves.
func BuildTypedTransaction(walletAddress string, chainID *big.Int, recipient string, value *big.Int, data []byte, nonce uint64) (*TypedTransaction, error) {
	if !common.IsHexAddress(walletAddress) {
		return nil, fmt.Errorf("invalid wallet address: %s", walletAddress)
	}
	if !common.IsHexAddress(recipient) {
		return nil, fmt.Errorf("invalid recipient address: %s", recipient)
	}
	if value == nil || value.Sign() < 0 {
		return nil, fmt.Errorf("invalid transfer value")
	}

	return &TypedTransaction{
		WalletAddress:  common.HexToAddress(walletAddress),
		ChainID:        chainID,
		To:             common.HexToAddress(recipient),
		Value:          value,
		Data:           data,
		Operation:      OperationCall,
		SafeTxGas:      big.NewInt(0),
		BaseGas:        big.NewInt(0),
		GasPrice:       big.NewInt(0),
		GasToken:       common.Address{},
		RefundReceiver: common.Address{},
		Nonce:          new(big.Int).SetUint64(nonce),
	}, nil
}

// Hash computes the EIP-712 digest of the transaction: the domain binds
// the chain id and the wallet contract address so a signature cannot be
// replayed against another wallet or chain.
func (tx *TypedTransaction) Hash() (common.Hash, error) {
	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"SafeTx": []apitypes.Type{
				{Name: "to", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "data", Type: "bytes"},
				{Name: "operation", Type: "uint8"},
				{Name: "safeTxGas", Type: "uint256"},
				{Name: "baseGas", Type: "uint256"},
				{Name: "gasPrice", Type: "uint256"},
				{Name: "gasToken", Type: "address"},
				{Name: "refundReceiver", Type: "address"},
				{Name: "nonce", Type: "uint256"},
			},
		},
		PrimaryType: "SafeTx",
		Domain: apitypes.TypedDataDomain{
			ChainId:           (*math.HexOrDecimal256)(tx.ChainID),
			VerifyingContract: tx.WalletAddress.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"to":             tx.To.Hex(),
			"value":          (*math.HexOrDecimal256)(tx.Value),
			"data":           "0x" + hex.EncodeToString(tx.Data),
			"operation":      (*math.HexOrDecimal256)(big.NewInt(int64(tx.Operation))),
			"safeTxGas":      (*math.HexOrDecimal256)(tx.SafeTxGas),
			"baseGas":        (*math.HexOrDecimal256)(tx.BaseGas),
			"gasPrice":       (*math.HexOrDecimal256)(tx.GasPrice),
			"gasToken":       tx.GasToken.Hex(),
			"refundReceiver": tx.RefundReceiver.Hex(),
			"nonce":          (*math.HexOrDecimal256)(tx.Nonce),
		},
	}

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash domain: %w", err)
	}

	messageHash, err := typedData.HashStruct("SafeTx", typedData.Message)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash message: %w", err)
	}

	// keccak256("\x19\x01" || domainSeparator || messageHash)
	rawData := append([]byte{0x19, 0x01}, append(domainSeparator, messageHash...)...)
	return common.BytesToHash(crypto.Keccak256(rawData)), nil
}

// HashHex returns the lowercase 0x-prefixed digest.
func (tx *TypedTransaction) HashHex() (string, error) {
	h, err := tx.Hash()
	if err != nil {
		return "", err
	}
	return strings.ToLower(h.Hex()), nil
}
