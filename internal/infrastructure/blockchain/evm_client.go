package blockchain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

var (
	dialEVMClient    = ethclient.Dial
	getClientChainID = func(client *ethclient.Client, ctx context.Context) (*big.Int, error) {
		return client.ChainID(ctx)
	}
)

// receiptPollInterval is how often WaitForReceipt re-queries the node.
const receiptPollInterval = 2 * time.Second

// EVMClient provides EVM blockchain interaction
type EVMClient struct {
	client  *ethclient.Client
	chainID *big.Int
	rpcURL  string

	// test hooks, set only by NewEVMClientWithHooks
	testNonceAt     func(ctx context.Context, address common.Address) (uint64, error)
	testSendTx      func(ctx context.Context, tx *types.Transaction) error
	testReceipt     func(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	testEstimateGas func(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	testGasPrice    func(ctx context.Context) (*big.Int, error)
	testCallView    func(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
}

// NewEVMClient creates a new EVM client
func NewEVMClient(rpcURL string) (*EVMClient, error) {
	client, err := dialEVMClient(rpcURL)
	if err != nil {
		return nil, err
	}

	chainID, err := getClientChainID(client, context.Background())
	if err != nil {
		return nil, err
	}

	return &EVMClient{
		client:  client,
		chainID: chainID,
		rpcURL:  rpcURL,
	}, nil
}

// EVMClientHooks carries injected implementations for unit tests that
// cannot open RPC sockets.
type EVMClientHooks struct {
	NonceAt     func(ctx context.Context, address common.Address) (uint64, error)
	SendTx      func(ctx context.Context, tx *types.Transaction) error
	Receipt     func(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	EstimateGas func(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	GasPrice    func(ctx context.Context) (*big.Int, error)
	CallView    func(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
}

// NewEVMClientWithHooks creates an EVM client backed by injected
// implementations. Intended for unit tests.
func NewEVMClientWithHooks(chainID *big.Int, hooks EVMClientHooks) *EVMClient {
	if chainID == nil {
		chainID = big.NewInt(1)
	}
	return &EVMClient{
		chainID:         chainID,
		testNonceAt:     hooks.NonceAt,
		testSendTx:      hooks.SendTx,
		testReceipt:     hooks.Receipt,
		testEstimateGas: hooks.EstimateGas,
		testGasPrice:    hooks.GasPrice,
		testCallView:    hooks.CallView,
	}
}

// ChainID returns the chain ID
func (c *EVMClient) ChainID() *big.Int {
	return c.chainID
}

// GetNonce returns the account nonce including pending transactions
func (c *EVMClient) GetNonce(ctx context.Context, address string) (uint64, error) {
	addr := common.HexToAddress(address)
	if c.testNonceAt != nil {
		return c.testNonceAt(ctx, addr)
	}
	return c.client.PendingNonceAt(ctx, addr)
}

// GetBalance gets the native token balance of an address
func (c *EVMClient) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	addr := common.HexToAddress(address)
	return c.client.BalanceAt(ctx, addr, nil)
}

// SuggestGasPrice returns the node's suggested gas price
func (c *EVMClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if c.testGasPrice != nil {
		return c.testGasPrice(ctx)
	}
	return c.client.SuggestGasPrice(ctx)
}

// EstimateGas estimates gas for a transaction
func (c *EVMClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if c.testEstimateGas != nil {
		return c.testEstimateGas(ctx, msg)
	}
	return c.client.EstimateGas(ctx, msg)
}

// SubmitTransaction broadcasts a signed transaction
func (c *EVMClient) SubmitTransaction(ctx context.Context, tx *types.Transaction) error {
	if c.testSendTx != nil {
		return c.testSendTx(ctx, tx)
	}
	return c.client.SendTransaction(ctx, tx)
}

// GetTransactionReceipt gets a transaction receipt
func (c *EVMClient) GetTransactionReceipt(ctx context.Context, txHash string) (*types.Receipt, error) {
	hash := common.HexToHash(txHash)
	if c.testReceipt != nil {
		return c.testReceipt(ctx, hash)
	}
	return c.client.TransactionReceipt(ctx, hash)
}

// WaitForReceipt polls until the transaction is mined or the context
// expires. One confirmation is enough for this engine.
func (c *EVMClient) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	fetch := c.testReceipt
	if fetch == nil {
		fetch = c.client.TransactionReceipt
	}

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := fetch(ctx, txHash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && err != ethereum.NotFound {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for receipt %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// CallView executes a read-only contract call
func (c *EVMClient) CallView(ctx context.Context, to string, data []byte) ([]byte, error) {
	addr := common.HexToAddress(to)
	msg := ethereum.CallMsg{
		To:   &addr,
		Data: data,
	}
	if c.testCallView != nil {
		return c.testCallView(ctx, msg)
	}
	return c.client.CallContract(ctx, msg, nil)
}

// Close closes the client connection
func (c *EVMClient) Close() {
	if c.client != nil {
		c.client.Close()
	}
}
