package usecases

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"quorum-vault.backend/internal/config"
	domainerrors "quorum-vault.backend/internal/domain/errors"
	"quorum-vault.backend/internal/infrastructure/blockchain"
)

const adapterTestRPC = "http://adapter-test:8545"

func enabledChain() *config.ChainConfig {
	return &config.ChainConfig{
		Key:            "bsc-testnet",
		ChainID:        97,
		RPCURL:         adapterTestRPC,
		FactoryAddress: "0x4E83362442B8d1beC281594CEA3050c8EB01311C",
		MasterCopy:     "0x52908400098527886E0F7030069857D2E4169EE7",
		RelayerKey:     "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318",
		OnChainEnabled: true,
	}
}

func withSendContractTx(t *testing.T, fn func(ctx context.Context, rpcURL, relayerKey, contractAddress string, parsedABI abi.ABI, method string, args ...interface{}) (common.Hash, error)) {
	t.Helper()
	orig := sendContractTx
	sendContractTx = fn
	t.Cleanup(func() { sendContractTx = orig })
}

func newAdapterWithReceipt(receipt *types.Receipt) *SafeAdapter {
	factory := blockchain.NewClientFactory()
	client := blockchain.NewEVMClientWithHooks(big.NewInt(97), blockchain.EVMClientHooks{
		Receipt: func(_ context.Context, _ common.Hash) (*types.Receipt, error) {
			if receipt == nil {
				return nil, ethereum.NotFound
			}
			return receipt, nil
		},
	})
	factory.RegisterEVMClient(adapterTestRPC, client)
	return NewSafeAdapter(factory, 5*time.Second)
}

func TestSafeAdapter_UnsupportedChains(t *testing.T) {
	adapter := NewSafeAdapter(blockchain.NewClientFactory(), time.Second)

	_, err := adapter.Deploy(context.Background(), nil, []string{"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"}, 1)
	assert.ErrorIs(t, err, domainerrors.ErrUnsupportedChain)

	disabled := enabledChain()
	disabled.OnChainEnabled = false
	_, err = adapter.Deploy(context.Background(), disabled, []string{"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"}, 1)
	assert.ErrorIs(t, err, domainerrors.ErrOnChainUnsupported)

	noKey := enabledChain()
	noKey.RelayerKey = ""
	_, err = adapter.Execute(context.Background(), noKey, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", &TypedTransaction{}, nil)
	assert.ErrorIs(t, err, domainerrors.ErrOnChainUnsupported)

	_, err = adapter.WalletNonce(context.Background(), noKey, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	assert.ErrorIs(t, err, domainerrors.ErrOnChainUnsupported)
}

func TestSafeAdapter_Deploy_ParsesProxyCreationEvent(t *testing.T) {
	chain := enabledChain()
	proxy := common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	submitted := common.HexToHash("0x01")

	var gotMethod string
	withSendContractTx(t, func(_ context.Context, rpcURL, relayerKey, contractAddress string, _ abi.ABI, method string, _ ...interface{}) (common.Hash, error) {
		assert.Equal(t, chain.RPCURL, rpcURL)
		assert.Equal(t, chain.FactoryAddress, contractAddress)
		gotMethod = method
		return submitted, nil
	})

	receipt := &types.Receipt{
		Status: 1,
		Logs: []*types.Log{{
			Address: common.HexToAddress(chain.FactoryAddress),
			Topics: []common.Hash{
				proxyFactoryABI.Events["ProxyCreation"].ID,
				common.BytesToHash(proxy.Bytes()),
			},
		}},
	}
	adapter := newAdapterWithReceipt(receipt)

	address, err := adapter.Deploy(context.Background(), chain, []string{proxy.Hex()}, 1)
	require.NoError(t, err)
	assert.Equal(t, "createProxyWithNonce", gotMethod)
	assert.Equal(t, proxy.Hex(), address)
}

func TestSafeAdapter_Deploy_RevertedReceipt(t *testing.T) {
	chain := enabledChain()
	withSendContractTx(t, func(_ context.Context, _, _, _ string, _ abi.ABI, _ string, _ ...interface{}) (common.Hash, error) {
		return common.HexToHash("0x02"), nil
	})
	adapter := newAdapterWithReceipt(&types.Receipt{Status: 0})

	_, err := adapter.Deploy(context.Background(), chain, []string{"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"}, 1)
	assert.ErrorIs(t, err, domainerrors.ErrDeploymentFailed)
}

func TestSafeAdapter_Deploy_MissingEvent(t *testing.T) {
	chain := enabledChain()
	withSendContractTx(t, func(_ context.Context, _, _, _ string, _ abi.ABI, _ string, _ ...interface{}) (common.Hash, error) {
		return common.HexToHash("0x03"), nil
	})
	adapter := newAdapterWithReceipt(&types.Receipt{Status: 1})

	_, err := adapter.Deploy(context.Background(), chain, []string{"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"}, 1)
	assert.ErrorIs(t, err, domainerrors.ErrDeploymentFailed)
}

func TestSafeAdapter_Execute_Success(t *testing.T) {
	chain := enabledChain()
	wallet := "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	submitted := common.HexToHash("0x04")

	withSendContractTx(t, func(_ context.Context, _, _, contractAddress string, _ abi.ABI, method string, _ ...interface{}) (common.Hash, error) {
		assert.Equal(t, wallet, contractAddress)
		assert.Equal(t, "execTransaction", method)
		return submitted, nil
	})
	adapter := newAdapterWithReceipt(&types.Receipt{Status: 1})

	typed, err := BuildTypedTransaction(wallet, big.NewInt(97), "0x52908400098527886E0F7030069857D2E4169EE7", big.NewInt(1), nil, 0)
	require.NoError(t, err)

	txHash, err := adapter.Execute(context.Background(), chain, wallet, typed, []byte{0xaa})
	require.NoError(t, err)
	assert.Equal(t, submitted.Hex(), txHash)
}

func TestSafeAdapter_Execute_SubmissionFailure(t *testing.T) {
	chain := enabledChain()
	withSendContractTx(t, func(_ context.Context, _, _, _ string, _ abi.ABI, _ string, _ ...interface{}) (common.Hash, error) {
		return common.Hash{}, assert.AnError
	})
	adapter := newAdapterWithReceipt(&types.Receipt{Status: 1})

	typed, err := BuildTypedTransaction("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", big.NewInt(97), "0x52908400098527886E0F7030069857D2E4169EE7", big.NewInt(1), nil, 0)
	require.NoError(t, err)

	_, err = adapter.Execute(context.Background(), chain, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", typed, nil)
	assert.ErrorIs(t, err, domainerrors.ErrExecutionFailed)
}

func TestSafeAdapter_WalletNonce(t *testing.T) {
	chain := enabledChain()
	factory := blockchain.NewClientFactory()
	encoded, err := safeWalletABI.Methods["nonce"].Outputs.Pack(big.NewInt(9))
	require.NoError(t, err)

	client := blockchain.NewEVMClientWithHooks(big.NewInt(97), blockchain.EVMClientHooks{
		CallView: func(_ context.Context, _ ethereum.CallMsg) ([]byte, error) {
			return encoded, nil
		},
	})
	factory.RegisterEVMClient(adapterTestRPC, client)
	adapter := NewSafeAdapter(factory, time.Second)

	nonce, err := adapter.WalletNonce(context.Background(), chain, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	require.NoError(t, err)
	assert.Equal(t, uint64(9), nonce)
}
