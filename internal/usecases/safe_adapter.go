package usecases

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
	"quorum-vault.backend/internal/config"
	domainerrors "quorum-vault.backend/internal/domain/errors"
	"quorum-vault.backend/internal/infrastructure/blockchain"
	"quorum-vault.backend/pkg/logger"
)

var (
	proxyFactoryABI = mustParseABI(`[
		{"inputs":[{"internalType":"address","name":"_singleton","type":"address"},{"internalType":"bytes","name":"initializer","type":"bytes"},{"internalType":"uint256","name":"saltNonce","type":"uint256"}],"name":"createProxyWithNonce","outputs":[{"internalType":"address","name":"proxy","type":"address"}],"stateMutability":"nonpayable","type":"function"},
		{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"proxy","type":"address"},{"indexed":false,"internalType":"address","name":"singleton","type":"address"}],"name":"ProxyCreation","type":"event"}
	]`)
	safeWalletABI = mustParseABI(`[
		{"inputs":[{"internalType":"address[]","name":"_owners","type":"address[]"},{"internalType":"uint256","name":"_threshold","type":"uint256"},{"internalType":"address","name":"to","type":"address"},{"internalType":"bytes","name":"data","type":"bytes"},{"internalType":"address","name":"fallbackHandler","type":"address"},{"internalType":"address","name":"paymentToken","type":"address"},{"internalType":"uint256","name":"payment","type":"uint256"},{"internalType":"address payable","name":"paymentReceiver","type":"address"}],"name":"setup","outputs":[],"stateMutability":"nonpayable","type":"function"},
		{"inputs":[{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"value","type":"uint256"},{"internalType":"bytes","name":"data","type":"bytes"},{"internalType":"uint8","name":"operation","type":"uint8"},{"internalType":"uint256","name":"safeTxGas","type":"uint256"},{"internalType":"uint256","name":"baseGas","type":"uint256"},{"internalType":"uint256","name":"gasPrice","type":"uint256"},{"internalType":"address","name":"gasToken","type":"address"},{"internalType":"address payable","name":"refundReceiver","type":"address"},{"internalType":"bytes","name":"signatures","type":"bytes"}],"name":"execTransaction","outputs":[{"internalType":"bool","name":"success","type":"bool"}],"stateMutability":"payable","type":"function"},
		{"inputs":[],"name":"nonce","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
	]`)

	sendContractTx = func(ctx context.Context, rpcURL, relayerKey, contractAddress string, parsedABI abi.ABI, method string, args ...interface{}) (common.Hash, error) {
		client, err := ethclient.DialContext(ctx, rpcURL)
		if err != nil {
			return common.Hash{}, err
		}
		defer client.Close()

		privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(relayerKey, "0x"))
		if err != nil {
			return common.Hash{}, fmt.Errorf("invalid relayer key: %w", err)
		}

		chainID, err := client.ChainID(ctx)
		if err != nil {
			return common.Hash{}, err
		}
		auth, err := bind.NewKeyedTransactorWithChainID(privateKey, chainID)
		if err != nil {
			return common.Hash{}, err
		}
		auth.Context = ctx

		contract := bind.NewBoundContract(common.HexToAddress(contractAddress), parsedABI, client, client, client)
		tx, err := contract.Transact(auth, method, args...)
		if err != nil {
			return common.Hash{}, err
		}
		return tx.Hash(), nil
	}
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// OnChainAdapter deploys wallet contracts and submits aggregate-signature
// execution calls. Implementations return ErrOnChainUnsupported when the
// chain has no execution capability configured, which sends the caller
// down the off-chain completion path.
type OnChainAdapter interface {
	Deploy(ctx context.Context, chain *config.ChainConfig, signers []string, threshold int) (string, error)
	Execute(ctx context.Context, chain *config.ChainConfig, walletAddress string, tx *TypedTransaction, packedSigs []byte) (string, error)
	WalletNonce(ctx context.Context, chain *config.ChainConfig, walletAddress string) (uint64, error)
}

// SafeAdapter drives a Safe-compatible proxy factory and wallet contract
// through a relayer account.
type SafeAdapter struct {
	clientFactory *blockchain.ClientFactory
	rpcTimeout    time.Duration
}

func NewSafeAdapter(clientFactory *blockchain.ClientFactory, rpcTimeout time.Duration) *SafeAdapter {
	return &SafeAdapter{clientFactory: clientFactory, rpcTimeout: rpcTimeout}
}

func (a *SafeAdapter) supported(chain *config.ChainConfig) error {
	if chain == nil {
		return domainerrors.ErrUnsupportedChain
	}
	if !chain.OnChainEnabled || chain.RPCURL == "" || chain.RelayerKey == "" || chain.FactoryAddress == "" {
		return domainerrors.ErrOnChainUnsupported
	}
	return nil
}

// Deploy submits a createProxyWithNonce factory call and parses the
// deployed proxy address from the ProxyCreation event in the receipt.
func (a *SafeAdapter) Deploy(ctx context.Context, chain *config.ChainConfig, signers []string, threshold int) (string, error) {
	if err := a.supported(chain); err != nil {
		return "", err
	}

	owners := make([]common.Address, 0, len(signers))
	for _, s := range signers {
		owners = append(owners, common.HexToAddress(s))
	}

	initializer, err := safeWalletABI.Pack("setup",
		owners,
		big.NewInt(int64(threshold)),
		common.Address{},
		[]byte{},
		common.Address{},
		common.Address{},
		big.NewInt(0),
		common.Address{},
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domainerrors.ErrDeploymentFailed, err)
	}

	saltNonce := new(big.Int).SetBytes(crypto.Keccak256(initializer)[:16])

	ctx, cancel := context.WithTimeout(ctx, a.rpcTimeout)
	defer cancel()

	txHash, err := sendContractTx(ctx, chain.RPCURL, chain.RelayerKey, chain.FactoryAddress, proxyFactoryABI,
		"createProxyWithNonce", common.HexToAddress(chain.MasterCopy), initializer, saltNonce)
	if err != nil {
		logger.Warn(ctx, "wallet deployment submission failed",
			zap.String("chain", chain.Key),
			zap.Error(err))
		return "", fmt.Errorf("%w: %v", domainerrors.ErrDeploymentFailed, err)
	}

	client, err := a.clientFactory.GetEVMClient(chain.RPCURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domainerrors.ErrDeploymentFailed, err)
	}
	receipt, err := client.WaitForReceipt(ctx, txHash)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domainerrors.ErrDeploymentFailed, err)
	}
	if receipt.Status != 1 {
		return "", fmt.Errorf("%w: deployment transaction reverted", domainerrors.ErrDeploymentFailed)
	}

	proxyTopic := proxyFactoryABI.Events["ProxyCreation"].ID
	factoryAddr := common.HexToAddress(chain.FactoryAddress)
	for _, lg := range receipt.Logs {
		if lg.Address != factoryAddr || len(lg.Topics) < 2 || lg.Topics[0] != proxyTopic {
			continue
		}
		return common.BytesToAddress(lg.Topics[1].Bytes()).Hex(), nil
	}
	return "", fmt.Errorf("%w: proxy address not found in receipt", domainerrors.ErrDeploymentFailed)
}

// Execute submits execTransaction with the packed signature blob and
// waits for one confirmation.
func (a *SafeAdapter) Execute(ctx context.Context, chain *config.ChainConfig, walletAddress string, tx *TypedTransaction, packedSigs []byte) (string, error) {
	if err := a.supported(chain); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, a.rpcTimeout)
	defer cancel()

	txHash, err := sendContractTx(ctx, chain.RPCURL, chain.RelayerKey, walletAddress, safeWalletABI,
		"execTransaction",
		tx.To,
		tx.Value,
		tx.Data,
		tx.Operation,
		tx.SafeTxGas,
		tx.BaseGas,
		tx.GasPrice,
		tx.GasToken,
		tx.RefundReceiver,
		packedSigs,
	)
	if err != nil {
		logger.Warn(ctx, "execution submission failed",
			zap.String("chain", chain.Key),
			zap.String("wallet", walletAddress),
			zap.Error(err))
		return "", fmt.Errorf("%w: %v", domainerrors.ErrExecutionFailed, err)
	}

	client, err := a.clientFactory.GetEVMClient(chain.RPCURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domainerrors.ErrExecutionFailed, err)
	}
	receipt, err := client.WaitForReceipt(ctx, txHash)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domainerrors.ErrExecutionFailed, err)
	}
	if receipt.Status != 1 {
		return "", fmt.Errorf("%w: execution transaction reverted", domainerrors.ErrExecutionFailed)
	}
	return txHash.Hex(), nil
}

// WalletNonce reads the contract's current nonce via eth_call.
func (a *SafeAdapter) WalletNonce(ctx context.Context, chain *config.ChainConfig, walletAddress string) (uint64, error) {
	if err := a.supported(chain); err != nil {
		return 0, err
	}

	client, err := a.clientFactory.GetEVMClient(chain.RPCURL)
	if err != nil {
		return 0, err
	}

	data, err := safeWalletABI.Pack("nonce")
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.rpcTimeout)
	defer cancel()

	raw, err := client.CallView(ctx, walletAddress, data)
	if err != nil {
		return 0, err
	}
	values, err := safeWalletABI.Unpack("nonce", raw)
	if err != nil {
		return 0, err
	}
	nonce, ok := values[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("unexpected nonce return type")
	}
	return nonce.Uint64(), nil
}
