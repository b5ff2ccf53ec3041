package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"quorum-vault.backend/internal/config"
	"quorum-vault.backend/internal/domain/entities"
	domainerrors "quorum-vault.backend/internal/domain/errors"
	"quorum-vault.backend/internal/usecases"
	"quorum-vault.backend/pkg/utils"
)

const (
	handlerSignerA = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	handlerSignerB = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	handlerPayee   = "0x52908400098527886E0F7030069857D2E4169EE7"
)

type handlerWalletRepoStub struct {
	mu      sync.Mutex
	wallets map[uuid.UUID]*entities.MultisigWallet
}

func newHandlerWalletRepoStub() *handlerWalletRepoStub {
	return &handlerWalletRepoStub{wallets: map[uuid.UUID]*entities.MultisigWallet{}}
}

func (s *handlerWalletRepoStub) Create(_ context.Context, wallet *entities.MultisigWallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[wallet.ID] = wallet
	return nil
}

func (s *handlerWalletRepoStub) GetByID(_ context.Context, id uuid.UUID) (*entities.MultisigWallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[id]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	return w, nil
}

func (s *handlerWalletRepoStub) GetByOwnerID(_ context.Context, ownerID uuid.UUID, _ utils.PaginationParams) ([]*entities.MultisigWallet, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entities.MultisigWallet
	for _, w := range s.wallets {
		if w.OwnerID == ownerID {
			out = append(out, w)
		}
	}
	return out, int64(len(out)), nil
}

func (s *handlerWalletRepoStub) SetAddress(_ context.Context, id uuid.UUID, address string, deployed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[id]
	if !ok {
		return domainerrors.ErrNotFound
	}
	w.Address = address
	w.Deployed = deployed
	return nil
}

func (s *handlerWalletRepoStub) AddSigner(_ context.Context, signer *entities.WalletSigner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[signer.WalletID]
	if !ok {
		return domainerrors.ErrNotFound
	}
	w.Signers = append(w.Signers, signer)
	w.SignerCount++
	return nil
}

func (s *handlerWalletRepoStub) RemoveSigner(_ context.Context, walletID uuid.UUID, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[walletID]
	if !ok {
		return domainerrors.ErrNotFound
	}
	for i, sg := range w.Signers {
		if strings.EqualFold(sg.Address, address) {
			w.Signers = append(w.Signers[:i], w.Signers[i+1:]...)
			w.SignerCount--
			return nil
		}
	}
	return domainerrors.ErrNotFound
}

type handlerTxRepoStub struct {
	mu  sync.Mutex
	txs map[uuid.UUID]*entities.PendingTransaction
}

func newHandlerTxRepoStub() *handlerTxRepoStub {
	return &handlerTxRepoStub{txs: map[uuid.UUID]*entities.PendingTransaction{}}
}

func (s *handlerTxRepoStub) Create(_ context.Context, tx *entities.PendingTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs[tx.ID] = tx
	return nil
}

func (s *handlerTxRepoStub) GetByID(_ context.Context, id uuid.UUID) (*entities.PendingTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	return tx, nil
}

func (s *handlerTxRepoStub) ListPendingByWallet(_ context.Context, walletID uuid.UUID, now time.Time) ([]*entities.PendingTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entities.PendingTransaction
	for _, tx := range s.txs {
		if tx.WalletID == walletID && tx.Status == entities.TxStatusPending && tx.ExpiresAt.After(now) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *handlerTxRepoStub) AppendSignature(_ context.Context, tx *entities.PendingTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.txs[tx.ID]
	if !ok {
		return domainerrors.ErrNotFound
	}
	*stored = *tx
	stored.Version++
	tx.Version = stored.Version
	return nil
}

func (s *handlerTxRepoStub) MarkExecuted(_ context.Context, id uuid.UUID, version int, txHash string, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return domainerrors.ErrNotFound
	}
	tx.Status = entities.TxStatusExecuted
	tx.TxHash.SetValid(txHash)
	tx.CompletedAt.SetValid(completedAt)
	return nil
}

func (s *handlerTxRepoStub) MarkCancelled(_ context.Context, id uuid.UUID, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return domainerrors.ErrNotFound
	}
	tx.Status = entities.TxStatusCancelled
	return nil
}

func (s *handlerTxRepoStub) MarkExpired(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return domainerrors.ErrNotFound
	}
	tx.Status = entities.TxStatusExpired
	return nil
}

func (s *handlerTxRepoStub) GetExpiredPending(_ context.Context, limit int) ([]*entities.PendingTransaction, error) {
	return nil, nil
}

func (s *handlerTxRepoStub) ExpireBatch(_ context.Context, ids []uuid.UUID) error {
	return nil
}

type handlerAdapterStub struct{}

func (handlerAdapterStub) Deploy(context.Context, *config.ChainConfig, []string, int) (string, error) {
	return "", domainerrors.ErrOnChainUnsupported
}

func (handlerAdapterStub) Execute(context.Context, *config.ChainConfig, string, *usecases.TypedTransaction, []byte) (string, error) {
	return "", domainerrors.ErrOnChainUnsupported
}

func (handlerAdapterStub) WalletNonce(context.Context, *config.ChainConfig, string) (uint64, error) {
	return 0, domainerrors.ErrOnChainUnsupported
}

// execFailAdapterStub deploys a contract wallet but fails every
// execTransaction call, like a relayer whose RPC endpoint is down.
type execFailAdapterStub struct{}

func (execFailAdapterStub) Deploy(context.Context, *config.ChainConfig, []string, int) (string, error) {
	return "0x4E83362442B8d1beC281594CEA3050c8EB01311C", nil
}

func (execFailAdapterStub) Execute(context.Context, *config.ChainConfig, string, *usecases.TypedTransaction, []byte) (string, error) {
	return "", fmt.Errorf("%w: relayer unreachable", domainerrors.ErrExecutionFailed)
}

func (execFailAdapterStub) WalletNonce(context.Context, *config.ChainConfig, string) (uint64, error) {
	return 3, nil
}

func handlerTestConfig() *config.Config {
	return &config.Config{
		Multisig: config.MultisigConfig{
			ProposalExpiry: 24 * time.Hour,
			LockTTL:        5 * time.Second,
		},
		Chains: []config.ChainConfig{
			{Key: "base-sepolia", ChainID: 84532},
		},
	}
}

func onChainTestConfig() *config.Config {
	cfg := handlerTestConfig()
	cfg.Chains = append(cfg.Chains, config.ChainConfig{
		Key:            "bsc-testnet",
		ChainID:        97,
		RPCURL:         "http://localhost:8545",
		FactoryAddress: handlerSignerA,
		MasterCopy:     handlerSignerB,
		RelayerKey:     "ab",
		OnChainEnabled: true,
	})
	return cfg
}

func newTestRouter(t *testing.T) *gin.Engine {
	return newTestRouterWith(t, handlerAdapterStub{}, handlerTestConfig())
}

func newTestRouterWith(t *testing.T, adapter usecases.OnChainAdapter, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	uc := usecases.NewMultisigUsecase(
		newHandlerWalletRepoStub(),
		newHandlerTxRepoStub(),
		nil,
		adapter,
		cfg,
	)
	h := NewMultisigHandler(uc)

	r := gin.New()
	wallets := r.Group("/wallets")
	{
		wallets.POST("", h.CreateWallet)
		wallets.GET("", h.ListWallets)
		wallets.GET("/:id", h.GetWallet)
		wallets.POST("/:id/signers", h.AddSigner)
		wallets.POST("/:id/transactions", h.ProposeTransaction)
		wallets.GET("/:id/transactions", h.ListPendingTransactions)
	}
	transactions := r.Group("/transactions")
	{
		transactions.GET("/:id", h.GetTransaction)
		transactions.POST("/:id/sign", h.SignTransaction)
		transactions.POST("/:id/cancel", h.CancelTransaction)
	}
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, ownerID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if ownerID != "" {
		req.Header.Set("X-Owner-ID", ownerID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMultisigHandler_CreateWallet(t *testing.T) {
	r := newTestRouter(t)
	owner := uuid.New().String()

	body := `{
		"chainKey": "base-sepolia",
		"threshold": 2,
		"signers": [
			{"address": "` + handlerSignerA + `"},
			{"address": "` + handlerSignerB + `"}
		]
	}`

	w := doJSON(t, r, http.MethodPost, "/wallets", owner, body)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), `"address":"0x`)

	// missing identity header
	w = doJSON(t, r, http.MethodPost, "/wallets", "", body)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// threshold above signer count
	w = doJSON(t, r, http.MethodPost, "/wallets", owner, `{
		"chainKey": "base-sepolia",
		"threshold": 3,
		"signers": [{"address": "`+handlerSignerA+`"}]
	}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMultisigHandler_ListWallets_Meta(t *testing.T) {
	r := newTestRouter(t)
	owner := uuid.New().String()

	body := `{
		"chainKey": "base-sepolia",
		"threshold": 1,
		"signers": [{"address": "` + handlerSignerA + `"}]
	}`
	w := doJSON(t, r, http.MethodPost, "/wallets", owner, body)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodGet, "/wallets?page=1&limit=10", owner, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"totalCount":1`)

	// other owners see nothing
	w = doJSON(t, r, http.MethodGet, "/wallets", uuid.New().String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"totalCount":0`)
}

func TestMultisigHandler_GetWallet_NotFound(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/wallets/"+uuid.New().String(), "", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/wallets/not-a-uuid", "", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMultisigHandler_ProposeAndSignFlow(t *testing.T) {
	r := newTestRouter(t)
	owner := uuid.New().String()

	w := doJSON(t, r, http.MethodPost, "/wallets", owner, `{
		"chainKey": "base-sepolia",
		"threshold": 2,
		"signers": [
			{"address": "`+handlerSignerA+`"},
			{"address": "`+handlerSignerB+`"}
		]
	}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var wallet entities.MultisigWallet
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &wallet))

	w = doJSON(t, r, http.MethodPost, "/wallets/"+wallet.ID.String()+"/transactions", owner, `{
		"proposer": "`+handlerSignerA+`",
		"recipient": "`+handlerPayee+`",
		"amount": "1000000000000000000"
	}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var tx entities.PendingTransaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tx))
	require.Equal(t, entities.TxStatusPending, tx.Status)

	// non-signer rejected
	w = doJSON(t, r, http.MethodPost, "/transactions/"+tx.ID.String()+"/sign", owner, `{
		"signer": "`+handlerPayee+`"
	}`)
	require.Equal(t, http.StatusForbidden, w.Code)

	// second signature crosses the threshold
	w = doJSON(t, r, http.MethodPost, "/transactions/"+tx.ID.String()+"/sign", owner, `{
		"signer": "`+handlerSignerB+`"
	}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"executed"`)

	// terminal transactions cannot be cancelled
	w = doJSON(t, r, http.MethodPost, "/transactions/"+tx.ID.String()+"/cancel", owner, `{
		"canceller": "`+handlerSignerA+`"
	}`)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestMultisigHandler_ListPendingTransactions(t *testing.T) {
	r := newTestRouter(t)
	owner := uuid.New().String()

	w := doJSON(t, r, http.MethodPost, "/wallets", owner, `{
		"chainKey": "base-sepolia",
		"threshold": 2,
		"signers": [
			{"address": "`+handlerSignerA+`"},
			{"address": "`+handlerSignerB+`"}
		]
	}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var wallet entities.MultisigWallet
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &wallet))

	w = doJSON(t, r, http.MethodPost, "/wallets/"+wallet.ID.String()+"/transactions", owner, `{
		"proposer": "`+handlerSignerA+`",
		"recipient": "`+handlerPayee+`",
		"amount": "42"
	}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodGet, "/wallets/"+wallet.ID.String()+"/transactions", owner, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"transactions"`)
	require.Contains(t, w.Body.String(), `"42"`)
}

func TestMultisigHandler_SignExecutionFailureReturnsPendingRecord(t *testing.T) {
	r := newTestRouterWith(t, execFailAdapterStub{}, onChainTestConfig())
	owner := uuid.New().String()

	w := doJSON(t, r, http.MethodPost, "/wallets", owner, `{
		"chainKey": "bsc-testnet",
		"threshold": 2,
		"signers": [
			{"address": "`+handlerSignerA+`"},
			{"address": "`+handlerSignerB+`"}
		]
	}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var wallet entities.MultisigWallet
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &wallet))
	require.True(t, wallet.Deployed)

	w = doJSON(t, r, http.MethodPost, "/wallets/"+wallet.ID.String()+"/transactions", owner, `{
		"proposer": "`+handlerSignerA+`",
		"recipient": "`+handlerPayee+`",
		"amount": "1",
		"signature": "0x`+strings.Repeat("11", 65)+`"
	}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var tx entities.PendingTransaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tx))

	// The quorum-crossing signature is recorded, but the on-chain call
	// fails. The response must still carry the pending record so the
	// caller can see the state it left behind and retry.
	w = doJSON(t, r, http.MethodPost, "/transactions/"+tx.ID.String()+"/sign", owner, `{
		"signer": "`+handlerSignerB+`",
		"signature": "0x`+strings.Repeat("22", 65)+`"
	}`)
	require.Equal(t, http.StatusBadGateway, w.Code)
	require.Contains(t, w.Body.String(), `"code":"EXECUTION_FAILED"`)

	var failed struct {
		Transaction entities.PendingTransaction `json:"transaction"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &failed))
	require.Equal(t, entities.TxStatusPending, failed.Transaction.Status)
	require.Equal(t, 2, failed.Transaction.SignatureCount)
}
