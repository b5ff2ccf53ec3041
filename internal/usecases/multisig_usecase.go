package usecases

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"quorum-vault.backend/internal/config"
	"quorum-vault.backend/internal/domain/entities"
	domainerrors "quorum-vault.backend/internal/domain/errors"
	domainRepos "quorum-vault.backend/internal/domain/repositories"
	"quorum-vault.backend/pkg/ethaddr"
	"quorum-vault.backend/pkg/logger"
	"quorum-vault.backend/pkg/utils"
)

// MultisigUsecase is the public coordination surface: wallet lifecycle,
// proposal/sign/cancel flows, and the threshold-crossing execution
// hand-off to the on-chain adapter.
type MultisigUsecase struct {
	walletRepo domainRepos.MultisigWalletRepository
	txRepo     domainRepos.PendingTransactionRepository
	recorder   domainRepos.AuditRecorder
	adapter    OnChainAdapter
	cfg        *config.Config
	locker     *txLocker
	ttl        time.Duration
	now        func() time.Time
}

func NewMultisigUsecase(
	walletRepo domainRepos.MultisigWalletRepository,
	txRepo domainRepos.PendingTransactionRepository,
	recorder domainRepos.AuditRecorder,
	adapter OnChainAdapter,
	cfg *config.Config,
) *MultisigUsecase {
	return &MultisigUsecase{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		recorder:   recorder,
		adapter:    adapter,
		cfg:        cfg,
		locker:     newTxLocker(cfg.Redis.Enabled, cfg.Multisig.LockTTL),
		ttl:        cfg.Multisig.ProposalExpiry,
		now:        time.Now,
	}
}

func (uc *MultisigUsecase) audit(ctx context.Context, kind entities.AuditEventKind, actor string, resourceID uuid.UUID, metadata map[string]interface{}) {
	if uc.recorder == nil {
		return
	}
	if err := uc.recorder.Record(ctx, kind, actor, resourceID, metadata); err != nil {
		logger.Warn(ctx, "audit record failed",
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}

// CreateWallet validates the signer set and threshold, persists the
// wallet, and attempts on-chain deployment. Deployment failure is not a
// caller-visible failure: the wallet falls back to a deterministic
// placeholder address and stays usable for off-chain bookkeeping.
func (uc *MultisigUsecase) CreateWallet(ctx context.Context, ownerID uuid.UUID, input entities.CreateWalletInput) (*entities.MultisigWallet, error) {
	chain := uc.cfg.ChainByKey(input.ChainKey)
	if chain == nil {
		return nil, domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeBadRequest,
			fmt.Sprintf("unsupported chain: %s", input.ChainKey), domainerrors.ErrUnsupportedChain)
	}

	seen := make(map[string]bool, len(input.Signers))
	signers := make([]*entities.WalletSigner, 0, len(input.Signers))
	for _, s := range input.Signers {
		addr, err := ethaddr.Normalize(s.Address)
		if err != nil {
			return nil, domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeInvalidInput,
				fmt.Sprintf("invalid signer address: %s", s.Address), domainerrors.ErrInvalidAddress)
		}
		if seen[addr] {
			return nil, domainerrors.BadRequest(fmt.Sprintf("duplicate signer address: %s", addr))
		}
		seen[addr] = true
		signers = append(signers, &entities.WalletSigner{
			ID:      utils.GenerateUUIDv7(),
			Address: addr,
			Name:    s.Name,
		})
	}

	if input.Threshold < 1 || input.Threshold > len(signers) {
		return nil, domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeInvalidInput,
			fmt.Sprintf("threshold %d is out of range for %d signers", input.Threshold, len(signers)),
			domainerrors.ErrThresholdInvariant)
	}

	wallet := &entities.MultisigWallet{
		ID:          utils.GenerateUUIDv7(),
		OwnerID:     ownerID,
		ChainKey:    chain.Key,
		Threshold:   input.Threshold,
		SignerCount: len(signers),
		Signers:     signers,
	}
	for _, s := range signers {
		s.WalletID = wallet.ID
	}

	if err := uc.walletRepo.Create(ctx, wallet); err != nil {
		return nil, err
	}

	address, deployed := uc.resolveWalletAddress(ctx, chain, wallet)
	if err := uc.walletRepo.SetAddress(ctx, wallet.ID, address, deployed); err != nil {
		return nil, err
	}

	uc.audit(ctx, entities.AuditWalletCreated, ownerID.String(), wallet.ID, map[string]interface{}{
		"chain":     chain.Key,
		"threshold": wallet.Threshold,
		"signers":   wallet.SignerCount,
		"deployed":  deployed,
	})
	if deployed {
		uc.audit(ctx, entities.AuditWalletDeployed, "system", wallet.ID, map[string]interface{}{
			"address": address,
		})
	}

	return uc.walletRepo.GetByID(ctx, wallet.ID)
}

// resolveWalletAddress tries a real factory deployment and falls back to
// the deterministic placeholder when the chain cannot execute.
func (uc *MultisigUsecase) resolveWalletAddress(ctx context.Context, chain *config.ChainConfig, wallet *entities.MultisigWallet) (string, bool) {
	addrs := make([]string, 0, len(wallet.Signers))
	for _, s := range wallet.Signers {
		addrs = append(addrs, s.Address)
	}

	deployed, err := uc.adapter.Deploy(ctx, chain, addrs, wallet.Threshold)
	if err == nil {
		return deployed, true
	}

	logger.Info(ctx, "wallet deployment unavailable, using fallback address",
		zap.String("chain", chain.Key),
		zap.String("wallet_id", wallet.ID.String()),
		zap.Error(err))

	fallback, ferr := ethaddr.FallbackAddress(big.NewInt(chain.ChainID), addrs, wallet.Threshold)
	if ferr != nil {
		// Normalized inputs make this unreachable; keep the wallet
		// addressable regardless.
		logger.Error(ctx, "fallback address derivation failed", zap.Error(ferr))
		return "", false
	}
	return fallback, false
}

// GetWallet returns the wallet with its signer set.
func (uc *MultisigUsecase) GetWallet(ctx context.Context, id uuid.UUID) (*entities.MultisigWallet, error) {
	return uc.walletRepo.GetByID(ctx, id)
}

// ListWallets returns the owner's wallets, newest first, with the total count.
func (uc *MultisigUsecase) ListWallets(ctx context.Context, ownerID uuid.UUID, pagination utils.PaginationParams) ([]*entities.MultisigWallet, int64, error) {
	return uc.walletRepo.GetByOwnerID(ctx, ownerID, pagination)
}

// AddSigner appends a signer to the wallet. Already-pending transactions
// keep their snapshotted threshold and signer checks are re-evaluated
// against the current set at sign time.
func (uc *MultisigUsecase) AddSigner(ctx context.Context, walletID uuid.UUID, actor string, input entities.AddSignerInput) (*entities.MultisigWallet, error) {
	addr, err := ethaddr.Normalize(input.Address)
	if err != nil {
		return nil, domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeInvalidInput,
			fmt.Sprintf("invalid signer address: %s", input.Address), domainerrors.ErrInvalidAddress)
	}

	if _, err := uc.walletRepo.GetByID(ctx, walletID); err != nil {
		return nil, err
	}

	if err := uc.walletRepo.AddSigner(ctx, &entities.WalletSigner{
		ID:       utils.GenerateUUIDv7(),
		WalletID: walletID,
		Address:  addr,
		Name:     input.Name,
	}); err != nil {
		return nil, err
	}

	uc.audit(ctx, entities.AuditSignerAdded, actor, walletID, map[string]interface{}{
		"address": addr,
	})

	return uc.walletRepo.GetByID(ctx, walletID)
}

// RemoveSigner drops a signer unless that would leave fewer signers than
// the wallet's threshold requires.
func (uc *MultisigUsecase) RemoveSigner(ctx context.Context, walletID uuid.UUID, actor, address string) (*entities.MultisigWallet, error) {
	addr, err := ethaddr.Normalize(address)
	if err != nil {
		return nil, domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeInvalidInput,
			fmt.Sprintf("invalid signer address: %s", address), domainerrors.ErrInvalidAddress)
	}

	wallet, err := uc.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if !wallet.HasSigner(addr) {
		return nil, domainerrors.NotFound("signer not found in wallet")
	}
	if wallet.SignerCount-1 < wallet.Threshold {
		return nil, domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeInvalidInput,
			fmt.Sprintf("removing a signer would leave %d signers below threshold %d", wallet.SignerCount-1, wallet.Threshold),
			domainerrors.ErrThresholdInvariant)
	}

	if err := uc.walletRepo.RemoveSigner(ctx, walletID, addr); err != nil {
		return nil, err
	}

	uc.audit(ctx, entities.AuditSignerRemoved, actor, walletID, map[string]interface{}{
		"address": addr,
	})

	return uc.walletRepo.GetByID(ctx, walletID)
}

// Propose records a transfer proposal with the proposer's signature
// pre-counted. A 1-of-n wallet is eligible for immediate execution on
// the same path a threshold-crossing sign takes.
func (uc *MultisigUsecase) Propose(ctx context.Context, walletID uuid.UUID, input entities.ProposeTransactionInput) (*entities.PendingTransaction, error) {
	wallet, err := uc.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, err
	}

	proposer, err := ethaddr.Normalize(input.Proposer)
	if err != nil {
		return nil, domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeInvalidInput,
			fmt.Sprintf("invalid proposer address: %s", input.Proposer), domainerrors.ErrInvalidAddress)
	}
	if !wallet.HasSigner(proposer) {
		return nil, domainerrors.NewAppError(http.StatusForbidden, domainerrors.CodeForbidden,
			"proposer is not a signer of this wallet", domainerrors.ErrUnauthorized)
	}

	recipient, err := ethaddr.Normalize(input.Recipient)
	if err != nil {
		return nil, domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeInvalidInput,
			fmt.Sprintf("invalid recipient address: %s", input.Recipient), domainerrors.ErrInvalidAddress)
	}

	if _, err := parseAmount(input.Amount); err != nil {
		return nil, domainerrors.BadRequest(err.Error())
	}

	now := uc.now()
	tx := &entities.PendingTransaction{
		ID:                 utils.GenerateUUIDv7(),
		WalletID:           wallet.ID,
		Recipient:          recipient,
		Amount:             input.Amount,
		Data:               input.Data,
		Memo:               input.Memo,
		Proposer:           proposer,
		RequiredSignatures: wallet.Threshold,
		SignatureCount:     1,
		SignedBy:           []string{proposer},
		Signatures:         map[string]string{},
		Status:             entities.TxStatusPending,
		ExpiresAt:          now.Add(uc.ttl),
	}
	if input.Signature != "" {
		tx.Signatures[proposer] = input.Signature
	}

	if err := uc.txRepo.Create(ctx, tx); err != nil {
		return nil, err
	}

	uc.audit(ctx, entities.AuditTxProposed, proposer, tx.ID, map[string]interface{}{
		"wallet_id": wallet.ID.String(),
		"recipient": recipient,
		"amount":    input.Amount,
	})

	if tx.SignatureCount >= tx.RequiredSignatures {
		if err := uc.executeQuorum(ctx, wallet, tx); err != nil {
			// The proposal stands; execution is retried on a later sign.
			return tx, err
		}
	}

	return uc.txRepo.GetByID(ctx, tx.ID)
}

// Sign appends one signer's approval and triggers execution when the
// snapshotted threshold is reached. The per-transaction lock plus the
// repository's version guard make the threshold crossing race-free.
func (uc *MultisigUsecase) Sign(ctx context.Context, txID uuid.UUID, input entities.SignTransactionInput) (*entities.PendingTransaction, error) {
	release, err := uc.locker.Acquire(ctx, txID)
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err := uc.txRepo.GetByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.Status != entities.TxStatusPending {
		return nil, domainerrors.NewAppError(http.StatusConflict, domainerrors.CodeConflict,
			"transaction is not pending", domainerrors.ErrNotPending)
	}

	now := uc.now()
	if tx.IsExpired(now) {
		if err := uc.txRepo.MarkExpired(ctx, tx.ID); err != nil {
			return nil, err
		}
		uc.audit(ctx, entities.AuditTxExpired, input.Signer, tx.ID, nil)
		return nil, domainerrors.NewAppError(http.StatusConflict, domainerrors.CodeConflict,
			"transaction expired", domainerrors.ErrExpired)
	}

	signer, err := ethaddr.Normalize(input.Signer)
	if err != nil {
		return nil, domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeInvalidInput,
			fmt.Sprintf("invalid signer address: %s", input.Signer), domainerrors.ErrInvalidAddress)
	}
	if tx.HasSigned(signer) {
		return nil, domainerrors.NewAppError(http.StatusConflict, domainerrors.CodeConflict,
			"signer already signed this transaction", domainerrors.ErrAlreadySigned)
	}

	wallet, err := uc.walletRepo.GetByID(ctx, tx.WalletID)
	if err != nil {
		return nil, err
	}
	if !wallet.HasSigner(signer) {
		return nil, domainerrors.NewAppError(http.StatusForbidden, domainerrors.CodeForbidden,
			"signer is not a member of this wallet", domainerrors.ErrUnauthorized)
	}

	tx.SignedBy = append(tx.SignedBy, signer)
	if tx.Signatures == nil {
		tx.Signatures = map[string]string{}
	}
	if input.Signature != "" {
		tx.Signatures[signer] = input.Signature
	}
	tx.SignatureCount = len(tx.SignedBy)

	if err := uc.txRepo.AppendSignature(ctx, tx); err != nil {
		return nil, err
	}

	uc.audit(ctx, entities.AuditTxSigned, signer, tx.ID, map[string]interface{}{
		"signature_count": tx.SignatureCount,
		"required":        tx.RequiredSignatures,
	})

	if tx.SignatureCount >= tx.RequiredSignatures {
		if err := uc.executeQuorum(ctx, wallet, tx); err != nil {
			return tx, err
		}
	}

	return uc.txRepo.GetByID(ctx, tx.ID)
}

// Cancel transitions a still-pending proposal to cancelled. Any single
// current signer may cancel; no quorum is required.
func (uc *MultisigUsecase) Cancel(ctx context.Context, txID uuid.UUID, input entities.CancelTransactionInput) (*entities.PendingTransaction, error) {
	release, err := uc.locker.Acquire(ctx, txID)
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err := uc.txRepo.GetByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.Status != entities.TxStatusPending {
		return nil, domainerrors.NewAppError(http.StatusConflict, domainerrors.CodeConflict,
			"transaction is not pending", domainerrors.ErrNotPending)
	}
	if tx.IsExpired(uc.now()) {
		if err := uc.txRepo.MarkExpired(ctx, tx.ID); err != nil {
			return nil, err
		}
		uc.audit(ctx, entities.AuditTxExpired, input.Canceller, tx.ID, nil)
		return nil, domainerrors.NewAppError(http.StatusConflict, domainerrors.CodeConflict,
			"transaction expired", domainerrors.ErrExpired)
	}

	canceller, err := ethaddr.Normalize(input.Canceller)
	if err != nil {
		return nil, domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeInvalidInput,
			fmt.Sprintf("invalid canceller address: %s", input.Canceller), domainerrors.ErrInvalidAddress)
	}

	wallet, err := uc.walletRepo.GetByID(ctx, tx.WalletID)
	if err != nil {
		return nil, err
	}
	if !wallet.HasSigner(canceller) {
		return nil, domainerrors.NewAppError(http.StatusForbidden, domainerrors.CodeForbidden,
			"canceller is not a member of this wallet", domainerrors.ErrUnauthorized)
	}

	if err := uc.txRepo.MarkCancelled(ctx, tx.ID, tx.Version); err != nil {
		return nil, err
	}

	uc.audit(ctx, entities.AuditTxCancelled, canceller, tx.ID, map[string]interface{}{
		"wallet_id": wallet.ID.String(),
	})

	return uc.txRepo.GetByID(ctx, tx.ID)
}

// ListPending returns the wallet's still-open proposals, newest first.
func (uc *MultisigUsecase) ListPending(ctx context.Context, walletID uuid.UUID) ([]*entities.PendingTransaction, error) {
	if _, err := uc.walletRepo.GetByID(ctx, walletID); err != nil {
		return nil, err
	}
	return uc.txRepo.ListPendingByWallet(ctx, walletID, uc.now())
}

// GetTransaction returns one proposal by id. A pending proposal past
// its deadline is flipped to expired on the way out, the same lazy
// transition the sign path applies.
func (uc *MultisigUsecase) GetTransaction(ctx context.Context, id uuid.UUID) (*entities.PendingTransaction, error) {
	tx, err := uc.txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.Status == entities.TxStatusPending && tx.IsExpired(uc.now()) {
		if err := uc.txRepo.MarkExpired(ctx, tx.ID); err != nil {
			return nil, err
		}
		uc.audit(ctx, entities.AuditTxExpired, "system", tx.ID, nil)
		return uc.txRepo.GetByID(ctx, tx.ID)
	}
	return tx, nil
}

// GetSigningHash returns the typed-data digest each signer must sign for
// the given proposal. For wallets without a deployed contract the nonce
// is zero and the hash binds the fallback address. For deployed wallets
// the nonce must come from the contract; a stale or guessed nonce would
// produce a digest the contract will never accept, so nonce lookup
// failures are errors rather than a silent zero.
func (uc *MultisigUsecase) GetSigningHash(ctx context.Context, txID uuid.UUID) (string, error) {
	tx, err := uc.txRepo.GetByID(ctx, txID)
	if err != nil {
		return "", err
	}
	wallet, err := uc.walletRepo.GetByID(ctx, tx.WalletID)
	if err != nil {
		return "", err
	}
	chain := uc.cfg.ChainByKey(wallet.ChainKey)
	if chain == nil {
		return "", domainerrors.ErrUnsupportedChain
	}

	var nonce uint64
	if wallet.Deployed {
		n, err := uc.adapter.WalletNonce(ctx, chain, wallet.Address)
		if err != nil {
			return "", fmt.Errorf("%w: %v", domainerrors.ErrExecutionFailed, err)
		}
		nonce = n
	}

	typed, err := uc.buildTypedTx(chain, wallet, tx, nonce)
	if err != nil {
		return "", err
	}
	return typed.HashHex()
}

func (uc *MultisigUsecase) buildTypedTx(chain *config.ChainConfig, wallet *entities.MultisigWallet, tx *entities.PendingTransaction, nonce uint64) (*TypedTransaction, error) {
	value, err := parseAmount(tx.Amount)
	if err != nil {
		return nil, err
	}
	var data []byte
	if tx.Data != "" {
		data = common.FromHex(tx.Data)
	}
	return BuildTypedTransaction(wallet.Address, big.NewInt(chain.ChainID), tx.Recipient, value, data, nonce)
}

// executeQuorum runs the threshold-crossing completion: the on-chain
// execTransaction path when the chain and wallet support it, the
// off-chain stub otherwise. The executed transition is the final write
// so a lost CAS means another caller already completed it.
func (uc *MultisigUsecase) executeQuorum(ctx context.Context, wallet *entities.MultisigWallet, tx *entities.PendingTransaction) error {
	chain := uc.cfg.ChainByKey(wallet.ChainKey)

	txHash, err := uc.executeOnChain(ctx, chain, wallet, tx)
	if err != nil {
		if !isOffChainFallback(err) {
			logger.Warn(ctx, "quorum execution failed, transaction stays pending",
				zap.String("tx_id", tx.ID.String()),
				zap.Error(err))
			return err
		}
		txHash = stubExecutionHash(tx)
	}

	now := uc.now()
	if err := uc.txRepo.MarkExecuted(ctx, tx.ID, tx.Version, txHash, now); err != nil {
		return err
	}
	tx.Status = entities.TxStatusExecuted
	tx.TxHash.SetValid(txHash)
	tx.CompletedAt.SetValid(now)

	uc.audit(ctx, entities.AuditTxExecuted, "system", tx.ID, map[string]interface{}{
		"wallet_id": wallet.ID.String(),
		"tx_hash":   txHash,
	})
	return nil
}

func (uc *MultisigUsecase) executeOnChain(ctx context.Context, chain *config.ChainConfig, wallet *entities.MultisigWallet, tx *entities.PendingTransaction) (string, error) {
	if chain == nil {
		return "", domainerrors.ErrUnsupportedChain
	}
	if !chain.OnChainEnabled || !wallet.Deployed {
		return "", domainerrors.ErrOnChainUnsupported
	}

	nonce, err := uc.adapter.WalletNonce(ctx, chain, wallet.Address)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domainerrors.ErrExecutionFailed, err)
	}

	typed, err := uc.buildTypedTx(chain, wallet, tx, nonce)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domainerrors.ErrExecutionFailed, err)
	}

	sigs := make([]SignerSignature, 0, len(tx.SignedBy))
	for _, signer := range tx.SignedBy {
		sig, ok := tx.Signatures[signer]
		if !ok || sig == "" {
			return "", fmt.Errorf("%w: missing signature for %s", domainerrors.ErrExecutionFailed, signer)
		}
		sigs = append(sigs, SignerSignature{Signer: signer, Signature: sig})
	}
	packed, err := PackSignatures(sigs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domainerrors.ErrExecutionFailed, err)
	}

	return uc.adapter.Execute(ctx, chain, wallet.Address, typed, packed)
}

// isOffChainFallback reports whether the execution error means the chain
// simply has no on-chain path, which completes via the stub instead of
// failing the sign call.
func isOffChainFallback(err error) bool {
	return errors.Is(err, domainerrors.ErrOnChainUnsupported) || errors.Is(err, domainerrors.ErrUnsupportedChain)
}

func stubExecutionHash(tx *entities.PendingTransaction) string {
	digest := crypto.Keccak256([]byte("offchain:" + tx.ID.String()))
	return "0x" + hex.EncodeToString(digest)
}

func parseAmount(s string) (*big.Int, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, fmt.Errorf("amount is required")
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount: %s", s)
	}
	return value, nil
}
