package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"quorum-vault.backend/internal/domain/entities"
	domainerrors "quorum-vault.backend/internal/domain/errors"
	"quorum-vault.backend/internal/interfaces/http/response"
	"quorum-vault.backend/internal/usecases"
	"quorum-vault.backend/pkg/utils"
)

type MultisigHandler struct {
	usecase *usecases.MultisigUsecase
}

func NewMultisigHandler(usecase *usecases.MultisigUsecase) *MultisigHandler {
	return &MultisigHandler{usecase: usecase}
}

// ownerID resolves the acting user from the X-Owner-ID header. The
// engine has no session layer; identity is supplied by the caller.
func ownerID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetHeader("X-Owner-ID")
	id, err := uuid.Parse(raw)
	if err != nil {
		response.Error(c, domainerrors.BadRequest("missing or invalid X-Owner-ID header"))
		return uuid.Nil, false
	}
	return id, true
}

func walletID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid wallet ID"))
		return uuid.Nil, false
	}
	return id, true
}

func transactionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid transaction ID"))
		return uuid.Nil, false
	}
	return id, true
}

// CreateWallet creates a multisig wallet
// POST /api/v1/wallets
func (h *MultisigHandler) CreateWallet(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	var req entities.CreateWalletInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	wallet, err := h.usecase.CreateWallet(c.Request.Context(), owner, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, wallet)
}

// ListWallets lists the caller's wallets
// GET /api/v1/wallets
func (h *MultisigHandler) ListWallets(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	pagination := utils.GetPaginationParams(page, limit)

	wallets, totalCount, err := h.usecase.ListWallets(c.Request.Context(), owner, pagination)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"wallets": wallets,
		"meta":    utils.CalculateMeta(totalCount, pagination.Page, pagination.Limit),
	})
}

// GetWallet gets a wallet with its signer set
// GET /api/v1/wallets/:id
func (h *MultisigHandler) GetWallet(c *gin.Context) {
	id, ok := walletID(c)
	if !ok {
		return
	}

	wallet, err := h.usecase.GetWallet(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, wallet)
}

// AddSigner adds a signer to a wallet
// POST /api/v1/wallets/:id/signers
func (h *MultisigHandler) AddSigner(c *gin.Context) {
	id, ok := walletID(c)
	if !ok {
		return
	}

	var req entities.AddSignerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	wallet, err := h.usecase.AddSigner(c.Request.Context(), id, c.GetHeader("X-Owner-ID"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, wallet)
}

// RemoveSigner removes a signer from a wallet
// DELETE /api/v1/wallets/:id/signers/:address
func (h *MultisigHandler) RemoveSigner(c *gin.Context) {
	id, ok := walletID(c)
	if !ok {
		return
	}

	wallet, err := h.usecase.RemoveSigner(c.Request.Context(), id, c.GetHeader("X-Owner-ID"), c.Param("address"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, wallet)
}

// ProposeTransaction proposes a transfer from a wallet
// POST /api/v1/wallets/:id/transactions
func (h *MultisigHandler) ProposeTransaction(c *gin.Context) {
	id, ok := walletID(c)
	if !ok {
		return
	}

	var req entities.ProposeTransactionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	tx, err := h.usecase.Propose(c.Request.Context(), id, req)
	if err != nil {
		// An execution failure after quorum leaves the proposal pending
		// and retryable; return it so the caller sees the recorded state.
		if tx != nil {
			response.ErrorWithData(c, err, gin.H{"transaction": tx})
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, tx)
}

// ListPendingTransactions lists a wallet's open proposals, newest first
// GET /api/v1/wallets/:id/transactions
func (h *MultisigHandler) ListPendingTransactions(c *gin.Context) {
	id, ok := walletID(c)
	if !ok {
		return
	}

	txs, err := h.usecase.ListPending(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"transactions": txs})
}

// GetTransaction gets one proposal
// GET /api/v1/transactions/:id
func (h *MultisigHandler) GetTransaction(c *gin.Context) {
	id, ok := transactionID(c)
	if !ok {
		return
	}

	tx, err := h.usecase.GetTransaction(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, tx)
}

// GetSigningHash returns the typed-data digest signers must sign
// GET /api/v1/transactions/:id/hash
func (h *MultisigHandler) GetSigningHash(c *gin.Context) {
	id, ok := transactionID(c)
	if !ok {
		return
	}

	hash, err := h.usecase.GetSigningHash(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"hash": hash})
}

// SignTransaction records one signer's approval
// POST /api/v1/transactions/:id/sign
func (h *MultisigHandler) SignTransaction(c *gin.Context) {
	id, ok := transactionID(c)
	if !ok {
		return
	}

	var req entities.SignTransactionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	tx, err := h.usecase.Sign(c.Request.Context(), id, req)
	if err != nil {
		if tx != nil {
			response.ErrorWithData(c, err, gin.H{"transaction": tx})
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, tx)
}

// CancelTransaction cancels a still-pending proposal
// POST /api/v1/transactions/:id/cancel
func (h *MultisigHandler) CancelTransaction(c *gin.Context) {
	id, ok := transactionID(c)
	if !ok {
		return
	}

	var req entities.CancelTransactionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	tx, err := h.usecase.Cancel(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, tx)
}
