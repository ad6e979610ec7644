package api

import (
	"github.com/catenahq/bridge-backend/internal/bridge"
	"github.com/catenahq/bridge-backend/internal/chain"
)

type ChainDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	NativeSymbol string `json:"nativeSymbol"`
	ExplorerURL  string `json:"explorerUrl"`
	NetworkID    uint64 `json:"networkId"`
}

type PairDTO struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type AssetsDTO struct {
	Source string         `json:"source"`
	Target string         `json:"target"`
	Assets []bridge.Asset `json:"assets"`
}

type QuoteDTO struct {
	Source      string `json:"source"`
	Target      string `json:"target"`
	Token       string `json:"token"`
	Amount      string `json:"amount"`
	BridgeFee   string `json:"bridgeFee"`
	RelayerFee  string `json:"relayerFee"`
	GasEstimate string `json:"gasEstimate"`
	TotalFee    string `json:"totalFee"`
	AsOf        int64  `json:"asOf"`
}

type MappedTokenDTO struct {
	SourceToken string `json:"sourceToken"`
	TargetToken string `json:"targetToken"`
	Source      string `json:"source"`
	Target      string `json:"target"`
}

type BalanceDTO struct {
	Token   string `json:"token"`
	Wallet  string `json:"wallet"`
	Balance string `json:"balance"`
}

type AllowanceDTO struct {
	Token     string `json:"token"`
	Wallet    string `json:"wallet"`
	Allowance string `json:"allowance"`
	Approved  bool   `json:"isApproved"`
}

type TransactionDTO struct {
	ID          string `json:"id"`
	SourceChain string `json:"sourceChain"`
	TargetChain string `json:"targetChain"`
	SourceToken string `json:"sourceToken"`
	TargetToken string `json:"targetToken,omitempty"`
	Amount      string `json:"amount"`
	Recipient   string `json:"recipient"`
	TxHash      string `json:"txHash,omitempty"`
	Status      string `json:"status"`
	Timestamp   int64  `json:"timestamp"`
}

type TransactionListDTO struct {
	Wallet       string           `json:"wallet"`
	Transactions []TransactionDTO `json:"transactions"`
	UpdatedAt    int64            `json:"updatedAt"`
}

type ClaimableDTO struct {
	Chain        string           `json:"chain"`
	Wallet       string           `json:"wallet"`
	Transactions []TransactionDTO `json:"transactions"`
	UpdatedAt    int64            `json:"updatedAt"`
}

type RouteHealthDTO struct {
	Source      string `json:"source"`
	Target      string `json:"target"`
	Healthy     bool   `json:"healthy"`
	LastError   string `json:"lastError,omitempty"`
	LastSuccess int64  `json:"lastSuccess,omitempty"`
}

type SubmitTransferRequest struct {
	Source    string `json:"source" validate:"required"`
	Target    string `json:"target,omitempty"`
	Token     string `json:"token" validate:"required"`
	Amount    string `json:"amount" validate:"required"`
	Recipient string `json:"recipient" validate:"required"`
}

type SubmitTransferResponse struct {
	Transaction TransactionDTO `json:"transaction"`
}

type ApproveRequest struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target,omitempty"`
	Token  string `json:"token" validate:"required"`
	Amount string `json:"amount" validate:"required"`
}

type ApproveResponse struct {
	TxHash string `json:"txHash"`
}

type ClaimRequest struct {
	Chain     string `json:"chain" validate:"required"`
	ID        string `json:"id" validate:"required"`
	Recipient string `json:"recipient,omitempty"`
}

type ClaimResponse struct {
	TxHash string `json:"txHash"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func toTransactionDTO(tx *bridge.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:          tx.ID,
		SourceChain: string(tx.SourceChain),
		TargetChain: string(tx.TargetChain),
		SourceToken: tx.SourceToken,
		TargetToken: tx.TargetToken,
		Amount:      tx.Amount.String(),
		Recipient:   tx.Recipient,
		TxHash:      tx.TxHash,
		Status:      string(tx.Status),
		Timestamp:   tx.Timestamp,
	}
}

func toTransactionDTOs(txs []*bridge.Transaction) []TransactionDTO {
	out := make([]TransactionDTO, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionDTO(tx))
	}
	return out
}

func toChainDTO(md chain.Metadata) ChainDTO {
	return ChainDTO{
		ID:           string(md.ID),
		Name:         md.Name,
		NativeSymbol: md.NativeSymbol,
		ExplorerURL:  md.ExplorerURL,
		NetworkID:    md.NetworkID,
	}
}
