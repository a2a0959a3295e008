package streaming

import (
	"encoding/json"
	"errors"
	"time"

	"ethtracker/internal/domain"
)

const MessageTypeTransaction = "transaction"

// TransactionMessage is the stream form of one processed transaction.
type TransactionMessage struct {
	Type            string    `json:"type"`
	RunID           string    `json:"run_id"`
	TraceID         string    `json:"trace_id,omitempty"`
	Address         string    `json:"address"`
	Hash            string    `json:"hash"`
	BlockNumber     uint64    `json:"block_number"`
	Timestamp       time.Time `json:"timestamp"`
	From            string    `json:"from"`
	To              string    `json:"to,omitempty"`
	Value           string    `json:"value"`
	FeeEth          string    `json:"fee_eth"`
	Status          string    `json:"status"`
	TransactionType string    `json:"transaction_type"`
	ContractAddress string    `json:"contract_address,omitempty"`
	TokenSymbol     string    `json:"token_symbol,omitempty"`
	TokenID         string    `json:"token_id,omitempty"`
	MethodID        string    `json:"method_id,omitempty"`
}

func FromTransaction(runID, address string, tx domain.UnifiedTransaction) TransactionMessage {
	return TransactionMessage{
		Type:            MessageTypeTransaction,
		RunID:           runID,
		Address:         address,
		Hash:            tx.Hash,
		BlockNumber:     tx.BlockNumber,
		Timestamp:       tx.Timestamp.UTC(),
		From:            tx.From,
		To:              tx.To,
		Value:           tx.Value.String(),
		FeeEth:          tx.FeeInEth().String(),
		Status:          string(tx.Status),
		TransactionType: string(tx.Type),
		ContractAddress: tx.ContractAddress,
		TokenSymbol:     tx.TokenSymbol,
		TokenID:         tx.TokenID,
		MethodID:        tx.MethodID,
	}
}

func Encode(msg TransactionMessage) ([]byte, error) {
	if err := validate(msg); err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}

func Decode(payload []byte) (TransactionMessage, error) {
	var msg TransactionMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return TransactionMessage{}, err
	}
	if err := validate(msg); err != nil {
		return TransactionMessage{}, err
	}
	return msg, nil
}

func validate(msg TransactionMessage) error {
	if msg.Type == "" {
		return errors.New("message type is required")
	}
	if msg.RunID == "" {
		return errors.New("run_id is required")
	}
	if msg.Hash == "" {
		return errors.New("hash is required")
	}
	return nil
}
