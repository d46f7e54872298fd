package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/hypertokens/tapmarket/amount"
	"github.com/hypertokens/tapmarket/canonical"
	"github.com/hypertokens/tapmarket/contract"
	"github.com/hypertokens/tapmarket/peer"
	"github.com/hypertokens/tapmarket/wallet"
)

// Protocol wraps a peer with the client-side workflows of the marketplace,
// building well-formed commands and committing them through the log.
type Protocol struct {
	peer       *peer.Peer
	chunkPause time.Duration
	log        *zap.Logger
}

func New(p *peer.Peer, chunkPause time.Duration, logger *zap.Logger) *Protocol {
	return &Protocol{peer: p, chunkPause: chunkPause, log: logger}
}

func (p *Protocol) Peer() *peer.Peer {
	return p.peer
}

// SignCommand attaches signature_data to a command. The signature covers
// the canonical serialization of every field except op and the signature
// itself, plus a fresh nonce.
func SignCommand(w *wallet.Wallet, cmd map[string]any) (map[string]any, error) {
	payload := make(map[string]any, len(cmd))
	for k, v := range cmd {
		if k == "op" || k == "signature_data" {
			continue
		}
		payload[k] = v
	}
	message, err := canonical.Marshal(payload)
	if err != nil {
		return nil, err
	}
	nonce, err := wallet.Nonce()
	if err != nil {
		return nil, err
	}
	cmd["signature_data"] = map[string]any{
		"signature":    w.Sign(append(message, []byte(nonce)...)),
		"nonce":        nonce,
		"from_address": w.Address(),
	}
	return cmd, nil
}

func (p *Protocol) transactSigned(ctx context.Context, cmd map[string]any) (string, error) {
	signed, err := SignCommand(p.peer.Wallet(), cmd)
	if err != nil {
		return "", err
	}
	return p.peer.Transact(ctx, signed)
}

// InitializeMarketplace claims the admin slot for this peer's wallet and
// configures the sale commission. It is meant to be run exactly once, on
// a fresh log.
func (p *Protocol) InitializeMarketplace(ctx context.Context, commissionRate string) error {
	raw, err := p.peer.StateGet(contract.KeyAdmin)
	if err != nil {
		return err
	}
	if raw != nil {
		return fmt.Errorf("marketplace is already initialized")
	}
	self := p.peer.Wallet().Address()
	if _, err := p.peer.Transact(ctx, map[string]any{
		"op": "_admin_setAdmin", "admin_address": self,
	}); err != nil {
		return err
	}
	_, err = p.peer.Transact(ctx, map[string]any{
		"op": "setCommission", "rate": commissionRate, "beneficiary_address": self,
	})
	return err
}

func (p *Protocol) ListForSale(ctx context.Context, fileID, priceTokens string) error {
	price, err := amount.ToBaseUnits(priceTokens, amount.Decimals)
	if err != nil {
		return err
	}
	_, err = p.peer.Transact(ctx, map[string]any{
		"op": "listForSale", "file_id": fileID, "price": price,
		"owner_address": p.peer.Wallet().Address(),
	})
	return err
}

func (p *Protocol) Delist(ctx context.Context, fileID string) error {
	_, err := p.peer.Transact(ctx, map[string]any{
		"op": "delist", "file_id": fileID,
		"owner_address": p.peer.Wallet().Address(),
	})
	return err
}

func (p *Protocol) Buy(ctx context.Context, fileID string) error {
	_, err := p.transactSigned(ctx, map[string]any{
		"op": "buy", "file_id": fileID,
	})
	return err
}

func (p *Protocol) Transfer(ctx context.Context, fileID, toAddress string) error {
	_, err := p.peer.Transact(ctx, map[string]any{
		"op": "transfer_file", "file_id": fileID, "to_address": toAddress,
		"owner_address": p.peer.Wallet().Address(),
	})
	return err
}

func (p *Protocol) AddOperator(ctx context.Context, operatorAddress string) error {
	_, err := p.transactSigned(ctx, map[string]any{
		"op": "addOperator", "operator_address": operatorAddress,
	})
	return err
}

func (p *Protocol) RemoveOperator(ctx context.Context) error {
	_, err := p.transactSigned(ctx, map[string]any{
		"op": "removeOperator",
	})
	return err
}

// RequestDeposit files a credit request for tokens sent on the external
// chain, returning the deterministic request id the admin will see.
func (p *Protocol) RequestDeposit(ctx context.Context, txHash, amountTokens string) (string, error) {
	base, err := amount.ToBaseUnits(amountTokens, amount.Decimals)
	if err != nil {
		return "", err
	}
	trace, err := p.transactSigned(ctx, map[string]any{
		"op": "requestDepositCredit", "tx_hash": txHash, "amount": base,
	})
	if err != nil {
		return "", err
	}
	return contract.DepositRequestID(trace), nil
}

func (p *Protocol) RequestWithdrawal(ctx context.Context, amountTokens string) (string, error) {
	base, err := amount.ToBaseUnits(amountTokens, amount.Decimals)
	if err != nil {
		return "", err
	}
	return p.transactSigned(ctx, map[string]any{
		"op": "requestWithdrawal", "amount": base,
	})
}

// ApproveDeposit credits a pending deposit after the admin verified the
// external chain transaction.
func (p *Protocol) ApproveDeposit(ctx context.Context, requestID string) error {
	raw, err := p.peer.StateGet(contract.PendingDepositKey(requestID))
	if err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("deposit request %s not found", requestID)
	}
	var req contract.DepositRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return err
	}
	// The contract credits whatever the admin submits, so the guard
	// against paying a request twice lives here.
	if req.Status != contract.StatusPending {
		return fmt.Errorf("deposit request %s is %s", requestID, req.Status)
	}
	_, err = p.peer.Transact(ctx, map[string]any{
		"op": "_admin_processCredit", "user_address": req.UserAddress,
		"request_id": requestID, "amount": req.Amount,
	})
	return err
}

func (p *Protocol) SetMintFee(ctx context.Context, feeTokens, beneficiaryAddress string) error {
	base, err := amount.ToBaseUnits(feeTokens, amount.Decimals)
	if err != nil {
		return err
	}
	_, err = p.peer.Transact(ctx, map[string]any{
		"op": "set_mint_fee", "amount": base, "beneficiary_address": beneficiaryAddress,
	})
	return err
}

func (p *Protocol) SetCommission(ctx context.Context, rate, beneficiaryAddress string) error {
	_, err := p.peer.Transact(ctx, map[string]any{
		"op": "setCommission", "rate": rate, "beneficiary_address": beneficiaryAddress,
	})
	return err
}

func (p *Protocol) SetMinCollectionSize(ctx context.Context, minSize int) error {
	_, err := p.peer.Transact(ctx, map[string]any{
		"op": "set_min_collection_size", "min_size": minSize,
	})
	return err
}

// Balance returns an address's internal balance in base units.
func (p *Protocol) Balance(address string) (*big.Int, error) {
	raw, err := p.peer.StateGet(contract.BalanceKey(address))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return new(big.Int), nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	bal, ok := new(big.Int).SetString(v, 10)
	if !ok {
		return nil, fmt.Errorf("corrupt balance %q for %s", v, address)
	}
	return bal, nil
}

// OwnedNFTs returns the file ids an address currently holds.
func (p *Protocol) OwnedNFTs(address string) ([]string, error) {
	raw, err := p.peer.StateGet(contract.UserNFTsKey(address))
	if err != nil || raw == nil {
		return nil, err
	}
	var nfts []string
	if err := json.Unmarshal(raw, &nfts); err != nil {
		return nil, err
	}
	return nfts, nil
}
