package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hypertokens/tapmarket/amount"
	"github.com/hypertokens/tapmarket/contract"
	"github.com/hypertokens/tapmarket/peer"
)

const defaultInterval = 30 * time.Second

// defaultFee is the flat withdrawal fee in tokens, netted from the payout.
const defaultFee = "0.01"

// Worker is the admin-side settlement loop. It watches the ledger request
// queues, nags the operator about deposits awaiting verification, and pays
// out approved withdrawals by writing payout orders and reporting
// completion back to the log.
type Worker struct {
	peer            *peer.Peer
	interval        time.Duration
	fee             *big.Int
	withdrawalsPath string
	log             *zap.Logger
}

// PayoutOrder is the file handed to the external chain gateway for one
// approved withdrawal.
type PayoutOrder struct {
	WithdrawalID       string `json:"withdrawal_id"`
	DestinationAddress string `json:"destination_address"`
	FinalAmountTap     string `json:"final_amount_tap"`
	RequestedAt        string `json:"requested_at"`
}

func NewWorker(p *peer.Peer, conf peer.ReconcileConfig, logger *zap.Logger) (*Worker, error) {
	interval := defaultInterval
	if conf.IntervalSeconds > 0 {
		interval = time.Duration(conf.IntervalSeconds) * time.Second
	}
	feeTokens := conf.WithdrawalFee
	if feeTokens == "" {
		feeTokens = defaultFee
	}
	base, err := amount.ToBaseUnits(feeTokens, amount.Decimals)
	if err != nil {
		return nil, fmt.Errorf("withdrawal fee %q: %w", feeTokens, err)
	}
	fee, ok := new(big.Int).SetString(base, 10)
	if !ok {
		return nil, fmt.Errorf("withdrawal fee %q", feeTokens)
	}
	path := conf.WithdrawalsPath
	if path == "" {
		path = "withdrawals"
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, err
	}
	return &Worker{
		peer:            p,
		interval:        interval,
		fee:             fee,
		withdrawalsPath: path,
		log:             logger,
	}, nil
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.cycle(ctx); err != nil {
				w.log.Error("reconcile cycle", zap.Error(err))
			}
		}
	}
}

func (w *Worker) cycle(ctx context.Context) error {
	if err := w.peer.Refresh(); err != nil {
		return err
	}
	if err := w.notifyPendingDeposits(); err != nil {
		return err
	}
	return w.settleApprovedWithdrawals(ctx)
}

// notifyPendingDeposits surfaces deposits still awaiting the operator's
// verification of the external chain transaction.
func (w *Worker) notifyPendingDeposits() error {
	kvs, err := w.peer.StateScan(contract.PrefixPendingDeposits)
	if err != nil {
		return err
	}
	for _, kv := range kvs {
		var req contract.DepositRequest
		if err := json.Unmarshal(kv.Value, &req); err != nil {
			w.log.Error("corrupt deposit request", zap.String("key", kv.Key), zap.Error(err))
			continue
		}
		if req.Status != contract.StatusPending {
			continue
		}
		w.log.Warn("ACTION REQUIRED: deposit awaiting verification",
			zap.String("request", strings.TrimPrefix(kv.Key, contract.PrefixPendingDeposits)),
			zap.String("user", req.UserAddress),
			zap.String("tx", req.TxHash),
			zap.String("amount", req.Amount))
	}
	return nil
}

// settleApprovedWithdrawals pays out each approved withdrawal, net of the
// flat fee, then marks it completed on the log. One bad request never
// stalls the rest of the queue.
func (w *Worker) settleApprovedWithdrawals(ctx context.Context) error {
	kvs, err := w.peer.StateScan(contract.PrefixPendingWithdrawals)
	if err != nil {
		return err
	}
	for _, kv := range kvs {
		requestID := strings.TrimPrefix(kv.Key, contract.PrefixPendingWithdrawals)
		var req contract.WithdrawalRequest
		if err := json.Unmarshal(kv.Value, &req); err != nil {
			w.log.Error("corrupt withdrawal request", zap.String("request", requestID), zap.Error(err))
			continue
		}
		if req.Status != contract.StatusApproved {
			continue
		}
		if err := w.settle(ctx, requestID, &req); err != nil {
			w.log.Error("settle withdrawal", zap.String("request", requestID), zap.Error(err))
		}
	}
	return nil
}

func (w *Worker) settle(ctx context.Context, requestID string, req *contract.WithdrawalRequest) error {
	amt, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok {
		return fmt.Errorf("corrupt amount %q", req.Amount)
	}
	net := new(big.Int).Sub(amt, w.fee)
	if net.Sign() < 0 {
		w.log.Warn("withdrawal below fee, skipping",
			zap.String("request", requestID),
			zap.String("amount", req.Amount))
		return nil
	}

	payout, err := amount.FromBaseUnits(net.String(), amount.Decimals)
	if err != nil {
		return err
	}
	order := PayoutOrder{
		WithdrawalID:       requestID,
		DestinationAddress: req.UserAddress,
		FinalAmountTap:     payout,
		RequestedAt:        req.RequestedAt,
	}
	data, err := json.MarshalIndent(order, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(w.withdrawalsPath, requestID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}

	if _, err := w.peer.Transact(ctx, map[string]any{
		"op": "_admin_completeWithdrawal", "request_id": requestID,
	}); err != nil {
		return err
	}
	w.log.Info("withdrawal settled",
		zap.String("request", requestID),
		zap.String("payout", order.FinalAmountTap),
		zap.String("order", path))
	return nil
}
