package contract

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"

	"github.com/hypertokens/tapmarket/amount"
)

// DepositRequestID derives the identifier a deposit request is filed under.
// It is a pure function of the entry trace, so every replica assigns the
// same id without coordination.
func DepositRequestID(traceID string) string {
	id := uuid.NewV5(uuid.NamespaceOID, "deposit:"+traceID)
	return hex.EncodeToString(id.Bytes())
}

func (s *session) handleRequestDeposit(cmd *Command, body *DepositCommand) error {
	if err := verifySignature(cmd, body.SignatureData); err != nil {
		return err
	}
	user := strings.ToLower(body.SignatureData.FromAddress)

	amt, err := amount.ParseBig(body.Amount)
	if err != nil {
		return fmt.Errorf("%w: amount: %v", ErrValidation, err)
	}
	if amt.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	requestID := DepositRequestID(s.entry.TraceID)
	existing, err := s.get(PendingDepositKey(requestID))
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: deposit request %s already filed", ErrConflict, requestID)
	}

	return s.put(PendingDepositKey(requestID), DepositRequest{
		UserAddress: user,
		TxHash:      body.TxHash,
		Amount:      amt.String(),
		Status:      StatusPending,
		RequestedAt: s.timestamp(),
	})
}

func (s *session) handleRequestWithdrawal(cmd *Command, body *WithdrawalCommand) error {
	if err := verifySignature(cmd, body.SignatureData); err != nil {
		return err
	}
	user := strings.ToLower(body.SignatureData.FromAddress)

	amt, err := amount.ParseBig(body.Amount)
	if err != nil {
		return fmt.Errorf("%w: amount: %v", ErrValidation, err)
	}
	if amt.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	bal, err := s.getBig(BalanceKey(user))
	if err != nil {
		return err
	}
	if bal.Cmp(amt) < 0 {
		return fmt.Errorf("%w: withdrawal is %s, balance is %s", ErrInsufficientFunds, amt, bal)
	}

	requestID := s.entry.TraceID
	existing, err := s.get(PendingWithdrawalKey(requestID))
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: withdrawal request %s already filed", ErrConflict, requestID)
	}

	// Funds leave the internal balance the moment the request is accepted.
	// The settlement worker only reports completion afterwards.
	if err := s.put(BalanceKey(user), bal.Sub(bal, amt).String()); err != nil {
		return err
	}
	return s.put(PendingWithdrawalKey(requestID), WithdrawalRequest{
		UserAddress: user,
		Amount:      amt.String(),
		Status:      StatusApproved,
		RequestedAt: s.timestamp(),
	})
}

func (s *session) handleProcessCredit(body *ProcessCreditCommand) error {
	if err := s.requireAdmin(s.entry.Sender); err != nil {
		return err
	}

	amt, err := amount.ParseBig(body.Amount)
	if err != nil {
		return fmt.Errorf("%w: amount: %v", ErrValidation, err)
	}
	if err := s.creditBalance(strings.ToLower(body.UserAddress), amt); err != nil {
		return err
	}

	// The credit stands on its own. The request record is bookkeeping and
	// is only marked off when it exists.
	var req DepositRequest
	found, err := s.getJSON(PendingDepositKey(body.RequestID), &req)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	req.Status = StatusCompleted
	return s.put(PendingDepositKey(body.RequestID), req)
}

func (s *session) handleCompleteWithdrawal(body *CompleteWithdrawalCommand) error {
	if err := s.requireAdmin(s.entry.Sender); err != nil {
		return err
	}

	// Completion is a no-op unless the request exists and is still
	// approved, so repeated settlements converge instead of failing.
	var req WithdrawalRequest
	found, err := s.getJSON(PendingWithdrawalKey(body.RequestID), &req)
	if err != nil {
		return err
	}
	if !found || req.Status != StatusApproved {
		return nil
	}

	req.Status = StatusCompleted
	req.ProcessedAt = s.timestamp()
	return s.put(PendingWithdrawalKey(body.RequestID), req)
}
