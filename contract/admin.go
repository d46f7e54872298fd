package contract

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hypertokens/tapmarket/amount"
)

// handleSetAdmin claims the admin slot. It succeeds exactly once per
// marketplace, the very first entry that reaches it wins.
func (s *session) handleSetAdmin(body *SetAdminCommand) error {
	admin, err := s.getString(KeyAdmin)
	if err != nil {
		return err
	}
	if admin != "" {
		return fmt.Errorf("%w: admin is already set", ErrConflict)
	}
	return s.put(KeyAdmin, strings.ToLower(body.AdminAddress))
}

func (s *session) handleSetMintFee(body *MintFeeCommand) error {
	if err := s.requireAdmin(s.entry.Sender); err != nil {
		return err
	}
	fee, err := amount.ParseBig(body.Amount)
	if err != nil {
		return fmt.Errorf("%w: amount: %v", ErrValidation, err)
	}
	if err := s.put(KeyMintFee, fee.String()); err != nil {
		return err
	}
	return s.put(KeyMintFeeBeneficiary, strings.ToLower(body.BeneficiaryAddress))
}

func (s *session) handleSetCommission(body *CommissionCommand) error {
	if err := s.requireAdmin(s.entry.Sender); err != nil {
		return err
	}
	rate, err := decimal.NewFromString(body.Rate)
	if err != nil {
		return fmt.Errorf("%w: rate: %v", ErrValidation, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: rate must be between 0 and 100", ErrValidation)
	}
	if err := s.put(KeyCommissionRate, body.Rate); err != nil {
		return err
	}
	return s.put(KeyCommissionBeneficiary, strings.ToLower(body.BeneficiaryAddress))
}

func (s *session) handleSetMinCollectionSize(body *MinCollectionSizeCommand) error {
	if err := s.requireAdmin(s.entry.Sender); err != nil {
		return err
	}
	return s.put(KeyMinCollectionSize, body.MinSize)
}
