package contract

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hypertokens/tapmarket/amount"
)

// ownedFile resolves the current owner of a file and checks it against the
// owner the command claims, so a stale command cannot act on an NFT that
// changed hands after it was signed.
func (s *session) ownedFile(fileID, claimedOwner string) (string, error) {
	owner, err := s.getString(OwnerKey(fileID))
	if err != nil {
		return "", err
	}
	if owner == "" {
		return "", fmt.Errorf("%w: file %s has no owner", ErrNotFound, fileID)
	}
	if !strings.EqualFold(owner, claimedOwner) {
		return "", fmt.Errorf("%w: %s does not own file %s", ErrConflict, claimedOwner, fileID)
	}
	return owner, nil
}

func (s *session) handleTransfer(body *TransferCommand) error {
	owner, err := s.ownedFile(body.FileID, body.OwnerAddress)
	if err != nil {
		return err
	}
	if err := s.requireAuthorized(s.entry.Sender, owner); err != nil {
		return err
	}
	escrowed, err := s.getBool(EscrowKey(body.FileID))
	if err != nil {
		return err
	}
	if escrowed {
		return fmt.Errorf("%w: file %s is held in escrow", ErrConflict, body.FileID)
	}
	to := strings.ToLower(body.ToAddress)
	if strings.EqualFold(to, owner) {
		return fmt.Errorf("%w: cannot transfer a file to its owner", ErrValidation)
	}

	if err := s.put(OwnerKey(body.FileID), to); err != nil {
		return err
	}
	if err := s.removeUserNFT(owner, body.FileID); err != nil {
		return err
	}
	return s.appendUserNFT(to, body.FileID)
}

func (s *session) handleList(body *ListCommand) error {
	owner, err := s.ownedFile(body.FileID, body.OwnerAddress)
	if err != nil {
		return err
	}
	if err := s.requireAuthorized(s.entry.Sender, owner); err != nil {
		return err
	}
	escrowed, err := s.getBool(EscrowKey(body.FileID))
	if err != nil {
		return err
	}
	if escrowed {
		return fmt.Errorf("%w: file %s is already held in escrow", ErrConflict, body.FileID)
	}
	price, err := amount.ParseBig(body.Price)
	if err != nil {
		return fmt.Errorf("%w: price: %v", ErrValidation, err)
	}
	if price.Sign() <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrValidation)
	}

	listing := Listing{
		SellerAddress: owner,
		Price:         price.String(),
		ListedAt:      s.timestamp(),
	}
	if err := s.put(ListingKey(body.FileID), listing); err != nil {
		return err
	}
	return s.put(EscrowKey(body.FileID), true)
}

func (s *session) handleDelist(body *DelistCommand) error {
	owner, err := s.ownedFile(body.FileID, body.OwnerAddress)
	if err != nil {
		return err
	}
	if err := s.requireAuthorized(s.entry.Sender, owner); err != nil {
		return err
	}
	var listing Listing
	found, err := s.getJSON(ListingKey(body.FileID), &listing)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: file %s is not listed", ErrNotFound, body.FileID)
	}

	s.del(ListingKey(body.FileID))
	return s.put(EscrowKey(body.FileID), false)
}

func (s *session) handleBuy(cmd *Command, body *BuyCommand) error {
	if err := verifySignature(cmd, body.SignatureData); err != nil {
		return err
	}
	buyer := strings.ToLower(body.SignatureData.FromAddress)

	var listing Listing
	found, err := s.getJSON(ListingKey(body.FileID), &listing)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: file %s is not listed for sale", ErrNotFound, body.FileID)
	}
	seller := listing.SellerAddress
	if strings.EqualFold(buyer, seller) {
		return fmt.Errorf("%w: cannot buy your own listing", ErrConflict)
	}

	price, ok := new(big.Int).SetString(listing.Price, 10)
	if !ok {
		return fmt.Errorf("corrupt listing price %q for file %s", listing.Price, body.FileID)
	}
	bal, err := s.getBig(BalanceKey(buyer))
	if err != nil {
		return err
	}
	if bal.Cmp(price) < 0 {
		return fmt.Errorf("%w: price is %s, balance is %s", ErrInsufficientFunds, price, bal)
	}

	commission, beneficiary, err := s.commissionFor(price)
	if err != nil {
		return err
	}
	proceeds := new(big.Int).Sub(price, commission)

	if err := s.put(BalanceKey(buyer), bal.Sub(bal, price).String()); err != nil {
		return err
	}
	if commission.Sign() > 0 {
		if err := s.creditBalance(beneficiary, commission); err != nil {
			return err
		}
	}
	if err := s.creditBalance(seller, proceeds); err != nil {
		return err
	}

	if err := s.put(OwnerKey(body.FileID), buyer); err != nil {
		return err
	}
	if err := s.removeUserNFT(seller, body.FileID); err != nil {
		return err
	}
	if err := s.appendUserNFT(buyer, body.FileID); err != nil {
		return err
	}
	if err := s.put(EscrowKey(body.FileID), false); err != nil {
		return err
	}
	s.del(ListingKey(body.FileID))
	return nil
}

// commissionFor computes the marketplace cut of a sale. The configured rate
// is a percentage with at most two decimal places of precision. It is scaled
// to basis points so the split itself stays in integer arithmetic.
func (s *session) commissionFor(price *big.Int) (*big.Int, string, error) {
	rate, err := s.getString(KeyCommissionRate)
	if err != nil {
		return nil, "", err
	}
	beneficiary, err := s.getString(KeyCommissionBeneficiary)
	if err != nil {
		return nil, "", err
	}
	if rate == "" || beneficiary == "" {
		return new(big.Int), "", nil
	}
	dec, err := decimal.NewFromString(rate)
	if err != nil {
		return nil, "", fmt.Errorf("corrupt commission rate %q: %v", rate, err)
	}
	scaled := dec.Mul(decimal.NewFromInt(100)).Floor().BigInt()
	commission := new(big.Int).Mul(price, scaled)
	commission.Quo(commission, big.NewInt(10000))
	return commission, beneficiary, nil
}
