package contract

import (
	"fmt"
	"strings"
)

func (s *session) handleMint(body *MintCommand) error {
	owner := strings.ToLower(body.OwnerAddress)
	if err := s.requireAuthorized(s.entry.Sender, owner); err != nil {
		return err
	}

	fee, err := s.getBig(KeyMintFee)
	if err != nil {
		return err
	}
	admin, err := s.getString(KeyAdmin)
	if err != nil {
		return err
	}
	if fee.Sign() > 0 && !strings.EqualFold(owner, admin) {
		beneficiary, err := s.getString(KeyMintFeeBeneficiary)
		if err != nil {
			return err
		}
		if beneficiary == "" {
			return fmt.Errorf("%w: mint fee is set but no beneficiary is configured", ErrConflict)
		}
		bal, err := s.getBig(BalanceKey(owner))
		if err != nil {
			return err
		}
		if bal.Cmp(fee) < 0 {
			return fmt.Errorf("%w: mint fee is %s, balance is %s", ErrInsufficientFunds, fee, bal)
		}
		if err := s.put(BalanceKey(owner), bal.Sub(bal, fee).String()); err != nil {
			return err
		}
		if err := s.creditBalance(beneficiary, fee); err != nil {
			return err
		}
	}

	existing, err := s.get(FileMetaKey(body.FileID))
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: file %s is already minted", ErrConflict, body.FileID)
	}

	meta := FileMeta{
		Filename:    body.Filename,
		MimeType:    body.MimeType,
		TotalChunks: body.TotalChunks,
		FileHash:    body.FileHash,
		Creator:     owner,
	}
	if err := s.put(FileMetaKey(body.FileID), meta); err != nil {
		return err
	}
	if err := s.put(OwnerKey(body.FileID), owner); err != nil {
		return err
	}
	if err := s.put(EscrowKey(body.FileID), false); err != nil {
		return err
	}
	return s.appendUserNFT(owner, body.FileID)
}

// handleChunk stores the chunk at its key with no further checks. Chunks
// may arrive for files whose mint has not landed yet; the metadata's
// total_chunks decides which chunks a download reads back.
func (s *session) handleChunk(body *ChunkCommand) error {
	return s.put(FileChunkKey(body.FileID, body.ChunkIndex), body.ChunkData)
}
