package contract

import (
	"fmt"
	"strings"
)

// An owner registers at most one operator, a delegate allowed to mint and
// manage files on the owner's behalf.
func (s *session) handleAddOperator(cmd *Command, body *AddOperatorCommand) error {
	if err := verifySignature(cmd, body.SignatureData); err != nil {
		return err
	}
	owner := strings.ToLower(body.SignatureData.FromAddress)
	return s.put(OperatorKey(owner), strings.ToLower(body.OperatorAddress))
}

func (s *session) handleRemoveOperator(cmd *Command, body *RemoveOperatorCommand) error {
	if err := verifySignature(cmd, body.SignatureData); err != nil {
		return err
	}
	owner := strings.ToLower(body.SignatureData.FromAddress)
	operator, err := s.getString(OperatorKey(owner))
	if err != nil {
		return err
	}
	if operator == "" {
		return fmt.Errorf("%w: no operator registered for %s", ErrNotFound, owner)
	}
	s.del(OperatorKey(owner))
	return nil
}
