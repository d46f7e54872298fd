package contract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hypertokens/tapmarket/canonical"
	"github.com/hypertokens/tapmarket/wallet"
)

// requireAuthorized passes when caller is the owner or the owner's
// registered operator. Addresses compare case-insensitively.
func (s *session) requireAuthorized(caller, owner string) error {
	if strings.EqualFold(caller, owner) {
		return nil
	}
	operator, err := s.getString(OperatorKey(strings.ToLower(owner)))
	if err != nil {
		return err
	}
	if operator != "" && strings.EqualFold(caller, operator) {
		return nil
	}
	return fmt.Errorf("%w: %s may not act for %s", ErrUnauthorized, caller, owner)
}

func (s *session) requireAdmin(caller string) error {
	admin, err := s.getString(KeyAdmin)
	if err != nil {
		return err
	}
	if admin == "" || !strings.EqualFold(caller, admin) {
		return fmt.Errorf("%w: admin only", ErrUnauthorized)
	}
	return nil
}

// verifySignature checks that the command was signed by its from_address.
// The signed message is the canonical serialization of the command without
// op and signature_data, concatenated with the nonce.
func verifySignature(cmd *Command, sig *SignatureData) error {
	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(cmd.Raw))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	delete(fields, "op")
	delete(fields, "signature_data")

	payload, err := canonical.Marshal(fields)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	message := append(payload, []byte(sig.Nonce)...)
	if !wallet.Verify(sig.Signature, message, sig.FromAddress) {
		return fmt.Errorf("%w: signature verification failed", ErrUnauthorized)
	}
	return nil
}
