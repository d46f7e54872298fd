package contract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/hypertokens/tapmarket/amount"
	"github.com/hypertokens/tapmarket/wallet"
)

// Op is the closed set of operation tags. Anything else is rejected at the
// validation boundary, before a handler ever runs.
type Op string

const (
	OpOperatorMint         Op = "operatorMint"
	OpUploadFileChunk      Op = "upload_file_chunk"
	OpTransferFile         Op = "transfer_file"
	OpListForSale          Op = "listForSale"
	OpDelist               Op = "delist"
	OpBuy                  Op = "buy"
	OpAddOperator          Op = "addOperator"
	OpRemoveOperator       Op = "removeOperator"
	OpSetMintFee           Op = "set_mint_fee"
	OpRequestDeposit       Op = "requestDepositCredit"
	OpRequestWithdrawal    Op = "requestWithdrawal"
	OpSetAdmin             Op = "_admin_setAdmin"
	OpSetCommission        Op = "setCommission"
	OpProcessCredit        Op = "_admin_processCredit"
	OpCompleteWithdrawal   Op = "_admin_completeWithdrawal"
	OpCreateCollection     Op = "create_collection"
	OpSetMinCollectionSize Op = "set_min_collection_size"
)

// SignatureData authenticates a command independently of the sender that
// committed it to the log.
type SignatureData struct {
	Signature   string `json:"signature"`
	Nonce       string `json:"nonce"`
	FromAddress string `json:"from_address"`
}

type commandBody interface {
	validate() error
}

// Command is a parsed, schema-valid operation together with the raw bytes
// it was committed as. Raw is kept because signature verification must
// reconstruct exactly what the client serialized.
type Command struct {
	Op   Op
	Raw  []byte
	Body commandBody
}

type MintCommand struct {
	Op           string `json:"op"`
	FileID       string `json:"file_id"`
	Filename     string `json:"filename"`
	MimeType     string `json:"mime_type"`
	TotalChunks  int    `json:"total_chunks"`
	FileHash     string `json:"file_hash"`
	OwnerAddress string `json:"owner_address"`
}

func (c *MintCommand) validate() error {
	if err := checkRequired("file_id", c.FileID); err != nil {
		return err
	}
	if err := checkRequired("filename", c.Filename); err != nil {
		return err
	}
	if c.TotalChunks < 0 {
		return fmt.Errorf("%w: total_chunks must not be negative", ErrValidation)
	}
	return checkAddress("owner_address", c.OwnerAddress)
}

type ChunkCommand struct {
	Op         string `json:"op"`
	FileID     string `json:"file_id"`
	ChunkIndex int    `json:"chunk_index"`
	ChunkData  string `json:"chunk_data"`
}

func (c *ChunkCommand) validate() error {
	if err := checkRequired("file_id", c.FileID); err != nil {
		return err
	}
	if c.ChunkIndex < 0 {
		return fmt.Errorf("%w: chunk_index must not be negative", ErrValidation)
	}
	return nil
}

type TransferCommand struct {
	Op           string `json:"op"`
	FileID       string `json:"file_id"`
	ToAddress    string `json:"to_address"`
	OwnerAddress string `json:"owner_address"`
}

func (c *TransferCommand) validate() error {
	if err := checkRequired("file_id", c.FileID); err != nil {
		return err
	}
	if err := checkAddress("to_address", c.ToAddress); err != nil {
		return err
	}
	return checkAddress("owner_address", c.OwnerAddress)
}

type ListCommand struct {
	Op           string `json:"op"`
	FileID       string `json:"file_id"`
	Price        string `json:"price"`
	OwnerAddress string `json:"owner_address"`
}

func (c *ListCommand) validate() error {
	if err := checkRequired("file_id", c.FileID); err != nil {
		return err
	}
	if err := checkAmount("price", c.Price); err != nil {
		return err
	}
	return checkAddress("owner_address", c.OwnerAddress)
}

type DelistCommand struct {
	Op           string `json:"op"`
	FileID       string `json:"file_id"`
	OwnerAddress string `json:"owner_address"`
}

func (c *DelistCommand) validate() error {
	if err := checkRequired("file_id", c.FileID); err != nil {
		return err
	}
	return checkAddress("owner_address", c.OwnerAddress)
}

type BuyCommand struct {
	Op            string         `json:"op"`
	FileID        string         `json:"file_id"`
	SignatureData *SignatureData `json:"signature_data"`
}

func (c *BuyCommand) validate() error {
	if err := checkRequired("file_id", c.FileID); err != nil {
		return err
	}
	return checkSignatureData(c.SignatureData)
}

type AddOperatorCommand struct {
	Op              string         `json:"op"`
	OperatorAddress string         `json:"operator_address"`
	SignatureData   *SignatureData `json:"signature_data"`
}

func (c *AddOperatorCommand) validate() error {
	if err := checkAddress("operator_address", c.OperatorAddress); err != nil {
		return err
	}
	return checkSignatureData(c.SignatureData)
}

type RemoveOperatorCommand struct {
	Op            string         `json:"op"`
	SignatureData *SignatureData `json:"signature_data"`
}

func (c *RemoveOperatorCommand) validate() error {
	return checkSignatureData(c.SignatureData)
}

type MintFeeCommand struct {
	Op                 string `json:"op"`
	Amount             string `json:"amount"`
	BeneficiaryAddress string `json:"beneficiary_address"`
}

func (c *MintFeeCommand) validate() error {
	if err := checkAmount("amount", c.Amount); err != nil {
		return err
	}
	return checkAddress("beneficiary_address", c.BeneficiaryAddress)
}

type DepositCommand struct {
	Op            string         `json:"op"`
	TxHash        string         `json:"tx_hash"`
	Amount        string         `json:"amount"`
	SignatureData *SignatureData `json:"signature_data"`
}

func (c *DepositCommand) validate() error {
	if err := checkRequired("tx_hash", c.TxHash); err != nil {
		return err
	}
	if err := checkAmount("amount", c.Amount); err != nil {
		return err
	}
	return checkSignatureData(c.SignatureData)
}

type WithdrawalCommand struct {
	Op            string         `json:"op"`
	Amount        string         `json:"amount"`
	SignatureData *SignatureData `json:"signature_data"`
}

func (c *WithdrawalCommand) validate() error {
	if err := checkAmount("amount", c.Amount); err != nil {
		return err
	}
	return checkSignatureData(c.SignatureData)
}

type SetAdminCommand struct {
	Op           string `json:"op"`
	AdminAddress string `json:"admin_address"`
}

func (c *SetAdminCommand) validate() error {
	return checkAddress("admin_address", c.AdminAddress)
}

type CommissionCommand struct {
	Op                 string `json:"op"`
	Rate               string `json:"rate"`
	BeneficiaryAddress string `json:"beneficiary_address"`
}

func (c *CommissionCommand) validate() error {
	if err := checkRequired("rate", c.Rate); err != nil {
		return err
	}
	return checkAddress("beneficiary_address", c.BeneficiaryAddress)
}

type ProcessCreditCommand struct {
	Op          string `json:"op"`
	UserAddress string `json:"user_address"`
	RequestID   string `json:"request_id"`
	Amount      string `json:"amount"`
}

func (c *ProcessCreditCommand) validate() error {
	if err := checkAddress("user_address", c.UserAddress); err != nil {
		return err
	}
	if err := checkRequired("request_id", c.RequestID); err != nil {
		return err
	}
	return checkAmount("amount", c.Amount)
}

type CompleteWithdrawalCommand struct {
	Op        string `json:"op"`
	RequestID string `json:"request_id"`
}

func (c *CompleteWithdrawalCommand) validate() error {
	return checkRequired("request_id", c.RequestID)
}

type CollectionCommand struct {
	Op                    string `json:"op"`
	CollectionName        string `json:"collection_name"`
	CollectionDescription string `json:"collection_description"`
	BannerFileID          string `json:"banner_file_id"`
	ManifestFileID        string `json:"manifest_file_id"`
	CollectionSize        int    `json:"collection_size"`
}

func (c *CollectionCommand) validate() error {
	if len(c.CollectionName) < 3 {
		return fmt.Errorf("%w: collection_name must be at least 3 characters", ErrValidation)
	}
	if err := checkRequired("banner_file_id", c.BannerFileID); err != nil {
		return err
	}
	return checkRequired("manifest_file_id", c.ManifestFileID)
}

type MinCollectionSizeCommand struct {
	Op      string `json:"op"`
	MinSize int    `json:"min_size"`
}

func (c *MinCollectionSizeCommand) validate() error {
	if c.MinSize < 1 {
		return fmt.Errorf("%w: min_size must be a positive integer", ErrValidation)
	}
	return nil
}

func newBody(op Op) commandBody {
	switch op {
	case OpOperatorMint:
		return &MintCommand{}
	case OpUploadFileChunk:
		return &ChunkCommand{}
	case OpTransferFile:
		return &TransferCommand{}
	case OpListForSale:
		return &ListCommand{}
	case OpDelist:
		return &DelistCommand{}
	case OpBuy:
		return &BuyCommand{}
	case OpAddOperator:
		return &AddOperatorCommand{}
	case OpRemoveOperator:
		return &RemoveOperatorCommand{}
	case OpSetMintFee:
		return &MintFeeCommand{}
	case OpRequestDeposit:
		return &DepositCommand{}
	case OpRequestWithdrawal:
		return &WithdrawalCommand{}
	case OpSetAdmin:
		return &SetAdminCommand{}
	case OpSetCommission:
		return &CommissionCommand{}
	case OpProcessCredit:
		return &ProcessCreditCommand{}
	case OpCompleteWithdrawal:
		return &CompleteWithdrawalCommand{}
	case OpCreateCollection:
		return &CollectionCommand{}
	case OpSetMinCollectionSize:
		return &MinCollectionSizeCommand{}
	}
	return nil
}

// ParseCommand schema-validates raw command bytes into a typed command.
// Unknown tags, unknown fields, type mismatches and constraint violations
// are all rejected here, before any state is touched.
func ParseCommand(raw []byte) (*Command, error) {
	var probe struct {
		Op *string `json:"op"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if probe.Op == nil {
		return nil, fmt.Errorf("%w: missing op", ErrValidation)
	}
	body := newBody(Op(*probe.Op))
	if body == nil {
		return nil, fmt.Errorf("%w: unknown op %q", ErrValidation, *probe.Op)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := body.validate(); err != nil {
		return nil, err
	}
	return &Command{Op: Op(*probe.Op), Raw: raw, Body: body}, nil
}

func checkRequired(field, v string) error {
	if v == "" {
		return fmt.Errorf("%w: %s is required", ErrValidation, field)
	}
	return nil
}

func checkAddress(field, v string) error {
	if !wallet.IsHexAddress(v) {
		return fmt.Errorf("%w: %s must be a hex address", ErrValidation, field)
	}
	return nil
}

func checkAmount(field, v string) error {
	if _, err := amount.ParseBig(v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrValidation, field, err)
	}
	return nil
}

func checkSignatureData(sig *SignatureData) error {
	if sig == nil {
		return fmt.Errorf("%w: this action requires a signature", ErrValidation)
	}
	if sig.Signature == "" || sig.Nonce == "" || sig.FromAddress == "" {
		return fmt.Errorf("%w: invalid signature data", ErrValidation)
	}
	if !wallet.IsHexAddress(sig.FromAddress) {
		return fmt.Errorf("%w: from_address must be a hex address", ErrValidation)
	}
	return nil
}
