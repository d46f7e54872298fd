package contract

import "strconv"

const (
	KeyAdmin                 = "admin"
	KeyMintFee               = "mint_fee"
	KeyMintFeeBeneficiary    = "mint_fee_beneficiary"
	KeyCommissionRate        = "commission_rate"
	KeyCommissionBeneficiary = "commission_beneficiary"
	KeyCollections           = "market_collections"
	KeyMinCollectionSize     = "config/min_collection_size"

	PrefixPendingDeposits    = "pending_deposits/"
	PrefixPendingWithdrawals = "pending_withdrawals/"
)

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusCompleted = "completed"
)

func FileMetaKey(fileID string) string { return "file_meta/" + fileID }

func FileChunkKey(fileID string, index int) string {
	return "file_chunk/" + fileID + "/" + strconv.Itoa(index)
}

func OwnerKey(fileID string) string { return "nft_owner/" + fileID }

func EscrowKey(fileID string) string { return "is_in_escrow/" + fileID }

func UserNFTsKey(address string) string { return "user_nfts/" + address }

func ListingKey(fileID string) string { return "listings/" + fileID }

func OperatorKey(owner string) string { return "operators/" + owner }

func BalanceKey(address string) string { return "internal_balances/" + address }

func PendingDepositKey(requestID string) string { return PrefixPendingDeposits + requestID }

func PendingWithdrawalKey(requestID string) string { return PrefixPendingWithdrawals + requestID }

// FileMeta is immutable once written at mint time.
type FileMeta struct {
	Filename    string `json:"filename"`
	MimeType    string `json:"mime_type"`
	TotalChunks int    `json:"total_chunks"`
	FileHash    string `json:"file_hash"`
	Creator     string `json:"creator"`
}

type Listing struct {
	SellerAddress string `json:"seller_address"`
	Price         string `json:"price"`
	ListedAt      string `json:"listed_at"`
}

type DepositRequest struct {
	UserAddress string `json:"user_address"`
	TxHash      string `json:"tx_hash"`
	Amount      string `json:"amount"`
	Status      string `json:"status"`
	RequestedAt string `json:"requested_at"`
}

type WithdrawalRequest struct {
	UserAddress string `json:"user_address"`
	Amount      string `json:"amount"`
	Status      string `json:"status"`
	RequestedAt string `json:"requested_at"`
	ProcessedAt string `json:"processed_at,omitempty"`
}

type Collection struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Banner      string `json:"banner"`
	Manifest    string `json:"manifest"`
	Size        int    `json:"size"`
	Creator     string `json:"creator"`
}
