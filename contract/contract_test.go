package contract

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypertokens/tapmarket/canonical"
	"github.com/hypertokens/tapmarket/store"
	"github.com/hypertokens/tapmarket/wallet"
)

type memState map[string][]byte

func (m memState) Get(key string) ([]byte, error) {
	return m[key], nil
}

func (m memState) apply(writes []store.Write) {
	for _, w := range writes {
		if w.Delete {
			delete(m, w.Key)
			continue
		}
		m[w.Key] = w.Value
	}
}

func (m memState) str(t *testing.T, key string) string {
	t.Helper()
	raw, ok := m[key]
	require.True(t, ok, "missing key %s", key)
	var v string
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

var testClock = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func newEntry(traceID, sender string, cmd map[string]any) *Entry {
	raw, err := json.Marshal(cmd)
	if err != nil {
		panic(err)
	}
	return &Entry{TraceID: traceID, Sender: sender, CreatedAt: testClock, Command: raw}
}

func mustApply(t *testing.T, state memState, entry *Entry) {
	t.Helper()
	writes, err := NewMachine().Apply(state, entry)
	require.NoError(t, err)
	state.apply(writes)
}

func applyErr(t *testing.T, state memState, entry *Entry) error {
	t.Helper()
	writes, err := NewMachine().Apply(state, entry)
	require.Error(t, err)
	assert.Nil(t, writes)
	return err
}

// signed attaches signature_data covering every other field of the command
// except op, the way clients serialize it.
func signed(t *testing.T, w *wallet.Wallet, cmd map[string]any) map[string]any {
	t.Helper()
	payload := make(map[string]any, len(cmd))
	for k, v := range cmd {
		if k == "op" || k == "signature_data" {
			continue
		}
		payload[k] = v
	}
	message, err := canonical.Marshal(payload)
	require.NoError(t, err)
	nonce, err := wallet.Nonce()
	require.NoError(t, err)
	cmd["signature_data"] = map[string]any{
		"signature":    w.Sign(append(message, []byte(nonce)...)),
		"nonce":        nonce,
		"from_address": w.Address(),
	}
	return cmd
}

func testWallet(t *testing.T, seed byte) *wallet.Wallet {
	t.Helper()
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = seed
	}
	w, err := wallet.FromSeed(fmt.Sprintf("%x", raw))
	require.NoError(t, err)
	return w
}

func marketplace(t *testing.T) (memState, *wallet.Wallet) {
	t.Helper()
	admin := testWallet(t, 1)
	state := memState{}
	mustApply(t, state, newEntry("t-init", admin.Address(), map[string]any{
		"op": "_admin_setAdmin", "admin_address": admin.Address(),
	}))
	return state, admin
}

func TestSetAdminOnce(t *testing.T) {
	state, admin := marketplace(t)
	assert.Equal(t, admin.Address(), state.str(t, KeyAdmin))

	other := testWallet(t, 2)
	err := applyErr(t, state, newEntry("t-again", other.Address(), map[string]any{
		"op": "_admin_setAdmin", "admin_address": other.Address(),
	}))
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, admin.Address(), state.str(t, KeyAdmin))
}

func TestMintAndChunks(t *testing.T) {
	state, admin := marketplace(t)

	mustApply(t, state, newEntry("t-mint", admin.Address(), map[string]any{
		"op": "operatorMint", "file_id": "f1", "filename": "a.png",
		"mime_type": "image/png", "total_chunks": 2, "file_hash": "abcd",
		"owner_address": admin.Address(),
	}))

	var meta FileMeta
	require.NoError(t, json.Unmarshal(state[FileMetaKey("f1")], &meta))
	assert.Equal(t, 2, meta.TotalChunks)
	assert.Equal(t, admin.Address(), meta.Creator)
	assert.Equal(t, admin.Address(), state.str(t, OwnerKey("f1")))
	assert.Equal(t, "false", string(state[EscrowKey("f1")]))

	var nfts []string
	require.NoError(t, json.Unmarshal(state[UserNFTsKey(admin.Address())], &nfts))
	assert.Equal(t, []string{"f1"}, nfts)

	err := applyErr(t, state, newEntry("t-dup", admin.Address(), map[string]any{
		"op": "operatorMint", "file_id": "f1", "filename": "b.png",
		"mime_type": "image/png", "total_chunks": 1, "file_hash": "ef01",
		"owner_address": admin.Address(),
	}))
	assert.ErrorIs(t, err, ErrConflict)

	mustApply(t, state, newEntry("t-c0", admin.Address(), map[string]any{
		"op": "upload_file_chunk", "file_id": "f1", "chunk_index": 0, "chunk_data": "aGVsbG8=",
	}))
	assert.Equal(t, "aGVsbG8=", state.str(t, FileChunkKey("f1", 0)))

	// Chunks store unconditionally, past the declared count and even
	// before the mint lands.
	mustApply(t, state, newEntry("t-c9", admin.Address(), map[string]any{
		"op": "upload_file_chunk", "file_id": "f1", "chunk_index": 9, "chunk_data": "eA==",
	}))
	assert.Equal(t, "eA==", state.str(t, FileChunkKey("f1", 9)))

	mustApply(t, state, newEntry("t-cx", admin.Address(), map[string]any{
		"op": "upload_file_chunk", "file_id": "ghost", "chunk_index": 0, "chunk_data": "eQ==",
	}))
	assert.Equal(t, "eQ==", state.str(t, FileChunkKey("ghost", 0)))
}

func TestMintFeeCharged(t *testing.T) {
	state, admin := marketplace(t)
	user := testWallet(t, 3)
	treasury := testWallet(t, 4)

	mustApply(t, state, newEntry("t-fee", admin.Address(), map[string]any{
		"op": "set_mint_fee", "amount": "250", "beneficiary_address": treasury.Address(),
	}))

	// No balance yet, the fee cannot be paid.
	err := applyErr(t, state, newEntry("t-broke", user.Address(), map[string]any{
		"op": "operatorMint", "file_id": "f1", "filename": "a.png",
		"mime_type": "image/png", "total_chunks": 0, "file_hash": "",
		"owner_address": user.Address(),
	}))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	state.apply([]store.Write{{Key: BalanceKey(user.Address()), Value: []byte(`"1000"`)}})
	mustApply(t, state, newEntry("t-paid", user.Address(), map[string]any{
		"op": "operatorMint", "file_id": "f1", "filename": "a.png",
		"mime_type": "image/png", "total_chunks": 0, "file_hash": "",
		"owner_address": user.Address(),
	}))
	assert.Equal(t, "750", state.str(t, BalanceKey(user.Address())))
	assert.Equal(t, "250", state.str(t, BalanceKey(treasury.Address())))

	// The admin mints without paying.
	mustApply(t, state, newEntry("t-free", admin.Address(), map[string]any{
		"op": "operatorMint", "file_id": "f2", "filename": "b.png",
		"mime_type": "image/png", "total_chunks": 0, "file_hash": "",
		"owner_address": admin.Address(),
	}))
	assert.Equal(t, "250", state.str(t, BalanceKey(treasury.Address())))
}

func TestOperatorDelegation(t *testing.T) {
	state, _ := marketplace(t)
	owner := testWallet(t, 5)
	operator := testWallet(t, 6)

	err := applyErr(t, state, newEntry("t-no", operator.Address(), map[string]any{
		"op": "operatorMint", "file_id": "f1", "filename": "a.png",
		"mime_type": "image/png", "total_chunks": 0, "file_hash": "",
		"owner_address": owner.Address(),
	}))
	assert.ErrorIs(t, err, ErrUnauthorized)

	mustApply(t, state, newEntry("t-add", owner.Address(), signed(t, owner, map[string]any{
		"op": "addOperator", "operator_address": operator.Address(),
	})))
	mustApply(t, state, newEntry("t-yes", operator.Address(), map[string]any{
		"op": "operatorMint", "file_id": "f1", "filename": "a.png",
		"mime_type": "image/png", "total_chunks": 0, "file_hash": "",
		"owner_address": owner.Address(),
	}))
	assert.Equal(t, owner.Address(), state.str(t, OwnerKey("f1")))

	mustApply(t, state, newEntry("t-rm", owner.Address(), signed(t, owner, map[string]any{
		"op": "removeOperator",
	})))
	err = applyErr(t, state, newEntry("t-no2", operator.Address(), map[string]any{
		"op": "operatorMint", "file_id": "f2", "filename": "b.png",
		"mime_type": "image/png", "total_chunks": 0, "file_hash": "",
		"owner_address": owner.Address(),
	}))
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func mintFor(t *testing.T, state memState, w *wallet.Wallet, fileID string) {
	t.Helper()
	mustApply(t, state, newEntry("t-mint-"+fileID, w.Address(), map[string]any{
		"op": "operatorMint", "file_id": fileID, "filename": fileID + ".png",
		"mime_type": "image/png", "total_chunks": 0, "file_hash": "",
		"owner_address": w.Address(),
	}))
}

func TestTransfer(t *testing.T) {
	state, _ := marketplace(t)
	alice := testWallet(t, 7)
	bob := testWallet(t, 8)
	mintFor(t, state, alice, "f1")

	err := applyErr(t, state, newEntry("t-self", alice.Address(), map[string]any{
		"op": "transfer_file", "file_id": "f1",
		"to_address": alice.Address(), "owner_address": alice.Address(),
	}))
	assert.ErrorIs(t, err, ErrValidation)

	err = applyErr(t, state, newEntry("t-claim", bob.Address(), map[string]any{
		"op": "transfer_file", "file_id": "f1",
		"to_address": bob.Address(), "owner_address": bob.Address(),
	}))
	assert.ErrorIs(t, err, ErrConflict)

	mustApply(t, state, newEntry("t-move", alice.Address(), map[string]any{
		"op": "transfer_file", "file_id": "f1",
		"to_address": bob.Address(), "owner_address": alice.Address(),
	}))
	assert.Equal(t, bob.Address(), state.str(t, OwnerKey("f1")))

	var nfts []string
	require.NoError(t, json.Unmarshal(state[UserNFTsKey(alice.Address())], &nfts))
	assert.Empty(t, nfts)
	require.NoError(t, json.Unmarshal(state[UserNFTsKey(bob.Address())], &nfts))
	assert.Equal(t, []string{"f1"}, nfts)
}

func TestListDelist(t *testing.T) {
	state, _ := marketplace(t)
	alice := testWallet(t, 7)
	bob := testWallet(t, 8)
	mintFor(t, state, alice, "f1")

	mustApply(t, state, newEntry("t-list", alice.Address(), map[string]any{
		"op": "listForSale", "file_id": "f1", "price": "500", "owner_address": alice.Address(),
	}))
	assert.Equal(t, "true", string(state[EscrowKey("f1")]))

	var listing Listing
	require.NoError(t, json.Unmarshal(state[ListingKey("f1")], &listing))
	assert.Equal(t, alice.Address(), listing.SellerAddress)
	assert.Equal(t, "500", listing.Price)
	assert.Equal(t, "2025-03-14T09:26:53Z", listing.ListedAt)

	// Escrow blocks both a second listing and a transfer.
	err := applyErr(t, state, newEntry("t-list2", alice.Address(), map[string]any{
		"op": "listForSale", "file_id": "f1", "price": "900", "owner_address": alice.Address(),
	}))
	assert.ErrorIs(t, err, ErrConflict)
	err = applyErr(t, state, newEntry("t-move", alice.Address(), map[string]any{
		"op": "transfer_file", "file_id": "f1",
		"to_address": bob.Address(), "owner_address": alice.Address(),
	}))
	assert.ErrorIs(t, err, ErrConflict)

	mustApply(t, state, newEntry("t-delist", alice.Address(), map[string]any{
		"op": "delist", "file_id": "f1", "owner_address": alice.Address(),
	}))
	assert.Equal(t, "false", string(state[EscrowKey("f1")]))
	_, listed := state[ListingKey("f1")]
	assert.False(t, listed)

	err = applyErr(t, state, newEntry("t-delist2", alice.Address(), map[string]any{
		"op": "delist", "file_id": "f1", "owner_address": alice.Address(),
	}))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBuySettlement(t *testing.T) {
	state, admin := marketplace(t)
	seller := testWallet(t, 7)
	buyer := testWallet(t, 8)
	treasury := testWallet(t, 9)

	mustApply(t, state, newEntry("t-comm", admin.Address(), map[string]any{
		"op": "setCommission", "rate": "5", "beneficiary_address": treasury.Address(),
	}))
	mintFor(t, state, seller, "f1")
	mustApply(t, state, newEntry("t-list", seller.Address(), map[string]any{
		"op": "listForSale", "file_id": "f1",
		"price": "1000000000000000000", "owner_address": seller.Address(),
	}))

	err := applyErr(t, state, newEntry("t-broke", buyer.Address(), signed(t, buyer, map[string]any{
		"op": "buy", "file_id": "f1",
	})))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	state.apply([]store.Write{{Key: BalanceKey(buyer.Address()), Value: []byte(`"2000000000000000000"`)}})

	err = applyErr(t, state, newEntry("t-own", seller.Address(), signed(t, seller, map[string]any{
		"op": "buy", "file_id": "f1",
	})))
	assert.ErrorIs(t, err, ErrConflict)

	mustApply(t, state, newEntry("t-buy", buyer.Address(), signed(t, buyer, map[string]any{
		"op": "buy", "file_id": "f1",
	})))

	assert.Equal(t, "1000000000000000000", state.str(t, BalanceKey(buyer.Address())))
	assert.Equal(t, "50000000000000000", state.str(t, BalanceKey(treasury.Address())))
	assert.Equal(t, "950000000000000000", state.str(t, BalanceKey(seller.Address())))
	assert.Equal(t, buyer.Address(), state.str(t, OwnerKey("f1")))
	assert.Equal(t, "false", string(state[EscrowKey("f1")]))
	_, listed := state[ListingKey("f1")]
	assert.False(t, listed)

	err = applyErr(t, state, newEntry("t-gone", buyer.Address(), signed(t, buyer, map[string]any{
		"op": "buy", "file_id": "f1",
	})))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBuyRejectsForgedSignature(t *testing.T) {
	state, _ := marketplace(t)
	seller := testWallet(t, 7)
	buyer := testWallet(t, 8)
	mintFor(t, state, seller, "f1")
	mustApply(t, state, newEntry("t-list", seller.Address(), map[string]any{
		"op": "listForSale", "file_id": "f1", "price": "100", "owner_address": seller.Address(),
	}))
	state.apply([]store.Write{{Key: BalanceKey(buyer.Address()), Value: []byte(`"100"`)}})

	cmd := signed(t, buyer, map[string]any{"op": "buy", "file_id": "f1"})
	cmd["file_id"] = "f2"
	err := applyErr(t, state, newEntry("t-forge", buyer.Address(), cmd))
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestDepositLifecycle(t *testing.T) {
	state, admin := marketplace(t)
	user := testWallet(t, 7)

	mustApply(t, state, newEntry("t-dep", user.Address(), signed(t, user, map[string]any{
		"op": "requestDepositCredit", "tx_hash": "0xfeed", "amount": "5000",
	})))

	requestID := DepositRequestID("t-dep")
	assert.Len(t, requestID, 32)

	var req DepositRequest
	require.NoError(t, json.Unmarshal(state[PendingDepositKey(requestID)], &req))
	assert.Equal(t, StatusPending, req.Status)
	assert.Equal(t, user.Address(), req.UserAddress)
	assert.Equal(t, "0xfeed", req.TxHash)

	err := applyErr(t, state, newEntry("t-cred-no", user.Address(), map[string]any{
		"op": "_admin_processCredit", "user_address": user.Address(),
		"request_id": requestID, "amount": "5000",
	}))
	assert.ErrorIs(t, err, ErrUnauthorized)

	mustApply(t, state, newEntry("t-cred", admin.Address(), map[string]any{
		"op": "_admin_processCredit", "user_address": user.Address(),
		"request_id": requestID, "amount": "5000",
	}))
	assert.Equal(t, "5000", state.str(t, BalanceKey(user.Address())))

	require.NoError(t, json.Unmarshal(state[PendingDepositKey(requestID)], &req))
	assert.Equal(t, StatusCompleted, req.Status)
}

func TestProcessCreditWithoutRequest(t *testing.T) {
	state, admin := marketplace(t)
	user := testWallet(t, 7)

	// The credit lands even when no request record exists; only the
	// bookkeeping is skipped.
	mustApply(t, state, newEntry("t-cred", admin.Address(), map[string]any{
		"op": "_admin_processCredit", "user_address": user.Address(),
		"request_id": "no-such-request", "amount": "5000",
	}))
	assert.Equal(t, "5000", state.str(t, BalanceKey(user.Address())))
	_, exists := state[PendingDepositKey("no-such-request")]
	assert.False(t, exists)

	// Crediting the same request twice stacks; the record status is not
	// a guard.
	mustApply(t, state, newEntry("t-cred2", admin.Address(), map[string]any{
		"op": "_admin_processCredit", "user_address": user.Address(),
		"request_id": "no-such-request", "amount": "5000",
	}))
	assert.Equal(t, "10000", state.str(t, BalanceKey(user.Address())))
}

func TestWithdrawalLifecycle(t *testing.T) {
	state, admin := marketplace(t)
	user := testWallet(t, 7)
	state.apply([]store.Write{{Key: BalanceKey(user.Address()), Value: []byte(`"1000"`)}})

	err := applyErr(t, state, newEntry("t-wd-big", user.Address(), signed(t, user, map[string]any{
		"op": "requestWithdrawal", "amount": "2000",
	})))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	mustApply(t, state, newEntry("t-wd", user.Address(), signed(t, user, map[string]any{
		"op": "requestWithdrawal", "amount": "600",
	})))
	assert.Equal(t, "400", state.str(t, BalanceKey(user.Address())))

	var req WithdrawalRequest
	require.NoError(t, json.Unmarshal(state[PendingWithdrawalKey("t-wd")], &req))
	assert.Equal(t, StatusApproved, req.Status)
	assert.Equal(t, "600", req.Amount)
	assert.Empty(t, req.ProcessedAt)

	mustApply(t, state, newEntry("t-done", admin.Address(), map[string]any{
		"op": "_admin_completeWithdrawal", "request_id": "t-wd",
	}))
	require.NoError(t, json.Unmarshal(state[PendingWithdrawalKey("t-wd")], &req))
	assert.Equal(t, StatusCompleted, req.Status)
	assert.Equal(t, "2025-03-14T09:26:53Z", req.ProcessedAt)

	// Completing again, or completing a request that never existed, is a
	// silent no-op.
	mustApply(t, state, newEntry("t-done2", admin.Address(), map[string]any{
		"op": "_admin_completeWithdrawal", "request_id": "t-wd",
	}))
	require.NoError(t, json.Unmarshal(state[PendingWithdrawalKey("t-wd")], &req))
	assert.Equal(t, StatusCompleted, req.Status)

	mustApply(t, state, newEntry("t-done3", admin.Address(), map[string]any{
		"op": "_admin_completeWithdrawal", "request_id": "missing",
	}))
	_, exists := state[PendingWithdrawalKey("missing")]
	assert.False(t, exists)
}

func TestCreateCollection(t *testing.T) {
	state, admin := marketplace(t)
	creator := testWallet(t, 7)

	mustApply(t, state, newEntry("t-min", admin.Address(), map[string]any{
		"op": "set_min_collection_size", "min_size": 10,
	}))

	err := applyErr(t, state, newEntry("t-small", creator.Address(), map[string]any{
		"op": "create_collection", "collection_name": "Tiny",
		"collection_description": "", "banner_file_id": "banner",
		"manifest_file_id": "manifest", "collection_size": 3,
	}))
	assert.ErrorIs(t, err, ErrValidation)

	// The referenced files need not be minted yet; their uploads may
	// still be in flight when the collection is registered.
	mustApply(t, state, newEntry("t-coll", creator.Address(), map[string]any{
		"op": "create_collection", "collection_name": "Genesis",
		"collection_description": "first drop", "banner_file_id": "banner",
		"manifest_file_id": "manifest", "collection_size": 12,
	}))

	var collections []Collection
	require.NoError(t, json.Unmarshal(state[KeyCollections], &collections))
	require.Len(t, collections, 1)
	assert.Equal(t, "t-coll", collections[0].ID)
	assert.Equal(t, creator.Address(), collections[0].Creator)
	assert.Equal(t, 12, collections[0].Size)

	err = applyErr(t, state, newEntry("t-coll2", creator.Address(), map[string]any{
		"op": "create_collection", "collection_name": "Genesis",
		"collection_description": "", "banner_file_id": "banner",
		"manifest_file_id": "manifest", "collection_size": 12,
	}))
	assert.ErrorIs(t, err, ErrConflict)

	// Names compare exactly, a case variant is a distinct collection.
	mustApply(t, state, newEntry("t-coll3", creator.Address(), map[string]any{
		"op": "create_collection", "collection_name": "genesis",
		"collection_description": "", "banner_file_id": "banner",
		"manifest_file_id": "manifest", "collection_size": 12,
	}))
	require.NoError(t, json.Unmarshal(state[KeyCollections], &collections))
	require.Len(t, collections, 2)
}

func TestSetCommissionValidation(t *testing.T) {
	state, admin := marketplace(t)
	treasury := testWallet(t, 9)

	for _, rate := range []string{"-1", "100.01", "abc"} {
		err := applyErr(t, state, newEntry("t-bad-"+rate, admin.Address(), map[string]any{
			"op": "setCommission", "rate": rate, "beneficiary_address": treasury.Address(),
		}))
		assert.ErrorIs(t, err, ErrValidation, rate)
	}

	mustApply(t, state, newEntry("t-ok", admin.Address(), map[string]any{
		"op": "setCommission", "rate": "2.5", "beneficiary_address": treasury.Address(),
	}))
	assert.Equal(t, "2.5", state.str(t, KeyCommissionRate))
}

// Two replicas that apply the same entries must hold identical state.
func TestReplayDeterminism(t *testing.T) {
	admin := testWallet(t, 1)
	alice := testWallet(t, 7)
	bob := testWallet(t, 8)

	entries := []*Entry{
		newEntry("t-1", admin.Address(), map[string]any{
			"op": "_admin_setAdmin", "admin_address": admin.Address(),
		}),
		newEntry("t-2", admin.Address(), map[string]any{
			"op": "setCommission", "rate": "5", "beneficiary_address": admin.Address(),
		}),
		newEntry("t-3", alice.Address(), map[string]any{
			"op": "operatorMint", "file_id": "f1", "filename": "a.png",
			"mime_type": "image/png", "total_chunks": 1, "file_hash": "ff",
			"owner_address": alice.Address(),
		}),
		newEntry("t-4", alice.Address(), map[string]any{
			"op": "upload_file_chunk", "file_id": "f1", "chunk_index": 0, "chunk_data": "cGl4ZWxz",
		}),
		newEntry("t-5", alice.Address(), map[string]any{
			"op": "listForSale", "file_id": "f1", "price": "100", "owner_address": alice.Address(),
		}),
		newEntry("t-6", admin.Address(), map[string]any{
			"op": "_admin_processCredit", "user_address": bob.Address(),
			"request_id": DepositRequestID("t-dep"), "amount": "100",
		}),
		newEntry("t-7", bob.Address(), map[string]any{
			"op": "_admin_setAdmin", "admin_address": bob.Address(),
		}),
		newEntry("t-8", bob.Address(), signed(t, bob, map[string]any{
			"op": "buy", "file_id": "f1",
		})),
	}
	// Entry 7 fails on every replica because the admin slot is taken.
	// Failures must replay identically too.

	replay := func() memState {
		state := memState{}
		for _, entry := range entries {
			writes, err := NewMachine().Apply(state, entry)
			if err != nil {
				continue
			}
			state.apply(writes)
		}
		return state
	}

	a, b := replay(), replay()
	require.Equal(t, len(a), len(b))
	for k, v := range a {
		assert.Equal(t, string(v), string(b[k]), k)
	}
	// The credited balance funded the purchase, so bob holds f1 and the
	// sale settled 95/5 between alice and the commission beneficiary.
	assert.Equal(t, bob.Address(), a.str(t, OwnerKey("f1")))
	assert.Equal(t, "95", a.str(t, BalanceKey(alice.Address())))
	assert.Equal(t, "5", a.str(t, BalanceKey(admin.Address())))
}
