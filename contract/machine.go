package contract

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/hypertokens/tapmarket/canonical"
	"github.com/hypertokens/tapmarket/store"
)

// View is read access to the committed state table. Get returns nil for an
// absent key.
type View interface {
	Get(key string) ([]byte, error)
}

// Entry is one committed log record. CreatedAt is assigned by the peer that
// appended the entry and is the only clock handlers may observe.
type Entry struct {
	TraceID   string          `json:"trace_id"`
	Sender    string          `json:"sender"`
	CreatedAt time.Time       `json:"created_at"`
	Command   json.RawMessage `json:"command"`
}

// Machine applies committed entries to state. It holds no state of its own,
// so the same machine value can replay any log against any view.
type Machine struct{}

func NewMachine() *Machine {
	return &Machine{}
}

// Apply runs the entry's command against the view and returns the write set
// it produced. On error the write set is nil and the view is untouched, so
// a failed operation has no effect beyond consuming its sequence number.
func (m *Machine) Apply(view View, entry *Entry) ([]store.Write, error) {
	cmd, err := ParseCommand(entry.Command)
	if err != nil {
		return nil, err
	}

	s := &session{view: view, entry: entry, overlay: make(map[string]*store.Write)}
	switch body := cmd.Body.(type) {
	case *MintCommand:
		err = s.handleMint(body)
	case *ChunkCommand:
		err = s.handleChunk(body)
	case *TransferCommand:
		err = s.handleTransfer(body)
	case *ListCommand:
		err = s.handleList(body)
	case *DelistCommand:
		err = s.handleDelist(body)
	case *BuyCommand:
		err = s.handleBuy(cmd, body)
	case *AddOperatorCommand:
		err = s.handleAddOperator(cmd, body)
	case *RemoveOperatorCommand:
		err = s.handleRemoveOperator(cmd, body)
	case *MintFeeCommand:
		err = s.handleSetMintFee(body)
	case *DepositCommand:
		err = s.handleRequestDeposit(cmd, body)
	case *WithdrawalCommand:
		err = s.handleRequestWithdrawal(cmd, body)
	case *SetAdminCommand:
		err = s.handleSetAdmin(body)
	case *CommissionCommand:
		err = s.handleSetCommission(body)
	case *ProcessCreditCommand:
		err = s.handleProcessCredit(body)
	case *CompleteWithdrawalCommand:
		err = s.handleCompleteWithdrawal(body)
	case *CollectionCommand:
		err = s.handleCreateCollection(body)
	case *MinCollectionSizeCommand:
		err = s.handleSetMinCollectionSize(body)
	default:
		err = fmt.Errorf("%w: unhandled op %s", ErrValidation, cmd.Op)
	}
	if err != nil {
		return nil, err
	}
	return s.flush(), nil
}

// session buffers a single operation's writes over the committed view.
// Reads see the overlay first, so a handler observes its own mutations.
// Nothing reaches the store until the handler returns without error.
type session struct {
	view    View
	entry   *Entry
	overlay map[string]*store.Write
	order   []string
}

func (s *session) get(key string) ([]byte, error) {
	if w, ok := s.overlay[key]; ok {
		if w.Delete {
			return nil, nil
		}
		return w.Value, nil
	}
	return s.view.Get(key)
}

func (s *session) put(key string, v any) error {
	val, err := canonical.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	s.record(key, &store.Write{Key: key, Value: val})
	return nil
}

func (s *session) del(key string) {
	s.record(key, &store.Write{Key: key, Delete: true})
}

func (s *session) record(key string, w *store.Write) {
	if _, ok := s.overlay[key]; !ok {
		s.order = append(s.order, key)
	}
	s.overlay[key] = w
}

func (s *session) flush() []store.Write {
	writes := make([]store.Write, 0, len(s.order))
	for _, key := range s.order {
		writes = append(writes, *s.overlay[key])
	}
	return writes
}

func (s *session) getString(key string) (string, error) {
	raw, err := s.get(key)
	if err != nil || raw == nil {
		return "", err
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return v, nil
}

func (s *session) getBool(key string) (bool, error) {
	raw, err := s.get(key)
	if err != nil || raw == nil {
		return false, err
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return v, nil
}

// getBig reads a base unit amount, treating an absent key as zero.
func (s *session) getBig(key string) (*big.Int, error) {
	raw, err := s.get(key)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return new(big.Int), nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	n, ok := new(big.Int).SetString(v, 10)
	if !ok {
		return nil, fmt.Errorf("corrupt amount at %s: %q", key, v)
	}
	return n, nil
}

func (s *session) getJSON(key string, out any) (bool, error) {
	raw, err := s.get(key)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

// timestamp renders the entry's committed time. Handlers never read a wall
// clock, otherwise replicas would diverge.
func (s *session) timestamp() string {
	return s.entry.CreatedAt.UTC().Format(time.RFC3339Nano)
}

func (s *session) appendUserNFT(address, fileID string) error {
	var nfts []string
	if _, err := s.getJSON(UserNFTsKey(address), &nfts); err != nil {
		return err
	}
	return s.put(UserNFTsKey(address), append(nfts, fileID))
}

func (s *session) removeUserNFT(address, fileID string) error {
	var nfts []string
	if _, err := s.getJSON(UserNFTsKey(address), &nfts); err != nil {
		return err
	}
	kept := make([]string, 0, len(nfts))
	for _, id := range nfts {
		if id != fileID {
			kept = append(kept, id)
		}
	}
	return s.put(UserNFTsKey(address), kept)
}

func (s *session) creditBalance(address string, delta *big.Int) error {
	bal, err := s.getBig(BalanceKey(address))
	if err != nil {
		return err
	}
	return s.put(BalanceKey(address), bal.Add(bal, delta).String())
}
