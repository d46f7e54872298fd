package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"

	"github.com/hypertokens/tapmarket/canonical"
	"github.com/hypertokens/tapmarket/contract"
	"github.com/hypertokens/tapmarket/store"
	"github.com/hypertokens/tapmarket/wallet"
)

const drainBatch = 100

// Worker is a background job driven by the peer, typically settlement
// against the outside world.
type Worker interface {
	Run(ctx context.Context)
}

// Peer ties a wallet, a committed log and the contract machine together.
// Every mutation goes through the log. State is only ever the result of
// applying committed entries in order, so any two peers that hold the
// same log hold the same state.
type Peer struct {
	store   *store.BadgerStore
	wallet  *wallet.Wallet
	machine *contract.Machine
	clock   *Clock
	workers []Worker
	log     *zap.Logger

	mutex sync.Mutex
}

func BuildPeer(bs *store.BadgerStore, w *wallet.Wallet, logger *zap.Logger) (*Peer, error) {
	clock, err := NewClock(bs)
	if err != nil {
		return nil, err
	}
	return &Peer{
		store:   bs,
		wallet:  w,
		machine: contract.NewMachine(),
		clock:   clock,
		log:     logger,
	}, nil
}

func (p *Peer) Wallet() *wallet.Wallet {
	return p.wallet
}

func (p *Peer) StateGet(key string) ([]byte, error) {
	return p.store.StateGet(key)
}

func (p *Peer) StateScan(prefix string) ([]store.KeyValue, error) {
	return p.store.StateScan(prefix)
}

func (p *Peer) StateDump() ([]store.KeyValue, error) {
	return p.store.StateDump()
}

// Transact commits a command to the log and applies it, returning the
// entry's trace id and the outcome of applying it. The command is
// pre-validated before it is appended, so a peer never pollutes the log
// with entries that cannot even parse. A command that parses but fails
// against state still consumes its log position on every replica.
func (p *Peer) Transact(ctx context.Context, command any) (string, error) {
	raw, err := canonical.Marshal(command)
	if err != nil {
		return "", err
	}
	if _, err := contract.ParseCommand(raw); err != nil {
		return "", err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	entry := &contract.Entry{
		TraceID:   id.String(),
		Sender:    p.wallet.Address(),
		CreatedAt: p.clock.Now(),
		Command:   raw,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return "", err
	}
	if _, err := p.store.AppendEntry(data); err != nil {
		return "", err
	}
	return entry.TraceID, p.drain(entry.TraceID)
}

// ReplicateEntry ingests an entry appended by another peer, verbatim. The
// bytes must be exactly what the origin peer committed, otherwise the
// replicas diverge.
func (p *Peer) ReplicateEntry(data []byte) error {
	var entry contract.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return err
	}
	if _, err := p.store.AppendEntry(data); err != nil {
		return err
	}
	return p.Refresh()
}

// Refresh applies any committed entries past the checkpoint.
func (p *Peer) Refresh() error {
	return p.drain("")
}

// drain advances the apply checkpoint through all committed entries. When
// traceID is set, the error from applying that specific entry is returned
// so Transact can report its caller's outcome.
func (p *Peer) drain(traceID string) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	var result error
	for {
		applied, err := p.store.ReadAppliedSequence()
		if err != nil {
			return err
		}
		entries, err := p.store.ListEntriesSince(applied, drainBatch)
		if err != nil {
			return err
		}
		for _, raw := range entries {
			var entry contract.Entry
			if err := json.Unmarshal(raw.Data, &entry); err != nil {
				return fmt.Errorf("corrupt log entry %d: %w", raw.Seq, err)
			}
			writes, err := p.machine.Apply(stateView{p.store}, &entry)
			if err != nil {
				p.log.Info("entry rejected",
					zap.Uint64("seq", raw.Seq),
					zap.String("trace", entry.TraceID),
					zap.Error(err))
				writes = nil
			}
			if entry.TraceID == traceID {
				result = err
			}
			if err := p.store.ApplyWrites(raw.Seq, writes); err != nil {
				return err
			}
		}
		if len(entries) < drainBatch {
			return result
		}
	}
}

// Run drives the peer until the context ends, starting its workers and
// periodically applying entries that arrived outside Transact.
func (p *Peer) Run(ctx context.Context) {
	for _, wkr := range p.workers {
		go wkr.Run(ctx)
	}
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Refresh(); err != nil {
				p.log.Error("refresh", zap.Error(err))
			}
		}
	}
}

func (p *Peer) AddWorker(wkr Worker) {
	p.workers = append(p.workers, wkr)
}

type stateView struct {
	bs *store.BadgerStore
}

func (v stateView) Get(key string) ([]byte, error) {
	return v.bs.StateGet(key)
}
