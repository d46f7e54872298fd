package peer

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
)

type Configuration struct {
	Peer      PeerConfig      `toml:"peer"`
	Reconcile ReconcileConfig `toml:"reconcile"`
}

type PeerConfig struct {
	KeySeed          string `toml:"key-seed"`
	ChunkPauseMillis int64  `toml:"chunk-pause-millis"`
	Debug            bool   `toml:"debug"`
}

type ReconcileConfig struct {
	Enabled         bool   `toml:"enabled"`
	IntervalSeconds int64  `toml:"interval-seconds"`
	WithdrawalFee   string `toml:"withdrawal-fee"`
	WithdrawalsPath string `toml:"withdrawals-path"`
}

func Setup(path string) (*Configuration, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var conf Configuration
	if err := toml.Unmarshal(f, &conf); err != nil {
		return nil, err
	}
	if conf.Peer.KeySeed == "" {
		return nil, fmt.Errorf("peer key-seed is required in %s", path)
	}
	return &conf, nil
}
