package main

import (
	"context"
	"flag"
	"os/user"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hypertokens/tapmarket/peer"
	"github.com/hypertokens/tapmarket/reconcile"
	"github.com/hypertokens/tapmarket/store"
	"github.com/hypertokens/tapmarket/wallet"
)

func main() {
	ctx := context.Background()

	bp := flag.String("d", "~/.tapmarket/data", "database directory path")
	cp := flag.String("c", "~/.tapmarket/config.toml", "configuration file path")
	flag.Parse()

	if strings.HasPrefix(*cp, "~/") {
		usr, _ := user.Current()
		*cp = filepath.Join(usr.HomeDir, (*cp)[2:])
	}
	conf, err := peer.Setup(*cp)
	if err != nil {
		panic(err)
	}

	logger, err := buildLogger(conf.Peer.Debug)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if strings.HasPrefix(*bp, "~/") {
		usr, _ := user.Current()
		*bp = filepath.Join(usr.HomeDir, (*bp)[2:])
	}
	db, err := store.OpenBadger(*bp)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	w, err := wallet.FromSeed(conf.Peer.KeySeed)
	if err != nil {
		panic(err)
	}
	logger.Info("peer wallet", zap.String("address", w.Address()))

	p, err := peer.BuildPeer(db, w, logger)
	if err != nil {
		panic(err)
	}
	if conf.Reconcile.Enabled {
		wkr, err := reconcile.NewWorker(p, conf.Reconcile, logger)
		if err != nil {
			panic(err)
		}
		p.AddWorker(wkr)
	}
	p.Run(ctx)
}

func buildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
