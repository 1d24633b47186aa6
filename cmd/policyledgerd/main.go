// Command policyledgerd runs a single policy ledger node: HTTP API, PoW
// mining, mempool, peer gossip and consensus, and the authentication and
// authorization surfaces of §4 and §6.
package main

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"policyledger/internal/authn"
	"policyledger/internal/contracts"
	"policyledger/internal/cryptoutil"
	"policyledger/internal/httpapi"
	"policyledger/internal/ledger"
	"policyledger/internal/materializer"
	"policyledger/internal/peer"
	"policyledger/pkg/config"
)

func main() {
	log := logrus.New()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	keys, err := cryptoutil.GenerateKeyPair(cfg.KeySize)
	if err != nil {
		log.Fatalf("generate node identity: %v", err)
	}

	mac, err := ledger.SeedMAC("internal/contracts/testdata/mac.wat", "internal/contracts/testdata")
	if err != nil {
		log.Fatalf("compile genesis contract: %v", err)
	}

	invoker := contracts.NewWasmerInvoker()
	manager := contracts.NewManager()

	chain, err := ledger.NewChain(cfg.ChainDifficulty, invoker, manager, log, mac)
	if err != nil {
		log.Fatalf("init chain: %v", err)
	}

	peers := peer.NewRegistry()
	for _, p := range cfg.Peers {
		peers.Add(p)
	}
	gossip := peer.NewClient(5*time.Second, log)

	selfURL := fmt.Sprintf("http://localhost:%d", cfg.Port)

	ctx, cancel := context.WithTimeout(context.Background(), ledger.StartupTimeout)
	if replaced, err := chain.ResolveConflicts(ctx, peers.List(), gossip, log); err != nil {
		log.WithError(err).Warn("startup consensus failed, continuing on local chain")
	} else if replaced {
		log.Info("adopted longer peer chain at startup")
	}
	cancel()

	view := materializer.Rebuild(chain)

	auth := authn.NewAuthenticator(authn.Settings{
		NonceExpMin: cfg.NonceExpMin,
		NonceExpS:   cfg.NonceExpS,
		NonceSize:   cfg.NonceSize,
	}, keys.Private, keys.Public)

	keyForIssuer := func(iss string) (*rsa.PublicKey, error) {
		selfIss, err := cryptoutil.EncodeOpenSSHHex(keys.Public)
		if err != nil {
			return nil, err
		}
		if iss == selfIss {
			return keys.Public, nil
		}
		return nil, cryptoutil.ErrInvalidKey
	}

	srv := &httpapi.Server{
		Chain:        chain,
		View:         view,
		Invoker:      invoker,
		Peers:        peers,
		Gossip:       gossip,
		Auth:         auth,
		Priv:         keys.Private,
		Pub:          keys.Public,
		SelfURL:      selfURL,
		Log:          log,
		KeyForIssuer: keyForIssuer,
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.WithFields(logrus.Fields{"role": cfg.NodeRole, "addr": addr, "difficulty": cfg.ChainDifficulty}).Info("policyledgerd starting")
	if err := http.ListenAndServe(addr, httpapi.NewRouter(srv)); err != nil {
		log.Fatalf("server: %v", err)
	}
}
