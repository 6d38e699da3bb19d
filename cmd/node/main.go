package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hyunwoo-p/tokendex/params"
	"github.com/hyunwoo-p/tokendex/pkg/api"
	"github.com/hyunwoo-p/tokendex/pkg/chain"
	"github.com/hyunwoo-p/tokendex/pkg/indexer"
	"github.com/hyunwoo-p/tokendex/pkg/storage"
	"github.com/hyunwoo-p/tokendex/pkg/util"
)

// Devnet accounts funded at genesis when SEED_ON_START is set. The deployer
// itself keeps the remainder of each token's supply.
var devUsers = []common.Address{
	common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"),
	common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"),
}

func main() {
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLoggerWithFile(cfg.Node.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	if err := os.MkdirAll(cfg.Node.DataDir, 0755); err != nil {
		sugar.Fatalw("data_dir_failed", "dir", cfg.Node.DataDir, "err", err)
	}

	store, err := storage.Open(filepath.Join(cfg.Node.DataDir, "events.db"))
	if err != nil {
		sugar.Fatalw("store_open_failed", "err", err)
	}
	defer store.Close()

	wal, err := storage.NewFileWAL(filepath.Join(cfg.Node.DataDir, "events.log"))
	if err != nil {
		sugar.Fatalw("wal_open_failed", "err", err)
	}
	defer wal.Close()

	// Resume event numbering after the archive's newest entry so this run
	// appends to the durable history instead of overwriting it.
	lastSeq, err := store.LastSeq()
	if err != nil {
		sugar.Fatalw("archive_scan_failed", "err", err)
	}
	if lastSeq > 0 {
		sugar.Infow("archive_resumed", "last_seq", lastSeq)
	}

	c := chain.New(chain.Config{
		Deployer:   common.HexToAddress(cfg.Genesis.Deployer),
		FeeAccount: common.HexToAddress(cfg.Exchange.FeeAccount),
		FeePercent: cfg.Exchange.FeePercent,
		StartSeq:   lastSeq,
	}, util.RealClock{}, sugar, wal, store)
	defer c.Close()

	// The view subscribes before genesis activity so it misses nothing;
	// Replay below covers anything committed before the subscription, and
	// the log doubles as the catch-up source when the fanout drops.
	view := indexer.NewView(common.HexToAddress(cfg.Exchange.FeeAccount))
	sub := c.Events().Subscribe()
	go view.Run(sub, c.Events())

	c.DeployToken("Token1", "TK1", cfg.Genesis.TokenSupply)
	c.DeployToken("Token2", "TK2", cfg.Genesis.TokenSupply)
	c.DeployToken("Token3", "TK3", cfg.Genesis.TokenSupply)

	if cfg.Genesis.SeedOnStart {
		if err := c.FundAccounts(devUsers, 500000); err != nil {
			sugar.Fatalw("genesis_funding_failed", "err", err)
		}
		sugar.Infow("genesis_funded", "users", len(devUsers))
	}
	view.Replay(c.Events().All())

	server := api.NewServer(c, view, store, sugar, cfg.API.RequireSignatures)
	go func() {
		if err := server.Start(cfg.Node.APIAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	sugar.Infow("node_started",
		"api", cfg.Node.APIAddr,
		"fee_account", cfg.Exchange.FeeAccount,
		"fee_percent", cfg.Exchange.FeePercent,
		"require_signatures", cfg.API.RequireSignatures,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	sugar.Infow("node_shutting_down")
}
