// Command supernovad starts a Supernova node: it opens the on-disk
// storage manager, rebuilds the UTXO set and chain state, bootstraps the
// testnet genesis block on a fresh datadir, and idles serving block
// templates to whatever external miner is configured to poll it.
//
// There is no P2P or RPC surface here (both are out of scope for this
// binary); supernovad's job ends at standing up the engine a future
// networking layer would sit in front of.
package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v1"

	"github.com/supernova-labs/supernova/blockchain"
	"github.com/supernova-labs/supernova/blockchain/utxo"
	"github.com/supernova-labs/supernova/chaincfg"
	"github.com/supernova-labs/supernova/consensus"
	"github.com/supernova-labs/supernova/crypto/sigscheme"
	"github.com/supernova-labs/supernova/log"
	"github.com/supernova-labs/supernova/mempool"
	"github.com/supernova-labs/supernova/params"
	"github.com/supernova-labs/supernova/storage/database"
	"github.com/supernova-labs/supernova/work"
)

var logger = log.NewModuleLogger(log.Chain)

var (
	dataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory for the chain database",
		Value: "./supernovad-data",
	}
	dbTypeFlag = cli.StringFlag{
		Name:  "dbtype",
		Usage: `Chain storage database type ("leveldb", "badger", "memory")`,
		Value: "leveldb",
	}
	levelDBCacheFlag = cli.IntFlag{
		Name:  "leveldb.cache",
		Usage: "LevelDB in-memory cache size in MB",
		Value: 64,
	}
	levelDBHandlesFlag = cli.IntFlag{
		Name:  "leveldb.handles",
		Usage: "Number of file handles LevelDB may hold open",
		Value: 256,
	}
	minerScriptFlag = cli.StringFlag{
		Name:  "miner.script",
		Usage: "Hex-encoded pubkey script a mined block's miner payout is locked to",
	}
	treasuryScriptFlag = cli.StringFlag{
		Name:  "treasury.script",
		Usage: "Hex-encoded pubkey script a mined block's treasury payout is locked to",
	}
	templateMaxBytesFlag = cli.Uint64Flag{
		Name:  "template.maxbytes",
		Usage: "Maximum serialized size of a block template's transactions",
		Value: 1 << 20,
	}
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "supernovad"
	app.Usage = "Supernova proof-of-work node"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		dataDirFlag,
		dbTypeFlag,
		levelDBCacheFlag,
		levelDBHandlesFlag,
		minerScriptFlag,
		treasuryScriptFlag,
		templateMaxBytesFlag,
	}
	app.Action = run
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func dbType(name string) (database.DBType, error) {
	switch name {
	case "leveldb":
		return database.LevelDB, nil
	case "badger":
		return database.BadgerDB, nil
	case "memory":
		return database.MemoryDB, nil
	default:
		return 0, errors.Errorf("supernovad: unknown dbtype %q", name)
	}
}

// run opens storage, brings chain state up to whatever the datadir already
// holds (bootstrapping genesis on a fresh one), and blocks serving the
// node's long-running duties. It never returns on success.
func run(ctx *cli.Context) error {
	dt, err := dbType(ctx.String(dbTypeFlag.Name))
	if err != nil {
		return err
	}

	mgr, report, err := database.Open(database.Config{
		Dir:            ctx.String(dataDirFlag.Name),
		DBType:         dt,
		CacheSizeMB:    ctx.Int(levelDBCacheFlag.Name),
		LevelDBHandles: ctx.Int(levelDBHandlesFlag.Name),
	})
	if err != nil {
		return errors.Wrap(err, "supernovad: open storage")
	}
	defer mgr.Close()

	if report.DirtyShutdown {
		logger.Warn("previous shutdown was unclean", "interruptedOp", report.InterruptedOp)
	} else {
		logger.Info("storage opened", "lastCleanShutdown", report.LastCleanShutdown)
	}

	net := params.Testnet()

	utxoSet, err := utxo.New(mgr, utxo.Options{
		CacheSize:           net.UTXOCacheSize,
		ExpectedUTXOCount:   net.ExpectedUTXOCount,
		ExpectedSpentCount:  net.ExpectedUTXOCount,
		FilterFalsePositive: net.BloomFilterFalsePositiveRate,
	})
	if err != nil {
		return fmt.Errorf("supernovad: build utxo set: %w", err)
	}

	chainNotifier := blockchain.NewNotifier()
	pool := mempool.New(net, utxoSet, sigscheme.DefaultRegistry(), mempool.NewNotifier(), mempool.DefaultOptions())

	cs := blockchain.New(blockchain.Deps{
		Manager:  mgr,
		UTXOSet:  utxoSet,
		Net:      net,
		Engine:   consensus.NewPoWEngine(),
		Registry: sigscheme.DefaultRegistry(),
		Notifier: chainNotifier,
		Pool:     pool,
	})

	if _, err := mgr.ReadBestHash(); err == database.ErrNotFound {
		logger.Info("no existing chain state found, bootstrapping genesis")
		if err := cs.AcceptGenesis(chaincfg.TestnetGenesisBlock()); err != nil {
			return fmt.Errorf("supernovad: accept genesis: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("supernovad: read best hash: %w", err)
	}

	tip, height, chainWork := cs.BestTip()
	logger.Info("chain state ready", "tip", tip, "height", height, "work", chainWork.Value())

	minerScript, err := hex.DecodeString(ctx.String(minerScriptFlag.Name))
	if err != nil {
		return fmt.Errorf("supernovad: decode %s: %w", minerScriptFlag.Name, err)
	}
	treasuryScript, err := hex.DecodeString(ctx.String(treasuryScriptFlag.Name))
	if err != nil {
		return fmt.Errorf("supernovad: decode %s: %w", treasuryScriptFlag.Name, err)
	}

	builder := work.NewBuilder(cs, pool, net)

	if len(minerScript) == 0 || len(treasuryScript) == 0 {
		logger.Info("no payout scripts configured, node will sync and relay but cannot build block templates")
		select {}
	}

	limits := work.Limits{MaxBytes: ctx.Uint64(templateMaxBytesFlag.Name)}
	tmpl, err := builder.BuildBlockTemplate(minerScript, treasuryScript, limits)
	if err != nil {
		return fmt.Errorf("supernovad: build initial block template: %w", err)
	}
	logger.Info("block template ready", "transactions", len(tmpl.Transactions), "reward", tmpl.ExpectedReward)

	select {}
}
