package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"diamondlottery/internal/config"
	"diamondlottery/internal/events"
	"diamondlottery/internal/handlers"
	"diamondlottery/internal/modules"
	"diamondlottery/internal/router"
	"diamondlottery/internal/store"
	"diamondlottery/internal/token"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "diamondlottery"
	app.Usage = "commit-reveal ticket lottery behind a selector router"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c", Usage: "TOML configuration file"},
		cli.StringFlag{Name: "listen, l", Usage: "override server.listen"},
		cli.BoolFlag{Name: "verbose", Usage: "log to stderr"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		logger.Fatalf("%v", err)
	}
}

func run(c *cli.Context) error {
	defer logger.Init("diamondlottery", c.Bool("verbose"), false, io.Discard).Close()

	// 1. Load the configuration
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if l := c.String("listen"); l != "" {
		cfg.Server.Listen = l
	}

	// 2. Open durable storage and restore the router state
	db, err := store.OpenBolt(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	st, err := db.Load()
	if err != nil {
		return err
	}
	if st == nil {
		st = store.New(cfg.OperatorAddress(), cfg.Lottery.RevealWindow.Duration)
		logger.Infof("Starting with empty storage, operator %s", cfg.OperatorAddress())
	}

	// 3. Payment token and event fan-out
	ledger := token.NewLedger(cfg.Token.Symbol)
	bus := events.NewBus()
	recorder := events.NewRecorder(cfg.Events.History)
	if err := bus.Subscribe(recorder.Record); err != nil {
		return err
	}

	// 4. Router and modules
	r := router.New(st, router.Options{
		Address:   common.BytesToAddress(crypto.Keccak256([]byte("router:" + cfg.Token.Symbol))),
		Tokens:    token.NewRegistry(ledger),
		Persister: db,
		Publisher: bus,
	})
	if err := modules.Deploy(r, modules.Default()...); err != nil {
		return err
	}
	operator := modules.NewClient(r, st.Owner)
	if st.PaymentToken == (common.Address{}) {
		if err := operator.SetPaymentToken(ledger.Address()); err != nil {
			return err
		}
	}

	// 5. Background finalizer for rounds whose reveal window closed
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if every := cfg.Lottery.FinalizeEvery.Duration; every > 0 {
		go modules.RunFinalizer(ctx, operator, every)
	}

	// 6. HTTP surface
	if cfg.Server.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	h := handlers.NewHTTPHandler(r, ledger, recorder, cfg.FaucetAmount())
	engine := gin.Default()
	h.RegisterPublicRoutes(engine)
	senderRoutes := engine.Group("/")
	senderRoutes.Use(h.SenderMiddleware())
	h.RegisterSenderRoutes(senderRoutes)

	errc := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on %s", cfg.Server.Listen)
		errc <- engine.Run(cfg.Server.Listen)
	}()
	select {
	case <-ctx.Done():
		logger.Infof("Shutting down")
		return nil
	case err := <-errc:
		return err
	}
}
