package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/xylbot/bot"
	"github.com/web3guy0/xylbot/core"
	"github.com/web3guy0/xylbot/execution"
	"github.com/web3guy0/xylbot/feeds"
	"github.com/web3guy0/xylbot/internal/config"
	"github.com/web3guy0/xylbot/internal/dashboard"
	"github.com/web3guy0/xylbot/storage"
	"github.com/web3guy0/xylbot/types"
)

const version = "1.0.0"

// statsView joins router counters and broker positions for the bot
type statsView struct {
	router      *core.Router
	reconcilers []*execution.Reconciler
}

func (v *statsView) Stats() map[string]core.Stats {
	return v.router.Stats()
}

func (v *statsView) OpenPositions() []types.PositionSnapshot {
	var out []types.PositionSnapshot
	for _, r := range v.reconcilers {
		if pos, err := r.GetPosition(); err == nil && !pos.Quantity.IsZero() {
			out = append(out, pos)
		}
	}
	return out
}

func (v *statsView) TradingEnabled() bool {
	for _, sym := range v.router.Symbols() {
		if e, ok := v.router.Engine(sym); ok && !e.TradingEnabled() {
			return false
		}
	}
	return true
}

func main() {
	// ═══════════════════════════════════════════════════════════════════════════════
	// BOOTSTRAP
	// ═══════════════════════════════════════════════════════════════════════════════

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if len(os.Args) > 1 {
		cfg.BarsFile = os.Args[1]
	}

	log.Info().Msg("═══════════════════════════════════════════════════════════════")
	log.Info().Msgf("              XYLBOT v%s - SESSION VWAP SETUPS", version)
	log.Info().Msg("═══════════════════════════════════════════════════════════════")

	cal, err := cfg.Calendar()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid calendar")
	}

	// ═══════════════════════════════════════════════════════════════════════════════
	// INITIALIZE COMPONENTS
	// ═══════════════════════════════════════════════════════════════════════════════

	// 1. Bars
	bars, err := feeds.LoadCSVFile(cfg.BarsFile, cfg.DefaultSymbol, cal.Location)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.BarsFile).Msg("Failed to load bars")
	}
	log.Info().Int("bars", len(bars)).Str("file", cfg.BarsFile).Msg("✅ Bars loaded")

	// 2. Storage
	var db *storage.Database
	if cfg.DatabaseEnabled {
		db, err = storage.New(cfg.DatabasePath)
		if err != nil {
			log.Warn().Err(err).Msg("Database connection failed, continuing without persistence")
			db = nil
		} else {
			log.Info().Msg("✅ Storage layer initialized")
		}
	}

	// 3. Engines, one per symbol in the file
	symbols := core.NewSymbolManager()
	router := core.NewRouter()
	view := &statsView{router: router}

	seen := make(map[string]bool)
	for _, b := range bars {
		if seen[b.Symbol] {
			continue
		}
		seen[b.Symbol] = true

		inst, ok := symbols.Resolve(b.Symbol)
		if !ok {
			log.Warn().Str("symbol", b.Symbol).Msg("⚠️ Unknown instrument, bars skipped")
			continue
		}

		engineCfg, err := cfg.Engine(inst)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid engine configuration")
		}

		var store execution.PositionStore
		if db != nil {
			store = db
		}
		rec := execution.NewReconciler(execution.NewPaperBroker(cfg.Paper, inst, cal), store)
		if cfg.RecoverState {
			if ok, err := rec.RecoverPosition(); err != nil {
				log.Warn().Err(err).Str("symbol", inst.Symbol).Msg("Position recovery failed")
			} else if ok {
				log.Info().Str("symbol", inst.Symbol).Msg("♻️ Open position recovered")
			}
		}
		view.reconcilers = append(view.reconcilers, rec)

		engine := core.NewEngine(engineCfg, rec)
		if db != nil {
			engine.SetRecorder(db)
		}
		router.Subscribe(engine)
	}
	log.Info().Strs("symbols", router.Symbols()).Msg("✅ Engines initialized")

	// 4. Telegram
	var tg *bot.TelegramBot
	if cfg.TelegramEnabled() {
		tg, err = bot.NewTelegramBot(cfg.TelegramToken, cfg.TelegramChatID, view)
		if err != nil {
			log.Warn().Err(err).Msg("Telegram unavailable, continuing without notifications")
			tg = nil
		} else {
			tg.SetControlCallbacks(
				func() { router.SetTradingEnabled(false) },
				func() { router.SetTradingEnabled(true) },
			)
			for _, sym := range router.Symbols() {
				if e, ok := router.Engine(sym); ok {
					e.SetNotifier(tg)
				}
			}
			tg.Start()
			tg.NotifyStartup("PAPER", router.Symbols())
			log.Info().Msg("✅ Telegram bot started")
		}
	}

	// ═══════════════════════════════════════════════════════════════════════════════
	// REPLAY
	// ═══════════════════════════════════════════════════════════════════════════════

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, b := range bars {
			if _, err := router.Route(b); err != nil && !errors.Is(err, core.ErrUnknownSymbol) {
				log.Debug().Err(err).Str("symbol", b.Symbol).Msg("Bar dropped")
			}
		}
		router.Flush()
	}()

	log.Info().Msg("🚀 Replay running...")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-done:
		printSummary(view)
		if tg != nil {
			// keep answering commands until stopped
			<-sigCh
		}
	case <-sigCh:
		log.Info().Msg("🛑 Interrupted")
	}

	// ═══════════════════════════════════════════════════════════════════════════════
	// GRACEFUL SHUTDOWN
	// ═══════════════════════════════════════════════════════════════════════════════

	log.Info().Msg("🛑 Shutting down...")
	if tg != nil {
		tg.Stop()
	}
	if db != nil {
		db.Close()
	}
	log.Info().Msg("👋 Goodbye!")
}

func printSummary(view *statsView) {
	total := decimal.Zero
	for sym, st := range view.Stats() {
		total = total.Add(st.RealizedPnL)
		log.Info().
			Str("symbol", sym).
			Int("bars", st.Bars).
			Int("signals", st.Signals).
			Int("ambiguous", st.Ambiguous).
			Int("entries", st.Entries).
			Int("rejected", st.Rejected).
			Int("exits", st.Exits).
			Str("pnl", st.RealizedPnL.StringFixed(2)).
			Msg("📊 Replay summary")
	}
	for _, r := range view.reconcilers {
		m := r.Broker().Metrics()
		log.Info().
			Str("symbol", m.Symbol).
			Int("trades", m.Trades).
			Int("wins", m.Wins).
			Int("losses", m.Losses).
			Float64("win_rate", m.WinRate()).
			Str("pnl", m.TotalPnL.StringFixed(2)).
			Msg("🧾 Paper fills")
	}
	log.Info().Str("total_pnl", total.StringFixed(2)).Msg("💰 Replay finished")

	dashboard.NewReport("XYLBOT REPLAY").Render(os.Stdout, view.Stats())
}
