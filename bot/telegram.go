package bot

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/xylbot/core"
	"github.com/web3guy0/xylbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TELEGRAM BOT - Signal alerts & replay control
// ═══════════════════════════════════════════════════════════════════════════════
//
// Features:
//   🎯 Signal alerts with setups, score and bracket
//   💰 Order notifications (entry / trail / extend / flatten / exit)
//   📅 Session summaries
//   🎛️ Commands (/status, /stats, /positions, /pause, /resume)
//
// TelegramBot implements core.Notifier.
//
// ═══════════════════════════════════════════════════════════════════════════════

// StatsProvider exposes engine state to the command handlers
type StatsProvider interface {
	Stats() map[string]core.Stats
	OpenPositions() []types.PositionSnapshot
	TradingEnabled() bool
}

// sender is the part of the Bot API the notifier needs
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramBot manages the Telegram interface
type TelegramBot struct {
	mu      sync.RWMutex
	api     *tgbotapi.BotAPI
	out     sender
	chatID  int64
	running bool
	stopCh  chan struct{}

	statsProvider StatsProvider

	// Control callbacks
	onPause  func()
	onResume func()
}

// NewTelegramBot creates a bot for one chat
func NewTelegramBot(token string, chatID int64, statsProvider StatsProvider) (*TelegramBot, error) {
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN not set")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID not set")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	bot := newBot(api, chatID, statsProvider)
	bot.api = api

	log.Info().Str("username", api.Self.UserName).Msg("🤖 Telegram bot initialized")
	return bot, nil
}

func newBot(out sender, chatID int64, statsProvider StatsProvider) *TelegramBot {
	return &TelegramBot{
		out:           out,
		chatID:        chatID,
		stopCh:        make(chan struct{}),
		statsProvider: statsProvider,
	}
}

// SetControlCallbacks sets pause/resume handlers
func (b *TelegramBot) SetControlCallbacks(onPause, onResume func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onPause = onPause
	b.onResume = onResume
}

// Start begins listening for commands
func (b *TelegramBot) Start() {
	b.mu.Lock()
	if b.running || b.api == nil {
		b.mu.Unlock()
		return
	}
	b.running = true
	b.mu.Unlock()

	go b.commandLoop()
	log.Info().Msg("📱 Telegram bot started")
}

// Stop stops the bot
func (b *TelegramBot) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return
	}

	b.running = false
	close(b.stopCh)
	if b.api != nil {
		b.api.StopReceivingUpdates()
	}
	log.Info().Msg("Telegram bot stopped")
}

// ═══════════════════════════════════════════════════════════════════════════════
// NOTIFICATIONS
// ═══════════════════════════════════════════════════════════════════════════════

// NotifySignal implements core.Notifier
func (b *TelegramBot) NotifySignal(ev core.SignalEvent) {
	b.sendMarkdown(FormatSignal(ev))
}

// NotifyOrderEvent implements core.Notifier
func (b *TelegramBot) NotifyOrderEvent(ev core.OrderEvent) {
	b.sendMarkdown(FormatOrderEvent(ev))
}

// NotifySessionSummary sends the end-of-day summary
func (b *TelegramBot) NotifySessionSummary(st core.DailyStat) {
	b.sendMarkdown(FormatDailyStat(st))
}

// NotifyError sends an error alert
func (b *TelegramBot) NotifyError(err error) {
	b.sendMarkdown(fmt.Sprintf("⚠️ *ERROR*\n\n`%s`", err.Error()))
}

// NotifyStartup sends startup notification
func (b *TelegramBot) NotifyStartup(mode string, symbols []string) {
	msg := fmt.Sprintf(`🚀 *XYLBOT STARTED*
━━━━━━━━━━━━━━━━━━━━

📊 Mode: *%s*
📈 Symbols: *%s*

Use /help for commands`, mode, strings.Join(symbols, ", "))

	b.sendMarkdown(msg)
}

// FormatSignal renders a signal alert
func FormatSignal(ev core.SignalEvent) string {
	s := ev.Signal
	emoji := "🟢"
	if s.Direction == types.Short {
		emoji = "🔴"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s *SIGNAL %s*\n\n", emoji, s.Direction)
	fmt.Fprintf(&sb, "📊 *%s* @ %s\n", s.Symbol, trimFloat(s.Price))
	fmt.Fprintf(&sb, "🧩 Setups: *%s* | Score: *%d*\n", joinSetups(s.Setups), s.Score)
	if s.Bid > 0 && s.Ask > 0 {
		fmt.Fprintf(&sb, "📖 Bid/Ask: %s / %s\n", trimFloat(s.Bid), trimFloat(s.Ask))
	}
	sb.WriteString("━━━━━━━━━━━━━━━━\n")

	switch {
	case ev.Rejected != "":
		fmt.Fprintf(&sb, "🚫 Not traded: _%s_", ev.Rejected)
	case ev.Request != nil:
		r := ev.Request
		fmt.Fprintf(&sb, "📦 Qty: *%s*\n", r.Quantity.String())
		fmt.Fprintf(&sb, "🛑 Stop: *%s* (-%s)\n", r.StopPrice().String(), r.StopOffset.String())
		fmt.Fprintf(&sb, "🎯 Target: *%s* (+%s)", r.TargetPrice().String(), r.TargetOffset.String())
	default:
		sb.WriteString("👀 Signal only")
	}
	return sb.String()
}

// FormatOrderEvent renders an order lifecycle step
func FormatOrderEvent(ev core.OrderEvent) string {
	var emoji string
	switch ev.Kind {
	case "ENTRY":
		emoji = "✅"
	case string(types.ModifyTrailStop):
		emoji = "🔒"
	case string(types.ModifyExtendTarget):
		emoji = "🚀"
	case string(types.ModifyFlatten):
		emoji = "⏰"
	case "EXIT":
		emoji = "📈"
		if ev.PnL.IsNegative() {
			emoji = "📉"
		}
	default:
		emoji = "📌"
	}

	msg := fmt.Sprintf("%s *%s* %s %s\n💵 Price: *%s*",
		emoji, ev.Kind, ev.Symbol, ev.Direction, ev.Price.String())
	if !ev.Quantity.IsZero() {
		msg += fmt.Sprintf(" | Qty: *%s*", ev.Quantity.String())
	}
	if ev.Kind == "EXIT" {
		msg += fmt.Sprintf("\n💰 P&L: *%s*", signed(ev.PnL))
	}
	if ev.Reason != "" {
		msg += fmt.Sprintf("\n📝 %s", ev.Reason)
	}
	return msg
}

// FormatDailyStat renders a session summary
func FormatDailyStat(st core.DailyStat) string {
	emoji := "📈"
	if st.RealizedPnL.IsNegative() {
		emoji = "📉"
	}
	return fmt.Sprintf(`%s *SESSION %s %s*
━━━━━━━━━━━━━━━━━━━━

🕯️ Bars: *%d*
🎯 Signals: *%d*
✅ Entries: *%d*
📊 Exits: *%d*
💵 P&L: *%s*`,
		emoji, st.Symbol, st.Day.Format("2006-01-02"),
		st.Bars, st.Signals, st.Entries, st.Exits, signed(st.RealizedPnL))
}

// FormatStats renders per-symbol counters, sorted by symbol
func FormatStats(stats map[string]core.Stats) string {
	if len(stats) == 0 {
		return "📭 No engines running"
	}
	symbols := make([]string, 0, len(stats))
	for s := range stats {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	var sb strings.Builder
	sb.WriteString("📈 *ENGINE STATS*\n━━━━━━━━━━━━━━━━━━━━\n")
	for _, sym := range symbols {
		st := stats[sym]
		fmt.Fprintf(&sb, "\n*%s*\n🕯️ Bars: %d | 🎯 Signals: %d | ⚠️ Ambiguous: %d\n✅ Entries: %d | 🚫 Rejected: %d | 📊 Exits: %d\n💵 P&L: *%s*\n",
			sym, st.Bars, st.Signals, st.Ambiguous,
			st.Entries, st.Rejected+st.SubmitFailures, st.Exits,
			signed(st.RealizedPnL))
	}
	return sb.String()
}

// ═══════════════════════════════════════════════════════════════════════════════
// COMMAND HANDLING
// ═══════════════════════════════════════════════════════════════════════════════

func (b *TelegramBot) commandLoop() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-b.stopCh:
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}

			// Only respond to authorized chat
			if update.Message.Chat.ID != b.chatID {
				continue
			}

			b.handleCommand(update.Message.Command())
		}
	}
}

func (b *TelegramBot) handleCommand(command string) {
	switch strings.ToLower(command) {
	case "start", "help":
		b.cmdHelp()
	case "status":
		b.cmdStatus()
	case "stats":
		b.cmdStats()
	case "positions":
		b.cmdPositions()
	case "pause":
		b.cmdPause()
	case "resume":
		b.cmdResume()
	case "ping":
		b.send("🏓 Pong!")
	default:
		b.send("❓ Unknown command. Use /help")
	}
}

func (b *TelegramBot) cmdHelp() {
	msg := `🤖 *XYLBOT COMMANDS*
━━━━━━━━━━━━━━━━━━━━

📊 /status — Bot status
📈 /stats — Engine statistics
💼 /positions — Open positions
⏸️ /pause — Stop new entries
▶️ /resume — Resume entries
🏓 /ping — Test connection`

	b.sendMarkdown(msg)
}

func (b *TelegramBot) cmdStatus() {
	if b.statsProvider == nil {
		b.send("❌ Status not available")
		return
	}

	status := "🟢 TRADING"
	if !b.statsProvider.TradingEnabled() {
		status = "⏸️ PAUSED (signals only)"
	}
	stats := b.statsProvider.Stats()

	msg := fmt.Sprintf(`📊 *BOT STATUS*
━━━━━━━━━━━━━━━━━━━━

%s
📈 Engines: *%d*
💼 Open positions: *%d*`, status, len(stats), len(b.statsProvider.OpenPositions()))

	b.sendMarkdown(msg)
}

func (b *TelegramBot) cmdStats() {
	if b.statsProvider == nil {
		b.send("❌ Stats not available")
		return
	}
	b.sendMarkdown(FormatStats(b.statsProvider.Stats()))
}

func (b *TelegramBot) cmdPositions() {
	if b.statsProvider == nil {
		b.send("❌ Positions not available")
		return
	}

	positions := b.statsProvider.OpenPositions()
	if len(positions) == 0 {
		b.send("📭 No open positions")
		return
	}

	msg := "💼 *OPEN POSITIONS*\n━━━━━━━━━━━━━━━━━━━━\n\n"
	for _, pos := range positions {
		sideEmoji := "🟢"
		if pos.Direction() == types.Short {
			sideEmoji = "🔴"
		}
		msg += fmt.Sprintf("%s *%s* %s x%s @ %s\n💵 Realized today: %s\n\n",
			sideEmoji, pos.Symbol, pos.Direction(),
			pos.Quantity.Abs().String(), pos.AveragePrice.String(),
			signed(pos.RealizedPnL))
	}

	b.sendMarkdown(msg)
}

func (b *TelegramBot) cmdPause() {
	b.mu.RLock()
	cb := b.onPause
	b.mu.RUnlock()

	if cb != nil {
		cb()
	}

	b.send("⏸️ Trading paused")
	log.Info().Msg("Trading paused via Telegram")
}

func (b *TelegramBot) cmdResume() {
	b.mu.RLock()
	cb := b.onResume
	b.mu.RUnlock()

	if cb != nil {
		cb()
	}

	b.send("▶️ Trading resumed")
	log.Info().Msg("Trading resumed via Telegram")
}

// ═══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ═══════════════════════════════════════════════════════════════════════════════

func (b *TelegramBot) send(text string) {
	msg := tgbotapi.NewMessage(b.chatID, text)
	if _, err := b.out.Send(msg); err != nil {
		log.Error().Err(err).Msg("Failed to send Telegram message")
	}
}

func (b *TelegramBot) sendMarkdown(text string) {
	msg := tgbotapi.NewMessage(b.chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := b.out.Send(msg); err != nil {
		log.Error().Err(err).Msg("Failed to send Telegram message")
	}
}

func signed(v decimal.Decimal) string {
	if v.IsNegative() {
		return v.StringFixed(2)
	}
	return "+" + v.StringFixed(2)
}

func trimFloat(v float64) string {
	return decimal.NewFromFloat(v).String()
}

func joinSetups(ids []types.SetupID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, "+")
}
