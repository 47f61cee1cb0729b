package strategy

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/xylbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// VIRTUAL POSITION TRACKER - Always-on paper position that paces signals
// ═══════════════════════════════════════════════════════════════════════════════
//
// FLAT -> LONG/SHORT on an accepted signal, entry at the bar close.
// While open: trail first, then check the stop before the target.
// A real position always wins: the tracker is forced to its side.
//
// ═══════════════════════════════════════════════════════════════════════════════

// VirtualConfig holds the paper bracket parameters
type VirtualConfig struct {
	HardStopPct     float64 // percent of entry, 0.1 = 0.1%
	TargetATRWide   float64
	TargetATRNarrow float64
	TrendThreshold  float64 // |slope| above this picks the wide target
	TrailTriggerATR float64
	TrailDistATR    float64
}

// DefaultVirtualConfig returns the standard bracket
func DefaultVirtualConfig() VirtualConfig {
	return VirtualConfig{
		HardStopPct:     0.20,
		TargetATRWide:   8,
		TargetATRNarrow: 4,
		TrendThreshold:  0.15,
		TrailTriggerATR: 2,
		TrailDistATR:    1.5,
	}
}

// VirtualExit describes a paper exit
type VirtualExit struct {
	Direction types.Direction
	Entry     float64
	Price     float64
	Index     int
	Reason    string // stop | target
}

// VirtualTracker owns the VirtualPosition of one instrument
type VirtualTracker struct {
	cfg  VirtualConfig
	pos  types.VirtualPosition
	live types.Direction // side of the real position, None when flat
}

// NewVirtualTracker creates a flat tracker
func NewVirtualTracker(cfg VirtualConfig) *VirtualTracker {
	vt := &VirtualTracker{cfg: cfg}
	vt.Reset()
	return vt
}

// Reset returns to flat and forgets every bar marker
func (vt *VirtualTracker) Reset() {
	vt.live = types.None
	vt.pos = types.VirtualPosition{
		State:         types.Flat,
		EntryBar:      types.NeverBar,
		LastSignalBar: types.NeverBar,
		LastExitBar:   types.NeverBar,
	}
}

// ResetSession flattens without forgetting signal and exit markers
func (vt *VirtualTracker) ResetSession() {
	vt.live = types.None
	vt.pos.State = types.Flat
	vt.pos.EntryPrice = 0
	vt.pos.StopPrice = 0
	vt.pos.TargetPrice = 0
	vt.pos.EntryBar = types.NeverBar
}

// Position returns a copy of the current state
func (vt *VirtualTracker) Position() types.VirtualPosition {
	return vt.pos
}

// StopFor returns the hard stop for an entry
func (vt *VirtualTracker) StopFor(dir types.Direction, entry float64) float64 {
	return entry - dir.Sign()*entry*vt.cfg.HardStopPct/100
}

// TargetFor returns the ATR target for an entry, wide in a trending tape
func (vt *VirtualTracker) TargetFor(dir types.Direction, entry, atr, slope float64) float64 {
	mult := vt.cfg.TargetATRNarrow
	if math.Abs(slope) > vt.cfg.TrendThreshold {
		mult = vt.cfg.TargetATRWide
	}
	return entry + dir.Sign()*mult*atr
}

// OnBarClose advances the state machine by one closed bar. trigger is the
// accepted signal direction for this bar (None if no signal).
func (vt *VirtualTracker) OnBarClose(bar types.Bar, index int, atr, slope float64, trigger types.Direction) (types.VirtualPosition, *VirtualExit) {
	dir := vt.pos.State.Direction()

	if dir != types.None {
		// The entry bar was already consumed by the entry itself
		if index <= vt.pos.EntryBar {
			return vt.pos, nil
		}
		// A live position owns the exit; the virtual side follows it
		if vt.live == dir {
			return vt.pos, nil
		}
		vt.trail(dir, bar.Close, atr)
		exit := vt.checkExit(dir, bar, index)
		return vt.pos, exit
	}

	if trigger == types.None {
		return vt.pos, nil
	}

	entry := bar.Close
	vt.pos.State = types.StateFor(trigger)
	vt.pos.EntryPrice = entry
	vt.pos.StopPrice = vt.StopFor(trigger, entry)
	vt.pos.TargetPrice = vt.TargetFor(trigger, entry, atr, slope)
	vt.pos.EntryBar = index
	vt.pos.LastSignalBar = index

	log.Debug().
		Int("bar", index).
		Str("side", string(trigger)).
		Float64("entry", entry).
		Float64("stop", vt.pos.StopPrice).
		Float64("target", vt.pos.TargetPrice).
		Msg("Virtual entry")
	return vt.pos, nil
}

// trail tightens the stop once the open gain exceeds TrailTriggerATR·ATR
func (vt *VirtualTracker) trail(dir types.Direction, px, atr float64) {
	if atr <= 0 || vt.cfg.TrailTriggerATR <= 0 {
		return
	}
	gain := dir.Sign() * (px - vt.pos.EntryPrice)
	if gain <= vt.cfg.TrailTriggerATR*atr {
		return
	}
	candidate := px - dir.Sign()*vt.cfg.TrailDistATR*atr
	if dir == types.Long {
		vt.pos.StopPrice = math.Max(vt.pos.StopPrice, candidate)
	} else {
		vt.pos.StopPrice = math.Min(vt.pos.StopPrice, candidate)
	}
}

func (vt *VirtualTracker) checkExit(dir types.Direction, bar types.Bar, index int) *VirtualExit {
	var price float64
	var reason string

	if dir == types.Long {
		switch {
		case bar.Low <= vt.pos.StopPrice:
			price, reason = vt.pos.StopPrice, "stop"
		case vt.pos.TargetPrice > 0 && bar.High >= vt.pos.TargetPrice:
			price, reason = vt.pos.TargetPrice, "target"
		}
	} else {
		switch {
		case bar.High >= vt.pos.StopPrice:
			price, reason = vt.pos.StopPrice, "stop"
		case vt.pos.TargetPrice > 0 && bar.Low <= vt.pos.TargetPrice:
			price, reason = vt.pos.TargetPrice, "target"
		}
	}
	if reason == "" {
		return nil
	}

	exit := &VirtualExit{Direction: dir, Entry: vt.pos.EntryPrice, Price: price, Index: index, Reason: reason}
	vt.ResetSession()
	vt.pos.LastExitBar = index

	log.Debug().
		Int("bar", index).
		Str("side", string(dir)).
		Str("reason", reason).
		Float64("price", price).
		Msg("Virtual exit")
	return exit
}

// SyncReal forces the virtual side to match a live position. While the
// live position is open the tracker neither trails nor exits on its own.
func (vt *VirtualTracker) SyncReal(pos types.PositionSnapshot, index int) {
	dir := pos.Direction()
	vt.live = dir
	if dir == types.None || vt.pos.State.Direction() == dir {
		return
	}

	entry, _ := pos.AveragePrice.Float64()
	vt.pos.State = types.StateFor(dir)
	vt.pos.EntryPrice = entry
	vt.pos.StopPrice = vt.StopFor(dir, entry)
	vt.pos.TargetPrice = 0
	vt.pos.EntryBar = index

	log.Info().
		Int("bar", index).
		Str("side", string(dir)).
		Float64("avg", entry).
		Msg("🔁 Virtual position synced to live position")
}
