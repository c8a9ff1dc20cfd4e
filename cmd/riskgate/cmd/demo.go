package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	brokersim "github.com/KaidenAngle/TomKingTrading-sub001/broker/sim"
	"github.com/KaidenAngle/TomKingTrading-sub001/config"
	"github.com/KaidenAngle/TomKingTrading-sub001/journal"
	"github.com/KaidenAngle/TomKingTrading-sub001/logging"
	"github.com/KaidenAngle/TomKingTrading-sub001/risk"
	"github.com/KaidenAngle/TomKingTrading-sub001/risk/breaker"
	"github.com/KaidenAngle/TomKingTrading-sub001/risk/concentration"
	"github.com/KaidenAngle/TomKingTrading-sub001/risk/correlation"
	"github.com/KaidenAngle/TomKingTrading-sub001/sim"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a scripted trading session through the risk engine",
	Long: `Demo wires up the full engine (circuit breaker, correlation admission,
concentration tracking) against a simulated broker, runs a scripted session
through it, and prints every admission decision, the emitted risk events,
and the final metrics snapshot.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runDemo(cmd.Context(), cfg)
	},
}

func runDemo(ctx context.Context, cfg *config.Config) error {
	if err := logging.Init(cfg.Logging); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	start := time.Now().UTC().Truncate(time.Minute)
	bus := risk.NewEventBus()
	provider := brokersim.NewProvider(cfg.Account.Balance)

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	if j != nil {
		defer j.Close()
		bus.SubscribeFunc(func(e risk.Event) {
			if err := j.RecordEvent(e); err != nil {
				logging.NewComponentLogger("demo").Warnf("journal event: %v", err)
			}
		})
	}
	bus.SubscribeFunc(func(e risk.Event) {
		fmt.Printf("EVENT [%s] %s: %s\n", e.Level, e.Type, e.Message)
	})

	coord := risk.NewCoordinator(bus)
	coord.Register(breaker.New(cfg.BreakerSettings(), cfg.Account.Balance, start, bus))
	coord.Register(correlation.New(cfg.CorrelationSettings(), provider, bus))
	coord.Register(concentration.New(cfg.Families(), provider, bus))

	session := sim.NewSession(coord, provider, j, start)
	results, err := session.Run(ctx, demoScript(cfg.Account.Balance))
	if err != nil {
		return err
	}

	for _, r := range results {
		switch r.Kind {
		case "propose":
			fmt.Printf("%2d %-8s %-10s %-5s -> %s\n", r.Step, r.Kind, r.Strategy, r.Symbol, r.Decision)
		case "market", "close":
			fmt.Printf("%2d %-8s %s\n", r.Step, r.Kind, r.Symbol)
		case "periodic":
			fmt.Printf("%2d %-8s %d events\n", r.Step, r.Kind, len(r.Events))
		}
	}

	snap := coord.Metrics()
	out, err := json.MarshalIndent(snap.Plugins, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println("\nFinal risk metrics:")
	fmt.Println(string(out))
	return nil
}

func openJournal(jc config.JournalConfig) (journal.Journal, error) {
	switch jc.Type {
	case "csv":
		return journal.NewCSV(jc.EventsFile, jc.DecisionsFile)
	case "sqlite":
		return journal.NewSQLite(jc.DBPath)
	default:
		return nil, nil
	}
}

// demoScript is a session that exercises the interesting paths: group
// limits filling up, a VIX spike tightening them, and a drawdown tripping
// the circuit breaker.
func demoScript(balance float64) []sim.Step {
	return []sim.Step{
		{Market: &sim.MarketStep{Symbol: "VIX", Price: 14, VIX: 14, PortfolioValue: balance}},
		{Propose: &sim.ProposeStep{Strategy: "strangle-es", Symbol: "ES", PositionType: "strangle", Delta: 12, Contracts: 2, Notional: 9000}},
		{Propose: &sim.ProposeStep{Strategy: "futures-nq", Symbol: "NQ", PositionType: "futures", Delta: 10, Contracts: 1, Notional: 8000}},
		{Propose: &sim.ProposeStep{Strategy: "etf-spy", Symbol: "SPY", PositionType: "long_call", Delta: 20, Contracts: 4, Notional: 6000}},
		// Fourth equity-like position: denied by the combined cap.
		{Propose: &sim.ProposeStep{Strategy: "etf-qqq", Symbol: "QQQ", PositionType: "long_call", Delta: 15, Contracts: 3, Notional: 5000}},
		// Unknown symbol: fail-closed.
		{Propose: &sim.ProposeStep{Strategy: "exotic", Symbol: "XYZ", PositionType: "futures", Delta: 5, Contracts: 1, Notional: 4000}},
		// VIX spike into the high regime.
		{Advance: time.Hour, Market: &sim.MarketStep{Symbol: "VIX", Price: 27, VIX: 27, PortfolioValue: balance * 0.99}},
		{Propose: &sim.ProposeStep{Strategy: "strangle-gc", Symbol: "GC", PositionType: "strangle", Delta: -4, Contracts: 1, Notional: 7000}},
		// Drawdown beyond the daily limit trips the breaker.
		{Advance: time.Hour, Market: &sim.MarketStep{Symbol: "VIX", Price: 32, VIX: 32, PortfolioValue: balance * 0.94}},
		{Propose: &sim.ProposeStep{Strategy: "dip-buyer", Symbol: "IWM", PositionType: "long_call", Delta: 8, Contracts: 2, Notional: 3000}},
		{Close: &sim.CloseStep{Strategy: "strangle-es", Symbol: "ES", RealizedPnL: -1200}},
		{Periodic: true},
	}
}

func init() {
	rootCmd.AddCommand(demoCmd)
}
