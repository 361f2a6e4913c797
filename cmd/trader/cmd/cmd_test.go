package cmd

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/rustyeddy/atlas/config"
	"github.com/rustyeddy/atlas/engine"
	"github.com/rustyeddy/atlas/journal"
	"github.com/rustyeddy/atlas/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Broker.Token = "token"
	cfg.Broker.AccountID = "101-001-1-001"
	return cfg
}

func TestBuildGateway(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	gw, err := buildGateway(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, gw)

	cfg.Broker.Paper = true
	gw, err = buildGateway(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, gw)

	cfg.Broker.Token = ""
	_, err = buildGateway(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestSchedulerOptions(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	opts, err := schedulerOptions(cfg, nil, journal.Noop{}, zap.NewNop())
	require.NoError(t, err)

	assert.Len(t, opts.Symbols, 9)
	assert.Equal(t, 300*time.Second, opts.Interval)
	assert.Equal(t, "America/New_York", opts.Strategy.Location.String())
	assert.Equal(t, time.Hour, opts.Strategy.Cooldown)
	assert.Equal(t, 50, opts.Strategy.EMAPeriod)
	assert.Equal(t, 0.25, opts.Risk.ReserveFraction)
	assert.Equal(t, int64(1000), opts.Risk.MinUnits)
	assert.Equal(t, opts.Risk.StopATRMult, opts.Orders.StopATRMult)
	assert.Equal(t, 2.2, opts.Orders.TargetATRMult)

	cfg.Strategy.Timezone = "Nowhere/Special"
	_, err = schedulerOptions(cfg, nil, journal.Noop{}, zap.NewNop())
	assert.Error(t, err)
}

func TestApplyOverridesRevalidates(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Broker.PaperBalance = 0
	require.NoError(t, applyOverrides(cfg, false, ""))

	err := applyOverrides(cfg, true, ":9090")
	assert.ErrorContains(t, err, "paper_balance")
	assert.True(t, cfg.Broker.Paper)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)

	cfg.Broker.PaperBalance = 10000
	assert.NoError(t, applyOverrides(cfg, true, ""))
}

func TestPrintReport(t *testing.T) {
	t.Parallel()

	symbols := []market.Symbol{{Name: "EURUSD"}, {Name: "USDJPY"}, {Name: "GBPUSD"}}
	rep := engine.Report{Results: []engine.Result{
		{Symbol: "EURUSD", Outcome: engine.Entered},
		{Symbol: "USDJPY", Outcome: engine.Failed, Reason: engine.ReasonCancelled},
	}}

	var buf bytes.Buffer
	printReport(&buf, symbols, rep)
	out := buf.String()
	assert.Regexp(t, `USDJPY\s+failed\s+cancelled`, out)
	assert.Regexp(t, `GBPUSD\s+-\s+not reached`, out)
	assert.Contains(t, out, "entered 1, skipped 0, failed 1")
}

func TestDayBounds(t *testing.T) {
	t.Parallel()

	start, end, err := dayBounds(time.UTC, "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 24*time.Hour, end.Sub(start))

	_, _, err = dayBounds(time.UTC, "15/01/2024")
	assert.Error(t, err)
}

func TestWriteBrackets(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	writeBrackets(&buf, nil)
	assert.Equal(t, "no brackets\n", buf.String())

	buf.Reset()
	writeBrackets(&buf, []journal.BracketRecord{{
		ID: "01HMZ", Time: time.Now(), Symbol: "EURUSD", Tier: "high",
		Quantity: 57692, Entry: 1.1004, Stop: 1.0987, Target: 1.1022,
	}})
	out := buf.String()
	assert.Contains(t, out, "SYMBOL")
	assert.Contains(t, out, "EURUSD")
	assert.Contains(t, out, "57692")
	assert.Contains(t, out, "1.0987")
}

// Commands share package-level flag state, so these run serially.
func TestConfigInitValidate(t *testing.T) {
	t.Setenv("OANDA_TOKEN", "token")
	t.Setenv("OANDA_ACCOUNT_ID", "101-001-1-001")
	path := filepath.Join(t.TempDir(), "atlas.yaml")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config", "init", "-o", path})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), path)

	out.Reset()
	rootCmd.SetArgs([]string{"config", "validate", "-f", path})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Configuration valid")
	assert.Contains(t, out.String(), "Symbols: 9")
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), config.StrategyVersion)
}

func TestJournalDay(t *testing.T) {
	db := filepath.Join(t.TempDir(), "atlas.db")
	j, err := journal.NewSQLite(db)
	require.NoError(t, err)
	at := time.Date(2024, 1, 15, 12, 0, 0, 0, time.Local)
	require.NoError(t, j.RecordBracket(journal.BracketRecord{
		ID: "01HMZ", Time: at, Symbol: "EURUSD", Group: "OCA_EURUSD_1", Tier: "high", Quantity: 57692,
		Entry: 1.1004, Stop: 1.0987, Target: 1.1022,
	}))
	require.NoError(t, j.Close())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"journal", "day", "2024-01-15", "--db", db})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "01HMZ")

	out.Reset()
	rootCmd.SetArgs([]string{"journal", "bracket", "01HMZ", "--db", db})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "OCA_EURUSD_1")
}
