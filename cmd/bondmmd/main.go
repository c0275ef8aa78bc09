// Command bondmmd runs a single BondMM-A pool against an in-memory ledger
// and a configured anchor rate oracle. It is deliberately scoped down from a
// full transport-serving daemon: no gRPC surface is defined here, since the
// wire protocol used to drive PoolCore from outside this process is out of
// scope. What it does exercise is the config loader, structured logging,
// and metrics registration a production daemon in this style carries
// regardless of which transport eventually sits in front of PoolCore.
package main

import (
	"flag"
	"log"
	"math/big"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Schrodinger-Labs/BondMM-A/internal/addr"
	"github.com/Schrodinger-Labs/BondMM-A/internal/fixedpoint"
	"github.com/Schrodinger-Labs/BondMM-A/internal/oracle"
	"github.com/Schrodinger-Labs/BondMM-A/observability"
	"github.com/Schrodinger-Labs/BondMM-A/observability/logging"
	"github.com/Schrodinger-Labs/BondMM-A/pkg/config"

	"github.com/Schrodinger-Labs/BondMM-A/native/bondmm"
)

// toFloat64 converts a scaled Fixed into a float64 gauge reading. Prometheus
// gauges are float64 natively; the conversion loses precision far below what
// a dashboard needs, unlike Raw's exact big.Int, which routinely overflows
// int64 for reserve-sized values.
func toFloat64(f fixedpoint.Fixed) float64 {
	scaled := new(big.Float).SetInt(f.Raw())
	scaled.Quo(scaled, new(big.Float).SetInt(fixedpoint.Scale))
	v, _ := scaled.Float64()
	return v
}

// staticRateSource reports a fixed rate and is never stale. It stands in
// for a real feed until one is wired; SafeRate and CurrentRate behave
// identically against it.
type staticRateSource struct {
	rate fixedpoint.Fixed
}

func (s staticRateSource) GetRate() (fixedpoint.Fixed, error) { return s.rate, nil }
func (s staticRateSource) IsStale() (bool, error)             { return false, nil }

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "cmd/bondmmd/config.yaml", "path to bondmmd config")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("BONDMM_ENV"))
	logger := logging.Setup("bondmmd", env)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	params, err := cfg.Pool.Params()
	if err != nil {
		log.Fatalf("pool params: %v", err)
	}

	initialCash := fixedpoint.MustFromString(defaultString(cfg.Pool.InitialCash, "1000000"))
	initialBonds := fixedpoint.MustFromString(defaultString(cfg.Pool.InitialBonds, "1000000"))
	fallback := fixedpoint.MustFromString(defaultString(cfg.Oracle.FallbackRate, "0.08"))

	source := staticRateSource{rate: fixedpoint.MustFromString("0.05")}
	adapter, err := oracle.New(source, fallback)
	if err != nil {
		log.Fatalf("construct oracle: %v", err)
	}

	poolAddr := addr.MustNew(addr.CashPrefix, make([]byte, 20))
	ledger := bondmm.NewMemoryLedger(poolAddr)
	store := bondmm.NewPositionStore()
	metrics := observability.PoolMetrics()
	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.Collectors()...)

	engine := bondmm.NewEngine(poolAddr, ledger, adapter, store, bondmm.NoopSink{}, params)
	genesis := bondmm.CallContext{BlockHeight: 0, Timestamp: time.Now().Unix(), Caller: poolAddr}
	if err := engine.Initialize(genesis, initialCash, initialBonds); err != nil {
		log.Fatalf("initialize pool: %v", err)
	}
	metrics.SetReserves(toFloat64(engine.Cash()), toFloat64(engine.NetLiabilities()))
	logger.Info("pool constructed", "initial_cash", initialCash.String(), "initial_bonds", initialBonds.String())

	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	logger.Info("serving metrics", "addr", cfg.MetricsAddr)
	if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil {
		log.Fatalf("serve metrics: %v", err)
	}
}

func defaultString(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
