package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/browser"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/xid"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/llcsim/internal/hostinfo"
	"github.com/sarchlab/llcsim/internal/ledger"
	"github.com/sarchlab/llcsim/internal/profiling"
	"github.com/sarchlab/llcsim/policy"
	"github.com/sarchlab/llcsim/policy/config"
	"github.com/sarchlab/llcsim/policy/stats"
)

// replacementSet is the local seam onto the three concrete policies: every
// one of DBPV, DBPVDyn and DBASP exposes these two operations, plus the
// embedded Set's ID.
type replacementSet interface {
	GetReplacementIndex(cntlr policy.Controller, owner policy.Owner) (int, error)
	UpdateOnHit(way int) error
	ID() int
}

// simController is the synthetic driver's stand-in for the wider
// simulator's CacheCntlr/CacheBlockInfo: it tracks which ways currently
// hold a block and what address resides there, entirely in memory.
type simController struct {
	valid   []bool
	address []uint64
}

func newSimController(numWays int) *simController {
	return &simController{valid: make([]bool, numWays), address: make([]uint64, numWays)}
}

func (c *simController) IsValid(way int) bool { return c.valid[way] }

func (c *simController) findHit(addr uint64) (int, bool) {
	for i, v := range c.valid {
		if v && c.address[i] == addr {
			return i, true
		}
	}
	return -1, false
}

func (c *simController) install(way int, addr uint64) {
	c.valid[way] = true
	c.address[way] = addr
}

func newRunCmd() *cobra.Command {
	var (
		policyName   string
		cfgname      string
		numWays      int
		numSets      int
		numAccesses  int
		rrpvBits     int
		dbpvCase     int
		saturation   int
		dbThreshold  int
		seed         int64
		localityBias float64
		ledgerPath   string
		profilePath  string
		metricsAddr  string
		openMetrics  bool
		cyclesPerOp  int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive a synthetic two-application access stream through one replacement policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(envFile); err != nil {
				return err
			}

			runID := xid.New().String()
			startedAt := time.Now()
			rlog := log.With("run_id", runID, "policy", policyName)
			rlog.Infow("starting run", "ways", numWays, "sets", numSets, "accesses", numAccesses)

			hostinfo.Collect(rlog).Log(rlog)

			registry := prometheus.NewRegistry()
			sink := stats.NewPromSink(registry)

			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
				srv := &http.Server{Addr: metricsAddr, Handler: mux}
				go func() {
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						rlog.Warnw("metrics server exited", "error", err)
					}
				}()
				atexit.Register(func() { _ = srv.Close() })
				rlog.Infow("serving metrics", "addr", metricsAddr)
				if openMetrics {
					_ = openBrowser("http://" + metricsAddr + "/metrics")
				}
			}

			var cycles uint64
			opts := []policy.ContextOption{policy.WithCycleCount(func() uint64 { return cycles })}
			if policyName == "dbpvdyn" {
				opts = append(opts, policy.WithPhaseParams(uint32(saturation), uint32(dbThreshold)))
			}
			ctx := policy.NewContext(numWays, uint8(rrpvBits), sink, rlog, opts...)

			var reader config.Reader
			if envFile != "" {
				reader = config.Env{}
			} else {
				reader = config.Static{
					cfgname + "/srrip/bits":         {0: rrpvBits, 1: rrpvBits},
					cfgname + "/srrip/case":         {0: dbpvCase, 1: dbpvCase},
					cfgname + "/srrip/max_value":    {0: saturation, 1: saturation},
					cfgname + "/srrip/db_threshold": {0: dbThreshold, 1: dbThreshold},
				}
			}

			sets := make([]replacementSet, numSets)
			ctls := make([]*simController, numSets)
			for i := 0; i < numSets; i++ {
				s, err := newPolicySet(policyName, ctx, cfgname, numWays, reader)
				if err != nil {
					return fmt.Errorf("set %d: %w", i, err)
				}
				sets[i] = s
				ctls[i] = newSimController(numWays)
			}

			sampler := profiling.NewEvictionSampler(runID)
			rng := rand.New(rand.NewSource(seed))

			for i := 0; i < numAccesses; i++ {
				cycles += uint64(cyclesPerOp)
				setIdx := rng.Intn(numSets)
				owner := policy.Owner0
				if rng.Intn(2) == 1 {
					owner = policy.Owner1
				}

				ctl := ctls[setIdx]
				addr := syntheticAddress(rng, localityBias, numWays)

				if way, ok := ctl.findHit(addr); ok {
					if err := sets[setIdx].UpdateOnHit(way); err != nil {
						return fmt.Errorf("update_on_hit: %w", err)
					}
					continue
				}

				way, err := sets[setIdx].GetReplacementIndex(ctl, owner)
				if err != nil {
					return fmt.Errorf("get_replacement_index: %w", err)
				}
				sampler.RecordEviction(sets[setIdx].ID(), int(owner))
				ctl.install(way, addr)
			}

			rlog.Infow("run complete", "ways0", ctx.WaysQuota(policy.Owner0), "ways1", ctx.WaysQuota(policy.Owner1))

			if ledgerPath != "" {
				ldg, err := ledger.Open(ledgerPath)
				if err != nil {
					return err
				}

				snapshot := ctx.Snapshot()
				snapshotJSON, err := json.Marshal(snapshot)
				if err != nil {
					_ = ldg.Close()
					return fmt.Errorf("marshaling snapshot: %w", err)
				}

				if err := ldg.RecordRun(ledger.Run{
					RunID:        runID,
					StartedAt:    startedAt,
					Policy:       policyName,
					Cfgname:      cfgname,
					ConfigJSON:   fmt.Sprintf(`{"ways":%d,"sets":%d,"accesses":%d}`, numWays, numSets, numAccesses),
					WaysQuota:    snapshot.WaysQuota,
					TotalDead:    [2]uint64{ctx.TotalDead(policy.Owner0), ctx.TotalDead(policy.Owner1)},
					TotalHit:     [2]uint64{ctx.TotalHit(policy.Owner0), ctx.TotalHit(policy.Owner1)},
					SnapshotJSON: string(snapshotJSON),
					StateHash:    snapshot.Hash,
				}); err != nil {
					_ = ldg.Close()
					return err
				}
				if err := ldg.Close(); err != nil {
					return err
				}
			}

			if profilePath != "" {
				if err := sampler.WriteFile(profilePath); err != nil {
					return err
				}
			}

			if metricsAddr != "" {
				rlog.Infow("run finished, metrics stay up until interrupted", "addr", metricsAddr)
				interrupt := make(chan os.Signal, 1)
				signal.Notify(interrupt, os.Interrupt)
				<-interrupt
				atexit.Exit(0)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&policyName, "policy", "dbasp", "replacement policy: dbpv, dbpvdyn, dbasp")
	cmd.Flags().StringVar(&cfgname, "cfgname", "l3", "config key prefix, e.g. l3 for l3/srrip/bits")
	cmd.Flags().IntVar(&numWays, "ways", 16, "set associativity")
	cmd.Flags().IntVar(&numSets, "sets", 64, "number of simulated sets")
	cmd.Flags().IntVar(&numAccesses, "accesses", 1_000_000, "number of synthetic accesses to replay")
	cmd.Flags().IntVar(&rrpvBits, "rrpv-bits", 2, "RRPV width in bits")
	cmd.Flags().IntVar(&dbpvCase, "case", 3, "DBPV insertion-position case, 1..12")
	cmd.Flags().IntVar(&saturation, "max-value", 8192, "DBPV_DYN phase length (saturation_max)")
	cmd.Flags().IntVar(&dbThreshold, "db-threshold", 9000, "DBPV_DYN dead-block threshold, fixed-point percent x100")
	cmd.Flags().Int64Var(&seed, "seed", 1, "synthetic workload RNG seed")
	cmd.Flags().IntVar(&cyclesPerOp, "cycles-per-access", 100, "simulated cycles charged per access, advances UCP's repartitioning clock")
	cmd.Flags().Float64Var(&localityBias, "locality", 0.8, "probability a generated address reuses a recently seen one")
	cmd.Flags().StringVar(&ledgerPath, "ledger", "", "SQLite file to record this run's summary into")
	cmd.Flags().StringVar(&profilePath, "profile", "", "pprof file to write eviction samples to")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "if set, serve /metrics on this address while running")
	cmd.Flags().BoolVar(&openMetrics, "open", false, "open the metrics URL in a browser once serving starts")

	return cmd
}

func newPolicySet(policyName string, ctx *policy.Context, cfgname string, numWays int, reader config.Reader) (replacementSet, error) {
	switch policyName {
	case "dbpv":
		return policy.NewDBPV(ctx, cfgname, 0, numWays, reader)
	case "dbpvdyn":
		return policy.NewDBPVDyn(ctx, cfgname, 0, numWays, reader)
	case "dbasp":
		return policy.NewDBASP(ctx, cfgname, 0, numWays, reader)
	default:
		return nil, fmt.Errorf("unknown policy %q: want dbpv, dbpvdyn or dbasp", policyName)
	}
}

// syntheticAddress generates an access stream with a tunable reuse bias: with
// probability localityBias it replays one of a small recent working set,
// otherwise it strikes a fresh address, so both hits and cold misses occur.
func syntheticAddress(rng *rand.Rand, localityBias float64, numWays int) uint64 {
	workingSet := uint64(numWays * 2)
	if rng.Float64() < localityBias {
		return uint64(rng.Intn(int(workingSet)))
	}
	return workingSet + uint64(rng.Int63())
}

func openBrowser(url string) error {
	if os.Getenv("LLCSIM_NO_BROWSER") != "" {
		return nil
	}
	return browser.OpenURL(url)
}
