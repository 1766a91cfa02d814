package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gitrdm/gokanplan/internal/config"
	"github.com/gitrdm/gokanplan/internal/logging"
	"github.com/gitrdm/gokanplan/internal/parallel"
	"github.com/gitrdm/gokanplan/internal/planstore"
	"github.com/gitrdm/gokanplan/internal/taskfile"
	"github.com/gitrdm/gokanplan/pkg/planner"
)

// outcome is the result of solving one task file.
type outcome struct {
	file  string
	name  string
	task  *planner.ExplicitTask
	plan  planner.Plan
	stats planner.Statistics
	err   error
}

func (o *outcome) status() string {
	switch {
	case o.err == nil:
		return planstore.StatusSolved
	case o.task == nil, errors.Is(o.err, planner.ErrInvalidTask),
		errors.Is(o.err, planner.ErrAxiomsUnsupported), errors.Is(o.err, planner.ErrConditionalEffects):
		return planstore.StatusError
	default:
		return planstore.StatusFailed
	}
}

// SolveCmd returns the solve command.
func SolveCmd() *cobra.Command {
	var (
		heuristic     string
		kind          string
		weight        int
		mode          string
		scheduling    string
		target        string
		preferred     string
		boost         int
		reevaluation  string
		costType      string
		frontToFront  bool
		noSymbolic    bool
		noReopen      bool
		pruneGoal     bool
		bound         int
		maxExpansions int
		maxSteps      int
		timeLimit     time.Duration
		workers       int
		store         bool
		showStats     bool
		showMetrics   bool
		quiet         bool
	)

	cmd := &cobra.Command{
		Use:   "solve <task-file>...",
		Short: "Solve one or more task files",
		Long: `Solve runs the bidirectional search on every task file and prints the
plans. Several files are solved concurrently (see --workers).

Examples:
  bidir solve gripper.yaml
  bidir solve --heuristic ff --kind astar tasks/*.yaml
  bidir solve --f2f --heuristic goalcount --stats blocks.toml
  bidir solve --mode regression --preferred ff --boost 1000 gripper.yaml
  bidir solve --store --metrics tasks/*.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			s := &cfg.Search
			if flags.Changed("heuristic") {
				s.Heuristic = heuristic
			}
			if flags.Changed("kind") {
				s.Kind = kind
			}
			if flags.Changed("weight") {
				s.Weight = weight
			}
			if flags.Changed("mode") {
				s.Mode = mode
			}
			if flags.Changed("scheduling") {
				s.Scheduling = scheduling
			}
			if flags.Changed("target") {
				s.FrontierTarget = target
			}
			if flags.Changed("preferred") {
				s.Preferred = preferred
			}
			if flags.Changed("boost") {
				s.Boost = boost
			}
			if flags.Changed("reevaluation") {
				s.Reevaluation = reevaluation
			}
			if flags.Changed("cost-type") {
				s.CostType = costType
			}
			if flags.Changed("f2f") {
				s.FrontToFront = frontToFront
			}
			if flags.Changed("no-symbolic") {
				s.SymbolicClosed = !noSymbolic
			}
			if flags.Changed("no-reopen") {
				s.ReopenClosed = !noReopen
			}
			if flags.Changed("prune-goal") {
				s.PruneGoal = pruneGoal
			}
			if flags.Changed("bound") {
				s.Bound = bound
			}
			if flags.Changed("max-expansions") {
				s.MaxExpansions = maxExpansions
			}
			if flags.Changed("max-steps") {
				s.MaxSteps = maxSteps
			}
			if flags.Changed("time-limit") {
				s.TimeLimit = timeLimit
			}
			if flags.Changed("workers") {
				cfg.Workers = workers
			}
			if flags.Changed("store") {
				cfg.Store.Enabled = store
			}
			if flags.Changed("metrics") {
				cfg.Metrics.Enabled = showMetrics
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := logging.New(cfg.Logging, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer logger.Sync()

			registry := prometheus.NewRegistry()
			var metrics *planner.Metrics
			if cfg.Metrics.Enabled {
				metrics = planner.NewMetrics(registry)
			}

			outcomes, err := solveFiles(cmd.Context(), args, cfg, logger, metrics)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, o := range outcomes {
				if o.err != nil {
					failed++
				}
				printOutcome(out, o, quiet, showStats)
			}

			if cfg.Store.Enabled {
				if err := archive(cmd.Context(), cfg, outcomes); err != nil {
					return err
				}
				fmt.Fprintf(out, "archived %s in %s\n", plural(len(outcomes), "run"), cfg.Store.Path)
			}
			if cfg.Metrics.Enabled {
				if err := writeMetrics(out, registry); err != nil {
					return err
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d tasks failed", failed, len(outcomes))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&heuristic, "heuristic", "hadd", "heuristic: goalcount, hmax, hadd or ff")
	f.StringVar(&kind, "kind", "greedy", "search kind: greedy, astar or wastar")
	f.IntVarP(&weight, "weight", "w", 1, "heuristic weight for wastar")
	f.StringVar(&mode, "mode", "bidirectional", "search mode: bidirectional, forward or regression")
	f.StringVar(&scheduling, "scheduling", "alternate", "direction scheduling: alternate or balance")
	f.StringVar(&target, "target", "end", "heuristic target: end, top, bgg or max-g")
	f.StringVar(&preferred, "preferred", "", "preferred-operator heuristic: hadd or ff (empty: off)")
	f.IntVar(&boost, "boost", 0, "priority boost of the preferred sublist on progress")
	f.StringVar(&reevaluation, "reevaluation", "never", "front-to-front reevaluation: never, not-parent or always")
	f.StringVar(&costType, "cost-type", "normal", "operator cost view: normal, one or plusone")
	f.BoolVar(&frontToFront, "f2f", false, "evaluate against the opposite frontier")
	f.BoolVar(&noSymbolic, "no-symbolic", false, "disable the BDD closed lists")
	f.BoolVar(&noReopen, "no-reopen", false, "do not reopen closed nodes")
	f.BoolVar(&pruneGoal, "prune-goal", false, "restrict the first backward expansion to goal achievers")
	f.IntVar(&bound, "bound", 0, "cost bound (0: none)")
	f.IntVar(&maxExpansions, "max-expansions", 0, "expansion limit (0: none)")
	f.IntVar(&maxSteps, "max-steps", 0, "expansion limit per direction (0: none)")
	f.DurationVar(&timeLimit, "time-limit", 0, "time limit per task (0: none)")
	f.IntVarP(&workers, "workers", "j", 1, "number of tasks solved concurrently")
	f.BoolVar(&store, "store", false, "archive runs in the database")
	f.BoolVar(&showStats, "stats", false, "print search statistics")
	f.BoolVar(&showMetrics, "metrics", false, "print Prometheus counters after solving")
	f.BoolVarP(&quiet, "quiet", "q", false, "print only the summary line per task")

	return cmd
}

func solveFiles(ctx context.Context, files []string, cfg *config.Config, logger *zap.Logger, metrics *planner.Metrics) ([]*outcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	searchOpts, err := cfg.SearchOptions()
	if err != nil {
		return nil, err
	}

	jobs := make([]parallel.Job[*outcome], len(files))
	for i, file := range files {
		jobs[i] = func(ctx context.Context) (*outcome, error) {
			return solveFile(ctx, file, searchOpts, logger, metrics), nil
		}
	}

	results := parallel.Run(ctx, cfg.Workers, jobs)
	outcomes := make([]*outcome, len(results))
	for i, r := range results {
		if r.Err != nil {
			outcomes[i] = &outcome{file: files[i], name: files[i], err: r.Err}
			continue
		}
		outcomes[i] = r.Value
	}
	return outcomes, nil
}

func solveFile(ctx context.Context, file string, searchOpts []planner.Option, logger *zap.Logger, metrics *planner.Metrics) *outcome {
	o := &outcome{file: file, name: file}

	task, doc, err := taskfile.Load(file)
	if err != nil {
		o.err = err
		return o
	}
	o.task, o.name = task, doc.Name

	opts := append([]planner.Option{}, searchOpts...)
	opts = append(opts, planner.WithLogger(logger.With(zap.String("task", doc.Name))))
	if metrics != nil {
		opts = append(opts, planner.WithMetrics(metrics))
	}

	search, err := planner.NewBidirectionalSearch(task, opts...)
	if err != nil {
		o.err = err
		return o
	}
	o.plan, o.err = search.Search(ctx)
	o.stats = search.Statistics()
	return o
}

func printOutcome(w io.Writer, o *outcome, quiet, showStats bool) {
	if o.err != nil {
		fmt.Fprintf(w, "%s %s %s: %v\n", failMark, o.name, colorStatus(false, o.status()), o.err)
	} else {
		fmt.Fprintf(w, "%s %s %s: %s, cost %d, meeting %s, %s\n",
			okMark, o.name, colorStatus(true, o.status()),
			plural(len(o.plan), "step"), o.plan.Cost(o.task), o.stats.Meeting,
			plural(o.stats.Expanded(), "expansion"))
		if !quiet {
			fmt.Fprint(w, o.plan.Format(o.task))
		}
	}
	if showStats && o.task != nil {
		fmt.Fprintln(w, o.stats.String())
	}
}

func archive(ctx context.Context, cfg *config.Config, outcomes []*outcome) error {
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := planstore.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	s := cfg.Search
	options := fmt.Sprintf("%s/%s w=%d mode=%s sched=%s target=%s f2f=%t symbolic=%t preferred=%s",
		s.Heuristic, s.Kind, s.Weight, s.Mode, s.Scheduling, s.FrontierTarget, s.FrontToFront, s.SymbolicClosed, s.Preferred)
	for _, o := range outcomes {
		run := &planstore.Run{
			TaskName:  o.name,
			TaskFile:  o.file,
			Status:    o.status(),
			Expanded:  o.stats.Expanded(),
			Generated: o.stats.Generated(),
			Duration:  o.stats.SearchTime,
			Options:   options,
		}
		if o.err != nil {
			run.Error = o.err.Error()
		} else {
			run.Meeting = o.stats.Meeting.String()
			run.Plan = o.plan.Names(o.task)
			run.PlanCost = o.plan.Cost(o.task)
		}
		if err := store.Save(ctx, run); err != nil {
			return err
		}
	}
	return nil
}
