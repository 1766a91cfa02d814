// Package config loads the configuration of the bidir command.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gitrdm/gokanplan/internal/logging"
	"github.com/gitrdm/gokanplan/pkg/planner"
)

// Config is the root configuration.
type Config struct {
	Search  SearchConfig   `koanf:"search"`
	Logging logging.Config `koanf:"logging"`
	Store   StoreConfig    `koanf:"store"`
	Metrics MetricsConfig  `koanf:"metrics"`
	// Workers is the number of task files solved concurrently.
	Workers int `koanf:"workers"`
}

// SearchConfig mirrors the planner options.
type SearchConfig struct {
	Heuristic  string `koanf:"heuristic"`
	Kind       string `koanf:"kind"`
	Weight     int    `koanf:"weight"`
	Mode       string `koanf:"mode"`
	Scheduling string `koanf:"scheduling"`
	// FrontToFront is shorthand for frontier_target: top.
	FrontToFront   bool   `koanf:"front_to_front"`
	FrontierTarget string `koanf:"frontier_target"`
	BGGHeuristic   string `koanf:"bgg_heuristic"`
	Reevaluation   string `koanf:"reevaluation"`
	// Preferred names the preferred-operator heuristic; empty disables the
	// preferred sublists.
	Preferred      string        `koanf:"preferred"`
	Boost          int           `koanf:"boost"`
	SymbolicClosed bool          `koanf:"symbolic_closed"`
	ReopenClosed   bool          `koanf:"reopen_closed"`
	PruneGoal      bool          `koanf:"prune_goal"`
	Bound          int           `koanf:"bound"` // 0: unbounded
	CostType       string        `koanf:"cost_type"`
	MaxExpansions  int           `koanf:"max_expansions"`
	MaxSteps       int           `koanf:"max_steps"` // per direction, 0: unlimited
	TimeLimit      time.Duration `koanf:"time_limit"`
}

// StoreConfig configures the sqlite run archive.
type StoreConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// MetricsConfig toggles Prometheus counters.
type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

// Validate checks every section and joins the errors.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Search.Options(); err != nil {
		errs = append(errs, fmt.Errorf("search: %w", err))
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}
	if c.Store.Enabled && strings.TrimSpace(c.Store.Path) == "" {
		errs = append(errs, errors.New("store: path is required when the store is enabled"))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	return errors.Join(errs...)
}

// Options converts the search section into planner options.
func (s SearchConfig) Options() ([]planner.Option, error) {
	factory, err := planner.NamedOpenLists(s.Heuristic, s.Kind, s.Weight)
	if err != nil {
		return nil, err
	}

	mode, err := planner.ParseSearchMode(s.Mode)
	if err != nil {
		return nil, err
	}
	target, err := planner.ParseFrontierTarget(s.FrontierTarget)
	if err != nil {
		return nil, err
	}
	if s.FrontToFront {
		if target != planner.TargetEnd && target != planner.TargetTop {
			return nil, fmt.Errorf("front_to_front conflicts with frontier_target %q", s.FrontierTarget)
		}
		target = planner.TargetTop
	}

	var scheduling planner.Scheduling
	switch strings.ToLower(s.Scheduling) {
	case "alternate", "":
		scheduling = planner.Alternate
	case "balance":
		scheduling = planner.BalanceSteps
	default:
		return nil, fmt.Errorf("unknown scheduling %q", s.Scheduling)
	}

	var reeval planner.Reevaluation
	switch strings.ToLower(s.Reevaluation) {
	case "never", "":
		reeval = planner.ReevalNever
	case "not-parent", "not_parent":
		reeval = planner.ReevalNotParent
	case "always":
		reeval = planner.ReevalAlways
	default:
		return nil, fmt.Errorf("unknown reevaluation %q", s.Reevaluation)
	}

	var costType planner.CostType
	switch strings.ToLower(s.CostType) {
	case "normal", "":
		costType = planner.NormalCost
	case "one":
		costType = planner.OneCost
	case "plusone", "plus_one":
		costType = planner.PlusOneCost
	default:
		return nil, fmt.Errorf("unknown cost type %q", s.CostType)
	}

	if s.Bound < 0 {
		return nil, fmt.Errorf("bound must not be negative, got %d", s.Bound)
	}
	if s.MaxExpansions < 0 {
		return nil, fmt.Errorf("max_expansions must not be negative, got %d", s.MaxExpansions)
	}
	if s.MaxSteps < 0 {
		return nil, fmt.Errorf("max_steps must not be negative, got %d", s.MaxSteps)
	}
	switch strings.ToLower(s.Preferred) {
	case "", planner.HeuristicAdd, planner.HeuristicFF:
	default:
		return nil, fmt.Errorf("preferred heuristic %q does not compute preferred operators", s.Preferred)
	}
	switch strings.ToLower(s.BGGHeuristic) {
	case "", planner.HeuristicGoalCount, planner.HeuristicMax, planner.HeuristicAdd, planner.HeuristicFF:
	default:
		return nil, fmt.Errorf("unknown bgg heuristic %q", s.BGGHeuristic)
	}
	if s.Boost < 0 {
		return nil, fmt.Errorf("boost must not be negative, got %d", s.Boost)
	}

	opts := []planner.Option{
		planner.WithOpenListFactory(factory),
		planner.WithMode(mode),
		planner.WithScheduling(scheduling),
		planner.WithFrontierTarget(target),
		planner.WithReevaluation(reeval),
		planner.WithSymbolicClosed(s.SymbolicClosed),
		planner.WithReopenClosed(s.ReopenClosed),
		planner.WithPruneGoal(s.PruneGoal),
		planner.WithCostType(costType),
		planner.WithMaxExpansions(s.MaxExpansions),
		planner.WithMaxSteps(s.MaxSteps),
		planner.WithTimeLimit(s.TimeLimit),
	}
	if target == planner.TargetBGG && s.BGGHeuristic != "" {
		opts = append(opts, planner.WithBGGHeuristic(s.BGGHeuristic))
	}
	if s.Preferred != "" {
		opts = append(opts, planner.WithPreferredOperators(s.Preferred), planner.WithPreferredBoost(s.Boost))
	}
	if s.Bound > 0 {
		opts = append(opts, planner.WithBound(s.Bound))
	}
	return opts, nil
}

// SearchOptions returns the planner options of the search section.
func (c *Config) SearchOptions() ([]planner.Option, error) {
	return c.Search.Options()
}
