// Package config loads the refinement engine's run options via viper,
// following the same SetDefault-then-populate-a-struct convention the
// logger package uses.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/lintang-b-s/kwayrefine/pkg/refinement"
)

type StopRuleKind string

const (
	StopRuleSimple            StopRuleKind = "simple"
	StopRuleAdaptive          StopRuleKind = "adaptive"
	StopRuleChernoffAdaptive  StopRuleKind = "chernoff_adaptive"
)

type PermutationKind string

const (
	PermutationFast PermutationKind = "fast"
	PermutationGood PermutationKind = "good"
)

type SchedulingAlgorithm string

const (
	SchedulingFast               SchedulingAlgorithm = "fast"
	SchedulingActiveBlocks       SchedulingAlgorithm = "active_blocks"
	SchedulingActiveBlocksRefKway SchedulingAlgorithm = "active_blocks_ref_kway"
)

type RefinementType string

const (
	RefinementFM     RefinementType = "fm"
	RefinementFlow   RefinementType = "flow"
	RefinementFMFlow RefinementType = "fm_flow"
)

// Options is the full recognized configuration surface for the refinement
// engine.
type Options struct {
	K                  int
	UpperBoundPartition int64
	Imbalance          float64

	NumThreads int
	MainCore   int

	MaxNumberOfMoves int

	KwayStopRule              StopRuleKind
	KwayAdaptiveLimitsAlpha   float64
	ChernoffStopProbability   float64
	ChernoffGDNumSteps        int
	ChernoffGDStepSize        float64
	ChernoffMinStepLimit      int
	ChernoffMaxStepLimit      int

	ApplyMoveStrategy refinement.ApplyMoveStrategy
	UseBucketQueues   bool

	PermutationDuringRefinement PermutationKind
	RefinementSchedulingAlgorithm SchedulingAlgorithm
	RefinementType                RefinementType
	QuotientGraphTwoWayRefinement bool
	KwayAllBoundaryNodesRefinement bool

	BankAccountFactor float64

	MatchingType            string
	FastContractClustering  bool

	GlobalMultitryRounds  int
	LocalMultitryFMAlpha  float64
	StepLimit             int

	CompareWithSequential bool

	DebugAssertions bool
}

// Default returns the documented defaults before any viper overrides.
func Default() *Options {
	return &Options{
		K:                   2,
		UpperBoundPartition: 1 << 62,
		Imbalance:           0.03,
		NumThreads:          1,
		MainCore:            0,
		MaxNumberOfMoves:    -1,
		KwayStopRule:        StopRuleSimple,
		KwayAdaptiveLimitsAlpha: 10,
		ChernoffStopProbability: 0.1,
		ChernoffGDNumSteps:      20,
		ChernoffGDStepSize:      0.01,
		ChernoffMinStepLimit:    5,
		ChernoffMaxStepLimit:    1000,
		ApplyMoveStrategy:       refinement.StrategyLocalSearch,
		UseBucketQueues:         false,
		PermutationDuringRefinement: PermutationFast,
		RefinementSchedulingAlgorithm: SchedulingFast,
		RefinementType:                RefinementFM,
		QuotientGraphTwoWayRefinement: true,
		KwayAllBoundaryNodesRefinement: false,
		BankAccountFactor:              1.0,
		MatchingType:                   "fast_contract",
		FastContractClustering:         false,
		GlobalMultitryRounds:           1,
		LocalMultitryFMAlpha:           1.0,
		StepLimit:                      100,
		CompareWithSequential:          false,
		DebugAssertions:                false,
	}
}

// Load reads overrides from a config file at path (if non-empty) and the
// environment (prefix KWR_), falling back to Default()'s values.
func Load(path string) (*Options, error) {
	v := viper.New()
	d := Default()

	v.SetDefault("k", d.K)
	v.SetDefault("upper_bound_partition", d.UpperBoundPartition)
	v.SetDefault("imbalance", d.Imbalance)
	v.SetDefault("num_threads", d.NumThreads)
	v.SetDefault("main_core", d.MainCore)
	v.SetDefault("max_number_of_moves", d.MaxNumberOfMoves)
	v.SetDefault("kway_stop_rule", string(d.KwayStopRule))
	v.SetDefault("kway_adaptive_limits_alpha", d.KwayAdaptiveLimitsAlpha)
	v.SetDefault("chernoff_stop_probability", d.ChernoffStopProbability)
	v.SetDefault("chernoff_gradient_descent_num_steps", d.ChernoffGDNumSteps)
	v.SetDefault("chernoff_gradient_descent_step_size", d.ChernoffGDStepSize)
	v.SetDefault("chernoff_min_step_limit", d.ChernoffMinStepLimit)
	v.SetDefault("chernoff_max_step_limit", d.ChernoffMaxStepLimit)
	v.SetDefault("apply_move_strategy", "local_search")
	v.SetDefault("use_bucket_queues", d.UseBucketQueues)
	v.SetDefault("permutation_during_refinement", string(d.PermutationDuringRefinement))
	v.SetDefault("refinement_scheduling_algorithm", string(d.RefinementSchedulingAlgorithm))
	v.SetDefault("refinement_type", string(d.RefinementType))
	v.SetDefault("quotient_graph_two_way_refinement", d.QuotientGraphTwoWayRefinement)
	v.SetDefault("kway_all_boundary_nodes_refinement", d.KwayAllBoundaryNodesRefinement)
	v.SetDefault("bank_account_factor", d.BankAccountFactor)
	v.SetDefault("matching_type", d.MatchingType)
	v.SetDefault("fast_contract_clustering", d.FastContractClustering)
	v.SetDefault("global_multitry_rounds", d.GlobalMultitryRounds)
	v.SetDefault("local_multitry_fm_alpha", d.LocalMultitryFMAlpha)
	v.SetDefault("step_limit", d.StepLimit)
	v.SetDefault("compare_with_sequential", d.CompareWithSequential)
	v.SetDefault("debug_assertions", d.DebugAssertions)

	v.SetEnvPrefix("KWR")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	opts := &Options{
		K:                   v.GetInt("k"),
		UpperBoundPartition: v.GetInt64("upper_bound_partition"),
		Imbalance:           v.GetFloat64("imbalance"),
		NumThreads:          v.GetInt("num_threads"),
		MainCore:            v.GetInt("main_core"),
		MaxNumberOfMoves:    v.GetInt("max_number_of_moves"),
		KwayStopRule:        StopRuleKind(v.GetString("kway_stop_rule")),
		KwayAdaptiveLimitsAlpha: v.GetFloat64("kway_adaptive_limits_alpha"),
		ChernoffStopProbability: v.GetFloat64("chernoff_stop_probability"),
		ChernoffGDNumSteps:      v.GetInt("chernoff_gradient_descent_num_steps"),
		ChernoffGDStepSize:      v.GetFloat64("chernoff_gradient_descent_step_size"),
		ChernoffMinStepLimit:    v.GetInt("chernoff_min_step_limit"),
		ChernoffMaxStepLimit:    v.GetInt("chernoff_max_step_limit"),
		ApplyMoveStrategy:       parseApplyMoveStrategy(v.GetString("apply_move_strategy")),
		UseBucketQueues:         v.GetBool("use_bucket_queues"),
		PermutationDuringRefinement: PermutationKind(v.GetString("permutation_during_refinement")),
		RefinementSchedulingAlgorithm: SchedulingAlgorithm(v.GetString("refinement_scheduling_algorithm")),
		RefinementType:                RefinementType(v.GetString("refinement_type")),
		QuotientGraphTwoWayRefinement: v.GetBool("quotient_graph_two_way_refinement"),
		KwayAllBoundaryNodesRefinement: v.GetBool("kway_all_boundary_nodes_refinement"),
		BankAccountFactor:              v.GetFloat64("bank_account_factor"),
		MatchingType:                   v.GetString("matching_type"),
		FastContractClustering:         v.GetBool("fast_contract_clustering"),
		GlobalMultitryRounds:           v.GetInt("global_multitry_rounds"),
		LocalMultitryFMAlpha:           v.GetFloat64("local_multitry_fm_alpha"),
		StepLimit:                      v.GetInt("step_limit"),
		CompareWithSequential:          v.GetBool("compare_with_sequential"),
		DebugAssertions:                v.GetBool("debug_assertions"),
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func parseApplyMoveStrategy(s string) refinement.ApplyMoveStrategy {
	switch s {
	case "gain_recalculation":
		return refinement.StrategyGainRecalculation
	case "reactive_vertices":
		return refinement.StrategyReactiveVertices
	case "skip":
		return refinement.StrategySkip
	default:
		return refinement.StrategyLocalSearch
	}
}

// Validate rejects out-of-range configuration at startup.
func (o *Options) Validate() error {
	if o.K < 2 {
		return fmt.Errorf("config: k must be >= 2, got %d", o.K)
	}
	if o.UpperBoundPartition <= 0 {
		return fmt.Errorf("config: upper_bound_partition must be positive, got %d", o.UpperBoundPartition)
	}
	if o.Imbalance < 0 || o.Imbalance > 1 {
		return fmt.Errorf("config: imbalance must be in [0,1], got %f", o.Imbalance)
	}
	if o.NumThreads < 1 {
		return fmt.Errorf("config: num_threads must be >= 1, got %d", o.NumThreads)
	}
	switch o.KwayStopRule {
	case StopRuleSimple, StopRuleAdaptive, StopRuleChernoffAdaptive:
	default:
		return fmt.Errorf("config: unknown kway_stop_rule %q", o.KwayStopRule)
	}
	switch o.RefinementType {
	case RefinementFM, RefinementFlow, RefinementFMFlow:
	default:
		return fmt.Errorf("config: unknown refinement_type %q", o.RefinementType)
	}
	switch o.RefinementSchedulingAlgorithm {
	case SchedulingFast, SchedulingActiveBlocks, SchedulingActiveBlocksRefKway:
	default:
		return fmt.Errorf("config: unknown refinement_scheduling_algorithm %q", o.RefinementSchedulingAlgorithm)
	}
	if o.ChernoffMinStepLimit > o.ChernoffMaxStepLimit {
		return fmt.Errorf("config: chernoff_min_step_limit (%d) > chernoff_max_step_limit (%d)", o.ChernoffMinStepLimit, o.ChernoffMaxStepLimit)
	}
	if o.BankAccountFactor <= 0 {
		return fmt.Errorf("config: bank_account_factor must be positive, got %f", o.BankAccountFactor)
	}
	return nil
}
