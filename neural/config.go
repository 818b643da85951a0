package neural

import (
	"github.com/yaricom/goNEAT/v4/neat"

	"github.com/pthm-cable/invaders/config"
)

// ActionOutputs is the number of brain outputs: right, left, shoot.
const ActionOutputs = 3

// DefaultNEATOptions returns NEAT options tuned for small controller networks.
func DefaultNEATOptions() *neat.Options {
	return &neat.Options{
		// Weight mutation
		WeightMutPower: 0.5,

		// Structural mutation rates
		MutateAddNodeProb:      0.03,
		MutateAddLinkProb:      0.08,
		MutateToggleEnableProb: 0.01,

		// Weight mutation probability
		MutateLinkWeightsProb: 0.8,
		MutateOnlyProb:        0.25,

		// Speciation
		CompatThreshold: 3.0,
		DisjointCoeff:   1.0,
		ExcessCoeff:     1.0,
		MutdiffCoeff:    0.5,

		// Species management
		DropOffAge:     15,
		SurvivalThresh: 0.2,

		PopSize: 50,
	}
}

// NEATOptions builds goNEAT options from the loaded configuration.
func NEATOptions(cfg *config.Config) *neat.Options {
	opts := DefaultNEATOptions()
	n := cfg.Neural

	opts.CompatThreshold = n.CompatThreshold
	opts.DisjointCoeff = n.DisjointCoeff
	opts.ExcessCoeff = n.ExcessCoeff
	opts.MutdiffCoeff = n.MutdiffCoeff
	opts.WeightMutPower = n.WeightMutPower
	opts.MutateLinkWeightsProb = n.MutateLinkWeightsProb
	opts.MutateAddNodeProb = n.MutateAddNodeProb
	opts.MutateAddLinkProb = n.MutateAddLinkProb
	opts.MutateToggleEnableProb = n.MutateToggleEnableProb
	opts.MutateOnlyProb = n.MutateOnlyProb

	opts.PopSize = cfg.Training.PopulationSize
	opts.SurvivalThresh = cfg.Training.SurvivalThreshold
	if cfg.Training.StagnationLimit > 0 {
		opts.DropOffAge = cfg.Training.StagnationLimit
	}
	return opts
}
