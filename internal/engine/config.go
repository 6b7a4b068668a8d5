package engine

import (
	"tsbacktest/types"
)

type RunConfig struct {
	horizon     int
	nFolds      int
	policy      types.Policy
	parallelism int
	progress    bool
}

func NewRunConfig(horizon, nFolds int, policy types.Policy, parallelism int, progress bool) *RunConfig {
	if parallelism < 1 {
		parallelism = 1
	}
	return &RunConfig{
		horizon:     horizon,
		nFolds:      nFolds,
		policy:      policy,
		parallelism: parallelism,
		progress:    progress,
	}
}
