package engine

import (
	"fmt"

	"tsbacktest/types"
)

// FoldSpec is one train/test split, expressed as inclusive indices into the
// time axis. The test window always has exactly horizon points and starts
// right after the train window. FoldNumber is a dense 0-based sequence
// ordered by increasing test-window start.
type FoldSpec struct {
	FoldNumber int
	TrainStart int
	TrainEnd   int
	TestStart  int
	TestEnd    int
}

// PlanFolds partitions an axis of axisLen points into nFolds train/test
// windows. Under the expanding policy every train window starts at index 0;
// under the constant policy the train start slides forward by one horizon per
// fold, keeping the train length fixed.
func PlanFolds(axisLen, nFolds, horizon int, policy types.Policy) ([]FoldSpec, error) {
	if nFolds < 1 {
		return nil, fmt.Errorf("%w: %d given", ErrInvalidFoldCount, nFolds)
	}
	if horizon < 1 {
		return nil, fmt.Errorf("%w: %d given", ErrInvalidHorizon, horizon)
	}
	if policy != types.PolicyExpanding && policy != types.PolicyConstant {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
	}

	specs := make([]FoldSpec, 0, nFolds)
	for offset := nFolds; offset >= 1; offset-- {
		maxTrain := axisLen - 1 - horizon*offset
		minTrain := 0
		if policy == types.PolicyConstant {
			minTrain = (nFolds - offset) * horizon
		}
		if minTrain > maxTrain {
			return nil, fmt.Errorf("%w: axis of %d points cannot hold %d folds of horizon %d",
				ErrInsufficientHistory, axisLen, nFolds, horizon)
		}
		specs = append(specs, FoldSpec{
			FoldNumber: nFolds - offset,
			TrainStart: minTrain,
			TrainEnd:   maxTrain,
			TestStart:  maxTrain + 1,
			TestEnd:    maxTrain + horizon,
		})
	}
	return specs, nil
}
