package engine

import (
	"errors"
	"reflect"
	"testing"

	"tsbacktest/types"
)

func TestPlanFolds_ConcreteScenarios(t *testing.T) {
	tests := []struct {
		name    string
		axisLen int
		nFolds  int
		horizon int
		policy  types.Policy
		want    []FoldSpec
	}{
		{
			name:    "10 points, 3 folds, horizon 2, expanding",
			axisLen: 10, nFolds: 3, horizon: 2, policy: types.PolicyExpanding,
			want: []FoldSpec{
				{FoldNumber: 0, TrainStart: 0, TrainEnd: 3, TestStart: 4, TestEnd: 5},
				{FoldNumber: 1, TrainStart: 0, TrainEnd: 5, TestStart: 6, TestEnd: 7},
				{FoldNumber: 2, TrainStart: 0, TrainEnd: 7, TestStart: 8, TestEnd: 9},
			},
		},
		{
			name:    "10 points, 3 folds, horizon 2, constant",
			axisLen: 10, nFolds: 3, horizon: 2, policy: types.PolicyConstant,
			want: []FoldSpec{
				{FoldNumber: 0, TrainStart: 0, TrainEnd: 3, TestStart: 4, TestEnd: 5},
				{FoldNumber: 1, TrainStart: 2, TrainEnd: 5, TestStart: 6, TestEnd: 7},
				{FoldNumber: 2, TrainStart: 4, TrainEnd: 7, TestStart: 8, TestEnd: 9},
			},
		},
		{
			name:    "single fold takes the whole tail",
			axisLen: 8, nFolds: 1, horizon: 3, policy: types.PolicyExpanding,
			want: []FoldSpec{
				{FoldNumber: 0, TrainStart: 0, TrainEnd: 4, TestStart: 5, TestEnd: 7},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PlanFolds(tt.axisLen, tt.nFolds, tt.horizon, tt.policy)
			if err != nil {
				t.Fatalf("PlanFolds() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("PlanFolds() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlanFolds_Properties(t *testing.T) {
	type combo struct {
		axisLen, nFolds, horizon int
	}
	combos := []combo{
		{10, 3, 2},
		{25, 4, 3},
		{11, 1, 5},
		{100, 5, 7},
		{9, 4, 2},
	}
	for _, policy := range []types.Policy{types.PolicyExpanding, types.PolicyConstant} {
		for _, c := range combos {
			specs, err := PlanFolds(c.axisLen, c.nFolds, c.horizon, policy)
			if err != nil {
				t.Fatalf("PlanFolds(%d,%d,%d,%s) error = %v", c.axisLen, c.nFolds, c.horizon, policy, err)
			}
			if len(specs) != c.nFolds {
				t.Fatalf("%s %v: got %d folds, want %d", policy, c, len(specs), c.nFolds)
			}
			if specs[len(specs)-1].TestEnd != c.axisLen-1 {
				t.Errorf("%s %v: last test window ends at %d, want %d", policy, c, specs[len(specs)-1].TestEnd, c.axisLen-1)
			}
			for i, spec := range specs {
				if spec.FoldNumber != i {
					t.Errorf("%s %v: fold %d numbered %d", policy, c, i, spec.FoldNumber)
				}
				if spec.TestEnd-spec.TestStart+1 != c.horizon {
					t.Errorf("%s %v fold %d: test window has %d points, want %d",
						policy, c, i, spec.TestEnd-spec.TestStart+1, c.horizon)
				}
				if spec.TestStart != spec.TrainEnd+1 {
					t.Errorf("%s %v fold %d: gap between train end %d and test start %d",
						policy, c, i, spec.TrainEnd, spec.TestStart)
				}
				if spec.TrainStart > spec.TrainEnd {
					t.Errorf("%s %v fold %d: empty train window [%d,%d]", policy, c, i, spec.TrainStart, spec.TrainEnd)
				}
				// Train data must never reach into this fold's test window
				// or any later fold's test window.
				for j := i; j < len(specs); j++ {
					if spec.TrainEnd >= specs[j].TestStart {
						t.Errorf("%s %v fold %d: train end %d overlaps fold %d test start %d",
							policy, c, i, spec.TrainEnd, j, specs[j].TestStart)
					}
				}
				if i > 0 {
					if spec.TestStart != specs[i-1].TestEnd+1 {
						t.Errorf("%s %v fold %d: test windows not contiguous", policy, c, i)
					}
				}
			}
		}
	}
}

func TestPlanFolds_ExpandingAlwaysStartsAtZero(t *testing.T) {
	specs, err := PlanFolds(50, 5, 4, types.PolicyExpanding)
	if err != nil {
		t.Fatalf("PlanFolds() error = %v", err)
	}
	for _, spec := range specs {
		if spec.TrainStart != 0 {
			t.Errorf("fold %d train starts at %d, want 0", spec.FoldNumber, spec.TrainStart)
		}
	}
}

func TestPlanFolds_ConstantKeepsTrainLength(t *testing.T) {
	specs, err := PlanFolds(50, 5, 4, types.PolicyConstant)
	if err != nil {
		t.Fatalf("PlanFolds() error = %v", err)
	}
	wantLen := specs[0].TrainEnd - specs[0].TrainStart + 1
	for i, spec := range specs {
		if got := spec.TrainEnd - spec.TrainStart + 1; got != wantLen {
			t.Errorf("fold %d train length %d, want %d", i, got, wantLen)
		}
		if i > 0 && spec.TrainStart != specs[i-1].TrainStart+4 {
			t.Errorf("fold %d train start %d, want previous+horizon %d", i, spec.TrainStart, specs[i-1].TrainStart+4)
		}
	}
}

func TestPlanFolds_Errors(t *testing.T) {
	tests := []struct {
		name    string
		axisLen int
		nFolds  int
		horizon int
		policy  types.Policy
		wantErr error
	}{
		{"zero folds", 10, 0, 2, types.PolicyExpanding, ErrInvalidFoldCount},
		{"negative folds", 10, -1, 2, types.PolicyExpanding, ErrInvalidFoldCount},
		{"zero horizon", 10, 3, 0, types.PolicyExpanding, ErrInvalidHorizon},
		{"unknown policy", 10, 3, 2, types.Policy("bogus"), ErrUnknownPolicy},
		{"axis shorter than folds*horizon", 5, 3, 2, types.PolicyExpanding, ErrInsufficientHistory},
		{"axis leaves no train point", 6, 3, 2, types.PolicyExpanding, ErrInsufficientHistory},
		{"constant policy short axis", 6, 3, 2, types.PolicyConstant, ErrInsufficientHistory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PlanFolds(tt.axisLen, tt.nFolds, tt.horizon, tt.policy)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("PlanFolds() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
