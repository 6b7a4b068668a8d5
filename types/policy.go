package types

// Policy controls how the train window grows between folds.
type Policy string

const (
	// PolicyExpanding starts every train window at the first axis point.
	PolicyExpanding Policy = "expanding"
	// PolicyConstant keeps the train window length fixed and slides it forward.
	PolicyConstant Policy = "constant"
)

// ConvertPolicy maps configuration strings to supported policies.
var ConvertPolicy = map[string]Policy{
	string(PolicyExpanding): PolicyExpanding,
	string(PolicyConstant):  PolicyConstant,
}
