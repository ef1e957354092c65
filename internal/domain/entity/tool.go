package entity

import "fmt"

type ToolName string

const (
	ToolAdd      ToolName = "add"
	ToolMultiply ToolName = "multiply"
	ToolDivide   ToolName = "divide"
)

var knownTools = map[ToolName]struct{}{
	ToolAdd:      {},
	ToolMultiply: {},
	ToolDivide:   {},
}

func (t ToolName) String() string {
	return string(t)
}

// ParseToolName maps a model-supplied name onto the closed set of tools.
func ParseToolName(name string) (ToolName, error) {
	tn := ToolName(name)
	if _, ok := knownTools[tn]; !ok {
		return "", fmt.Errorf("unknown tool %q", name)
	}
	return tn, nil
}
