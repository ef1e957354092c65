package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"react-agent/internal/application/port/output"
	"react-agent/internal/domain/entity"
)

var ErrDivisionByZero = errors.New("division by zero")

// BinaryFunc is the typed handler behind every arithmetic tool.
type BinaryFunc func(a, b float64) (float64, error)

func Add(a, b float64) (float64, error) {
	return a + b, nil
}

func Multiply(a, b float64) (float64, error) {
	return a * b, nil
}

func Divide(a, b float64) (float64, error) {
	if b == 0 {
		return 0, ErrDivisionByZero
	}
	return a / b, nil
}

var _ output.ToolPort = (*ArithmeticTool)(nil)

type ArithmeticTool struct {
	name        entity.ToolName
	description string
	fn          BinaryFunc
	logger      output.LoggerPort
}

func NewAddTool(logger output.LoggerPort) *ArithmeticTool {
	return &ArithmeticTool{
		name:        entity.ToolAdd,
		description: "Adds a and b.",
		fn:          Add,
		logger:      logger,
	}
}

func NewMultiplyTool(logger output.LoggerPort) *ArithmeticTool {
	return &ArithmeticTool{
		name:        entity.ToolMultiply,
		description: "Multiply a and b.",
		fn:          Multiply,
		logger:      logger,
	}
}

func NewDivideTool(logger output.LoggerPort) *ArithmeticTool {
	return &ArithmeticTool{
		name:        entity.ToolDivide,
		description: "Divide a by b. Fails when b is zero.",
		fn:          Divide,
		logger:      logger,
	}
}

// NewArithmeticTools returns add, divide and multiply.
func NewArithmeticTools(logger output.LoggerPort) []output.ToolPort {
	return []output.ToolPort{
		NewAddTool(logger),
		NewDivideTool(logger),
		NewMultiplyTool(logger),
	}
}

func (t *ArithmeticTool) Name() entity.ToolName { return t.name }
func (t *ArithmeticTool) Description() string   { return t.description }

func (t *ArithmeticTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"a": map[string]interface{}{
				"type":        "number",
				"description": "first number",
			},
			"b": map[string]interface{}{
				"type":        "number",
				"description": "second number",
			},
		},
		"required":             []string{"a", "b"},
		"additionalProperties": false,
	}
}

func (t *ArithmeticTool) Execute(ctx context.Context, arguments string) (string, error) {
	a, b, err := decodeOperands(arguments)
	if err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	result, err := t.fn(a, b)
	if err != nil {
		return "", err
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return "", fmt.Errorf("result of %s(%v, %v) is not a finite number", t.name, a, b)
	}

	out := FormatNumber(result)
	if t.logger != nil {
		t.logger.Debug("Tool computed", "tool", t.name, "a", a, "b", b, "result", out)
	}
	return out, nil
}

// FormatNumber renders v with the fewest digits that round-trip.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func decodeOperands(arguments string) (float64, float64, error) {
	if strings.TrimSpace(arguments) == "" {
		return 0, 0, errors.New("arguments are empty")
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(arguments)))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return 0, 0, fmt.Errorf("arguments must be a JSON object: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return 0, 0, errors.New("arguments must be a single JSON object")
	}

	var extra []string
	for key := range raw {
		if key != "a" && key != "b" {
			extra = append(extra, key)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return 0, 0, fmt.Errorf("unexpected arguments: %s", strings.Join(extra, ", "))
	}

	a, err := operand(raw, "a")
	if err != nil {
		return 0, 0, err
	}
	b, err := operand(raw, "b")
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func operand(raw map[string]any, key string) (float64, error) {
	value, ok := raw[key]
	if !ok || value == nil {
		return 0, fmt.Errorf("argument %q is required", key)
	}

	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("argument %q: %w", key, err)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("argument %q is not a number: %q", key, v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("argument %q must be a number, got %T", key, value)
	}
}
