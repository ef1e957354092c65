// Package console renders conversations for a terminal, one line per message.
package console

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"react-agent/internal/domain/entity"

	"github.com/fatih/color"
)

type Printer struct {
	out io.Writer
}

func NewPrinter(out io.Writer) *Printer {
	if out == nil {
		out = os.Stdout
	}
	return &Printer{out: out}
}

func (p *Printer) PrintTranscript(messages []entity.Message) {
	for _, msg := range messages {
		p.PrintMessage(msg)
	}
}

// PrintMessage writes a colored role prefix followed by the content with
// newlines flattened and any requested tool calls.
func (p *Printer) PrintMessage(msg entity.Message) {
	c, label := roleDisplay(msg.Role)
	c.Fprintf(p.out, "[%s]", label)

	var parts []string
	if msg.Role == entity.RoleTool {
		parts = append(parts, fmt.Sprintf("%s(%s) =>", msg.Name, msg.ToolCallID))
	}
	if msg.Content != "" {
		parts = append(parts, flatten(msg.Content))
	}
	if msg.HasToolCalls() {
		calls := make([]string, 0, len(msg.ToolCalls))
		for _, tc := range msg.ToolCalls {
			calls = append(calls, fmt.Sprintf("%s(%s) %s", tc.Name, tc.ID, formatArguments(tc.Arguments)))
		}
		yellow := color.New(color.FgYellow)
		parts = append(parts, yellow.Sprint("tool calls: "+strings.Join(calls, "; ")))
	}

	if len(parts) > 0 {
		fmt.Fprint(p.out, " "+strings.Join(parts, " "))
	}
	fmt.Fprintln(p.out)
}

func (p *Printer) PrintError(err error) {
	red := color.New(color.FgRed, color.Bold)
	red.Fprintf(p.out, "\nError: %v\n", err)
	fmt.Fprintln(p.out, "Check logs for detailed error information.")
}

func roleDisplay(role entity.MessageRole) (*color.Color, string) {
	switch role {
	case entity.RoleSystem:
		return color.New(color.Faint), "system"
	case entity.RoleUser:
		return color.New(color.FgCyan, color.Bold), "human"
	case entity.RoleAssistant:
		return color.New(color.FgGreen, color.Bold), "assistant"
	case entity.RoleTool:
		return color.New(color.FgYellow, color.Bold), "tool"
	default:
		return color.New(color.Reset), string(role)
	}
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// formatArguments prints JSON arguments compactly, or raw text when they
// are not valid JSON.
func formatArguments(arguments string) string {
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return truncate(flatten(arguments), 200)
	}
	data, err := json.Marshal(args)
	if err != nil {
		return truncate(arguments, 200)
	}
	return truncate(string(data), 200)
}

// truncate cuts s to at most maxLen bytes on a rune boundary.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
