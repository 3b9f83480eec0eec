package engine

import (
	"encoding/json"
)

// Draw command operations.
const (
	OpStroke = "stroke"
	OpCircle = "circle"
)

// DrawCommand represents a single drawing operation for the frontend to execute.
// The frontend receives a list of these and executes them on a Canvas2D context.
type DrawCommand struct {
	Op          string        `json:"op"`                    // Operation: "stroke" or "circle"
	Path        []PathCommand `json:"path,omitempty"`        // Path data for "stroke" ops
	StrokeWidth float64       `json:"strokeWidth,omitempty"` // Stroke width
	Circle      []float64     `json:"circle,omitempty"`      // [x, y, r] for "circle" ops
}

// PathCommand represents a single path segment for rendering.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["Q", cx, cy, x, y].
type PathCommand []interface{}

// CommandBuffer is a Surface that records draw commands in painter's order.
type CommandBuffer struct {
	commands []DrawCommand
	open     *DrawCommand
}

// NewCommandBuffer creates an empty command buffer.
func NewCommandBuffer() *CommandBuffer {
	return &CommandBuffer{}
}

func (b *CommandBuffer) BeginStroke(x, y, width float64) {
	b.EndStroke()
	b.open = &DrawCommand{
		Op:          OpStroke,
		Path:        []PathCommand{{"M", x, y}},
		StrokeWidth: width,
	}
}

func (b *CommandBuffer) LineTo(x, y float64) {
	if b.open == nil {
		return
	}
	b.open.Path = append(b.open.Path, PathCommand{"L", x, y})
}

func (b *CommandBuffer) QuadraticCurveTo(cx, cy, x, y float64) {
	if b.open == nil {
		return
	}
	b.open.Path = append(b.open.Path, PathCommand{"Q", cx, cy, x, y})
}

func (b *CommandBuffer) EndStroke() {
	if b.open == nil {
		return
	}
	b.commands = append(b.commands, *b.open)
	b.open = nil
}

func (b *CommandBuffer) FillCircle(x, y, r float64) {
	b.EndStroke()
	b.commands = append(b.commands, DrawCommand{Op: OpCircle, Circle: []float64{x, y, r}})
}

// Commands returns the recorded commands, closing any open stroke.
func (b *CommandBuffer) Commands() []DrawCommand {
	b.EndStroke()
	return b.commands
}

// Reset discards all recorded commands.
func (b *CommandBuffer) Reset() {
	b.commands = b.commands[:0]
	b.open = nil
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	if commands == nil {
		return "[]", nil
	}
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
