package event

// ToolInfo describes one generator or processing tool that touched a
// stream.
type ToolInfo struct {
	Name        string
	Version     string
	Description string
}

// RunInfo is stream-level metadata shared by every Event read from or
// written to one stream. It is constructed once per stream and
// referenced, never copied, by the events. Mutation after stream
// construction is single-writer; this package provides no internal
// locking.
type RunInfo struct {
	// Tools lists the tool descriptors, in declaration order.
	Tools []ToolInfo

	// WeightNames gives the meaning of each positional weight in
	// every Event of the stream, in order.
	WeightNames []string

	// Attributes holds free-form run metadata.
	Attributes Attributes
}

// NewRunInfo returns an empty RunInfo.
func NewRunInfo() *RunInfo {
	return &RunInfo{}
}

// AddTool appends a tool descriptor.
func (r *RunInfo) AddTool(name, version, description string) {
	r.Tools = append(r.Tools, ToolInfo{Name: name, Version: version, Description: description})
}

// WeightIndex returns the position of the named weight, or -1.
func (r *RunInfo) WeightIndex(name string) int {
	for i, n := range r.WeightNames {
		if n == name {
			return i
		}
	}
	return -1
}
