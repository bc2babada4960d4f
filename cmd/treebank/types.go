package main

// CLIResult is the top-level JSON envelope for all query commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLIDocument is a JSON-friendly document representation. The text itself is
// omitted; it can be large and is available from the text file.
type CLIDocument struct {
	ID          int64  `json:"id"`
	Path        string `json:"path"`
	TextPath    string `json:"text_path,omitempty"`
	TreeCount   int    `json:"tree_count"`
	LastIndexed string `json:"last_indexed"`
}

// CLINode is a JSON-friendly node found by a span lookup.
type CLINode struct {
	File      string `json:"file"`
	Tree      int    `json:"tree"`
	Label     string `json:"label"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Depth     int    `json:"depth"`
	IsLeaf    bool   `json:"is_leaf"`
	Token     string `json:"token,omitempty"`
	Text      string `json:"text"`
	Bracketed string `json:"bracketed"`
}

// CLIDepth is the result of a depth lookup.
type CLIDepth struct {
	File  string `json:"file"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label"`
	Depth int    `json:"depth"`
}

// CLIPath is a JSON-friendly path between two nodes.
type CLIPath struct {
	Source   CLINode  `json:"source"`
	Target   CLINode  `json:"target"`
	Ancestor CLINode  `json:"ancestor"`
	Labels   []string `json:"labels"`
	Length   int      `json:"length"`
}

// CLIConstituent is a JSON-friendly constituent row.
type CLIConstituent struct {
	ID       int64  `json:"id"`
	Document string `json:"document,omitempty"`
	Label    string `json:"label"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Depth    int    `json:"depth"`
	IsLeaf   bool   `json:"is_leaf"`
	Token    string `json:"token,omitempty"`
}

// CLILabelCount is a label with its constituent count.
type CLILabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// CLIStats is a JSON-friendly index summary.
type CLIStats struct {
	Documents    int    `json:"documents"`
	Trees        int    `json:"trees"`
	Constituents int    `json:"constituents"`
	Labels       int    `json:"labels"`
	LastIndexRun string `json:"last_index_run,omitempty"`
}

// CLIRow is one row emitted by a feature script.
type CLIRow map[string]any
