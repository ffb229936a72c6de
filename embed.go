package postmuse

import "embed"

// SamplesFS holds the starter topics written into an empty knowledge base.
//
//go:embed samples
var SamplesFS embed.FS
