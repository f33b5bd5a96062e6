package memory

import "errors"

// ErrCompression is returned when the compressor fails to summarize
// drained working items. The drained items are restored to Working.
var ErrCompression = errors.New("memory compression failed")

// ErrArchive is returned when a short-term summary cannot be written to
// the long-term index. The summary stays in ShortTerm.
var ErrArchive = errors.New("memory archive failed")
