package platform

import "context"

// Progress describes one finished item of a multi-product run.
type Progress struct {
	Done  int
	Total int
	URL   string
	Err   error
}

// ProgressFunc receives progress updates, possibly from several goroutines.
type ProgressFunc func(Progress)

type progressKey struct{}

// WithProgress returns a context carrying fn.
func WithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	return context.WithValue(ctx, progressKey{}, fn)
}

// ReportProgress calls the callback in ctx, if any. MCP and HTTP callers set none.
func ReportProgress(ctx context.Context, p Progress) {
	if fn, ok := ctx.Value(progressKey{}).(ProgressFunc); ok && fn != nil {
		fn(p)
	}
}
