package cli

import (
	"context"

	"goa.design/clue/log"
)

// logContext builds the root log context. An empty format picks terminal
// output on a TTY and JSON otherwise.
func logContext(format string, debug bool) context.Context {
	f := log.FormatJSON
	switch format {
	case "terminal":
		f = log.FormatTerminal
	case "":
		if log.IsTerminal() {
			f = log.FormatTerminal
		}
	}
	ctx := log.Context(context.Background(), log.WithFormat(f))
	if debug {
		ctx = log.Context(ctx, log.WithDebug())
		log.Debugf(ctx, "debug logs enabled")
	}
	return ctx
}
