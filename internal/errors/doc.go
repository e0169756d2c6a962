// Package errors provides coded, actionable errors for the prop adapters and
// the propctl command.
//
// Every error has a unique code (e.g. "E020") that maps to a registered
// template holding a category, a short message and a longer explanation.
// Callers attach the failing input, a suggestion and the wrapped cause with
// builder methods:
//
//	err := errors.New("E102").
//	    WithLocation("propctl.yaml", 4, 3).
//	    WithSuggestion("log.level must be one of debug, info, warn, error").
//	    Wrap(cause)
//
//	fmt.Fprint(os.Stderr, err.Format())
//	// Output:
//	// ERROR E102: Invalid configuration value
//	//
//	//   propctl.yaml:4:3
//	//
//	//        2 │ log:
//	//        3 │   format: text
//	//   →    4 │   level: loud
//	//          │   ^
//	//
//	//   Hint: log.level must be one of debug, info, warn, error
//
// # Code ranges
//
//   - E001-E099: runtime and adapter errors (event sources, Redis, WebSocket)
//   - E100-E199: configuration errors
//   - E200-E299: command line errors
//
// Errors compare by code with errors.Is, so errors.Is(err, errors.New("E020"))
// holds for any E020 regardless of the attached details.
package errors
