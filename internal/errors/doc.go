// Package errors provides coded, actionable errors for the pulse CLI.
//
// Every code maps to a registered template with a short message and an
// explanation. Codes are grouped by area:
//   - P1xx: configuration files
//   - P2xx: command line usage and serving
//   - P3xx: publishing rendered output
//
// # Usage
//
//	err := errors.New("P101").
//	    WithLocation("pulse.yaml", 4, 3).
//	    WithSuggestion("Indent nested keys with spaces, not tabs").
//	    Wrap(yamlErr)
//
//	fmt.Fprint(os.Stderr, err.Format(true))
//	// ERROR P101: Invalid configuration file
//	//
//	//   pulse.yaml:4:3
//	//
//	//       2 │ serve:
//	//       3 │   addr: ":8080"
//	//   →   4 │ 	metrics: true
//	//         │   ^
//	//
//	//   The configuration file could not be parsed.
//	//
//	//   Hint: Indent nested keys with spaces, not tabs
package errors
