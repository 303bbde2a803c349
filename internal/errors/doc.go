// Package errors provides structured, actionable error messages for airset.
//
// Every error carries a stable code (e.g., "E010") that maps to a category,
// a short message, a longer explanation and a documentation URL. Errors
// raised while reading input documents can point at the offending line, and
// errors about tree content can name the tree path involved.
//
// # Error Categories
//
//   - store: misuse of a Store (destroyed, mounted twice, non-mapping data)
//   - task: failures inside Store.Run
//   - input: unreadable or malformed JSON/YAML documents
//   - inspector: HTTP inspector failures
//   - config: invalid airset.json
//   - cli: invalid command line usage
//
// # Usage
//
//	err := errors.New("E041").
//	    WithLocationFromError("state.yaml", yamlErr).
//	    WithSuggestion("Check the indentation of the highlighted line")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E041: Document could not be decoded
//	//
//	//   state.yaml:3
//	//
//	//     2 │ users:
//	//   → 3 │   - name: ada
//	//     4 │    age: 36
//	//
//	//   Hint: Check the indentation of the highlighted line
//	//
//	//   Learn more: https://airset.dev/docs/errors/E041
//
// Sentinel comparisons work through errors.Is on the code:
//
//	if errors.Is(err, airerrors.New("E001")) { ... }
package errors
