// Package errors provides coded, actionable error values for focus.
//
// Every error carries a short code (e.g. "F001") that maps to a registered
// template holding a category, a message and a longer explanation. Callers
// add a detail line and a hint for the failing case:
//
//	err := errors.New("F001").
//	    WithDetail(`cannot add property "user" of store "users"`).
//	    WithSuggestion("Declare the property in the store definition")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR F001: Unsupported property subscription
//	//
//	//   cannot add property "user" of store "users"
//	//
//	//   Hint: Declare the property in the store definition
//
// # Matching
//
// FocusError implements Is by comparing codes, so a package can export a
// sentinel built with New and callers can match with the standard library:
//
//	var ErrUnsupportedProperty = errors.New("F001")
//
//	if stderrors.Is(err, ErrUnsupportedProperty) { ... }
package errors
