// Package lang implements sigil, a template language bounded by a pair of
// delimiters, and the engine that expands it against a data context.
//
// # Syntax
//
// Text outside the delimiters is copied to the output. A delimited capture is
// a nested template whose content is a whitespace-separated list of
// statements. A template with one statement is a variable path or the name of
// a registered function; a template with several statements is a call, the
// first statement naming the function.
//
//	Hello, (user.name)!
//	(upper (user.name))
//	(for i 1 3 "(i) ")
//	(if (admin) "root" elif (guest) "nobody" else (user.name))
//
// Capture prefixes change how the content is treated:
//
//	(<...)   parsed and spliced into the enclosing statement
//	(@...)   lines trimmed, then spliced
//	(:...)   kept as literal text, wrapped in the delimiters again unless it
//	         starts with '<', '[' or a space
//
// Inside a template, "..." and '...' are string literals that may contain
// nested templates, and `...` is a literal parsed with '{' and '}' as its
// delimiters. A backslash protects the next character; \n, \r, \t, \f, \v
// and \s stand for control characters and a space.
//
// # Variables
//
// Paths separate keys with '.'. A nested template may compute a key, and a
// nested template yielding a list or map may start a path. The keyword this
// names the current container. A name prefixed with '!' is not escaped, and a
// name prefixed with '$' is quoted.
//
// When a key is missing, the first unresolved segment may name a value
// function, which is called with the container as its argument:
//
//	(user.name.upper)
//
// # Functions
//
// Value functions receive expanded arguments. Form functions receive the raw
// statements and expand what they need, which is how set, if, for, each,
// try and the other control forms are built. Loop forms bind the element to
// the loop variable v, its key or index to v#, and the iteration number to
// v## counting from zero, restoring any previous bindings when the loop ends.
package lang
