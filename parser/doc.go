// Package parser turns text into a tree.Tree using a declarative grammar.
//
// A grammar is a set of rules. Each rule names the rules it may appear under
// and lists patterns; a pattern is a sequence of elements (literals, regular
// expressions, whitespace, line feeds, named boundaries and content) that
// produces one node when it matches. Content is free text whose extent is
// decided by the boundary that follows it.
//
// Parsing keeps a stack of frames. At every position all patterns of the
// rules allowed under the top frame are tried and the best match wins: the
// one consuming the most text, then the one whose boundaries consume the
// most. A node whose rule has children opens a new frame; when nothing
// matches the frame is closed. Patterns without a type name close the frame
// they match in.
package parser
