// Copyright 2018 Andrew Fort

// Package component provides the SWE Common data component model and
// the flat data block backing it.
//
// A component tree describes the shape of a data record. Scalars are
// leaves holding a single typed value; Records hold an ordered list of
// named fields; Arrays repeat an element component either a fixed
// number of times or a variable number of times; Choices select one of
// a list of named alternatives.
//
// Data block layout
//
// Values for a whole tree live in one DataBlock, a flat slice of typed
// values in depth-first declaration order:
//
//   Scalar                      one atom
//   Record                      the atoms of each field, in order
//   Array (implicit size)       an Int size atom, then each element
//   Array (fixed, linked size)  each element
//   Choice                      an Int selection atom, then the atoms
//                               of the selected item
//
// The size and selection atoms make a block self describing: Bind can
// restore array sizes and choice selections of a tree from a block
// alone. Resizing an array or changing a choice selection splices the
// bound block in place.
//
// Trees are not safe for concurrent use. A tree and its block must be
// owned by a single writer while a traversal is in progress.
package component
