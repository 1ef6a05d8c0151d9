// Copyright 2018 Andrew Fort

/*
Package swecommon is a set of OGC SWE Common data stream libraries.

Records are described by a tree of data components (scalars, records,
arrays and choices) whose values live in a flat data block. An
iterator walks the tree one atom at a time, driving a text or binary
codec to read records from, or write records to, a stream.

	component   the component tree and data blocks
	iterator    the traversal engine and its event handlers
	textenc     delimiter separated text records
	binenc      fixed width binary records, raw or base64
	schema      XML record descriptions
	encoding    encoding descriptors and YAML configuration
	swerr       error kinds shared by all packages

See cmd/swecat for a command re-encoding record streams.
*/
package swecommon
