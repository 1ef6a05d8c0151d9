// Copyright 2018 Andrew Fort

/*
Package iterator walks a data component tree in lock-step with its data
block, driving a streaming parse or write of one record at a time.

An Iterator visits components depth-first in declaration order using an
explicit stack of frames, so the depth of the tree never grows the call
stack. Each call to Next processes exactly one atomic value (or one
sequence of structural transitions ending at the next atom). At every
boundary the iterator calls its DataHandler:

	StartData(root)
	  StartDataBlock(record)
	    BeginDataAtom(a) EndDataAtom(a)
	    StartDataBlock(array)
	      BeginDataAtom(b[0]) EndDataAtom(b[0])
	      ...
	    EndDataBlock(array)
	  EndDataBlock(record)
	EndData(root)

The value codec is supplied by a Processor. In the parse direction
ProcessAtom fills a scalar from an external source; in the write
direction it emits the scalar's value. Implicit array sizes and choice
selections are passed to ProcessAtom through scratch scalars owned by
the iterator, which fire no atom events of their own.

An Iterator is not safe for concurrent use. Independent iterators over
independent trees may run concurrently.
*/
package iterator
