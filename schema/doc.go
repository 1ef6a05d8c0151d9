// Copyright 2018 Andrew Fort

// Package schema loads SWE Common record descriptions from XML.
//
// Elements are matched by local name, so documents may use any
// namespace prefix (or none). The supported elements map onto the
// component model as follows:
//
//   DataRecord, Vector      Record of field (coordinate) children
//   DataArray               Array of elementType
//   DataChoice              Choice of item children
//   Boolean                 Scalar boolean
//   Count                   Scalar int
//   Quantity                Scalar double
//   Text, Category          Scalar string
//   Time                    Scalar double, or string with an ISO 8601 uom
//
// Any scalar element may carry a dataType attribute (e.g. "float",
// "ubyte") overriding its default type.
//
// Array sizes
//
// The elementCount of a DataArray gives the array size policy:
//
//   <elementCount><Count><value>3</value></Count></elementCount>   fixed size 3
//   <elementCount><Count/></elementCount>                          implicit size
//   <elementCount href="#n"/>                                      linked to the scalar with id n
//
// A linked size scalar must precede the array in document order.
//
// Data streams
//
// A DataStream root carries an elementType, an encoding (TextEncoding or
// BinaryEncoding) and optional inline values, all returned in the
// Description.
package schema
