/*
Package framing offers a tokenizer for delimiter separated text data streams.

SplitTokens returns a bufio.SplitFunc for use with a *bufio.Scanner. Each
token is one value; a block separator additionally marks the end of a
data record.
*/
package framing
