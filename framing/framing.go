package framing

import (
	"bufio"
	"bytes"
	"fmt"
	"unicode"
	"unicode/utf8"
)

type ErrBadToken struct {
	Message string
	Offset  int
}

func (e ErrBadToken) Error() string {
	msg := "bad token"
	if e.Message != "" {
		msg = msg + ": " + e.Message
	}
	if e.Offset < 1 {
		return msg
	}
	return fmt.Sprintf("%s at input offset %d", msg, e.Offset)
}

// SplitTokens returns a bufio.SplitFunc for delimiter separated text
// streams. Tokens end at either tokenSep or blockSep; when the
// terminator is blockSep, endOfBlock is called just before the block's
// last token is returned. Where both separators match at the same
// offset, the block separator wins.
//
// With collapse set, tokens have surrounding white space removed and
// empty tokens are dropped, so runs of white space separators count as
// one. Otherwise empty tokens are returned as such.
//
// A final token not followed by any separator ends the last block.
func SplitTokens(tokenSep, blockSep string, collapse bool, endOfBlock func()) bufio.SplitFunc {
	tsep, bsep := []byte(tokenSep), []byte(blockSep)
	var offset int
	var inBlock bool
	return func(b []byte, atEOF bool) (advance int, token []byte, err error) {
		switch {
		case len(tsep) == 0 || len(bsep) == 0:
			return 0, nil, ErrBadToken{Message: "empty separator"}
		case bytes.Equal(tsep, bsep):
			return 0, nil, ErrBadToken{Message: "token and block separators are identical"}
		}
		if atEOF && len(b) == 0 {
			return 0, nil, nil
		}

		var end, sepLen int
		isBlock := false
		it, ib := bytes.Index(b, tsep), bytes.Index(b, bsep)
		switch {
		case ib > -1 && (it < 0 || ib <= it):
			end, sepLen, isBlock = ib, len(bsep), true
		case it > -1:
			// the token separator may be the start of a block separator
			if !atEOF && bytes.HasPrefix(bsep, b[it:]) {
				return 0, nil, nil
			}
			end, sepLen = it, len(tsep)
		case atEOF:
			end, isBlock = len(b), true
		default:
			// need more data
			return 0, nil, nil
		}

		advance = end + sepLen
		token = b[:end]
		if !utf8.Valid(token) {
			return 0, nil, ErrBadToken{Message: "invalid UTF-8", Offset: offset + 1}
		}
		offset += advance
		if collapse {
			token = bytes.TrimFunc(token, unicode.IsSpace)
			if len(token) == 0 {
				// dropped; still ends a block with tokens in it
				token = nil
				if isBlock && inBlock && endOfBlock != nil {
					endOfBlock()
				}
				inBlock = inBlock && !isBlock
				return
			}
		}
		inBlock = !isBlock
		if isBlock && endOfBlock != nil {
			endOfBlock()
		}
		return
	}
}
