// Package payload pulls structured JSON out of free-form generated text.
//
// Generative services are asked to wrap machine-readable data in a fenced block
// tagged as JSON. Nothing here talks to a live service, so every rule can be
// checked against literal fixtures.
package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrNoBlock means the text contains no ```json fenced block.
	ErrNoBlock = errors.New("no fenced json block")
	// ErrMalformed means a block was found but its body is not valid JSON for the target.
	ErrMalformed = errors.New("malformed json block")
)

// The closing fence must start its own line.
var fencedJSON = regexp.MustCompile("(?s)```json[ \\t]*\\r?\\n(.*?)\\r?\\n[ \\t]*```")

// Block is a located fenced block.
type Block struct {
	// Span is the full matched text, fences included.
	Span string
	// Body is the content between the fences.
	Body string

	start int
}

// Extract locates the first fenced JSON block in text.
func Extract(text string) (Block, error) {
	loc := fencedJSON.FindStringSubmatchIndex(text)
	if loc == nil {
		return Block{}, ErrNoBlock
	}
	return blockAt(text, loc), nil
}

// ExtractLast locates the last fenced JSON block in text, for replies that are
// asked to append their data at the end.
func ExtractLast(text string) (Block, error) {
	all := fencedJSON.FindAllStringSubmatchIndex(text, -1)
	if len(all) == 0 {
		return Block{}, ErrNoBlock
	}
	return blockAt(text, all[len(all)-1]), nil
}

func blockAt(text string, loc []int) Block {
	return Block{Span: text[loc[0]:loc[1]], Body: text[loc[2]:loc[3]], start: loc[0]}
}

// Unmarshal extracts the first fenced JSON block and decodes it into v.
func Unmarshal(text string, v any) (Block, error) {
	return decode(Extract, text, v)
}

// UnmarshalLast is Unmarshal on the last fenced JSON block.
func UnmarshalLast(text string, v any) (Block, error) {
	return decode(ExtractLast, text, v)
}

func decode(extract func(string) (Block, error), text string, v any) (Block, error) {
	block, err := extract(text)
	if err != nil {
		return Block{}, err
	}
	if err := json.Unmarshal([]byte(block.Body), v); err != nil {
		return block, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return block, nil
}

// Strip removes the block from text and trims surrounding whitespace.
func Strip(text string, block Block) string {
	if block.Span == "" {
		return strings.TrimSpace(text)
	}
	i := block.start
	if i+len(block.Span) > len(text) || text[i:i+len(block.Span)] != block.Span {
		i = strings.Index(text, block.Span)
	}
	if i >= 0 {
		text = text[:i] + text[i+len(block.Span):]
	}
	return strings.TrimSpace(text)
}
