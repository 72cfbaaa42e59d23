// Package json walks a large top-level JSON object without decoding it
// whole.
//
// Members whose value is an array can be streamed: each element is decoded
// on its own and handed to a callback, so memory stays bounded by the
// largest element rather than the document. All other members are decoded
// normally and returned as the object's shell.
//
// Numbers are decoded as json.Number so callers can apply their own
// numeric rules.
package json

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrNotObject is returned when the top-level value is not a JSON object.
var ErrNotObject = errors.New("json: top-level value is not an object")

// ElementFunc receives one element of a streamed array. index is the
// element's position in the array. A non-nil error stops the walk and is
// returned from StreamObject unchanged.
type ElementFunc func(key string, index int, elem any) error

// ErrStop may be returned from an ElementFunc to end the walk early
// without reporting an error.
var ErrStop = errors.New("json: stop")

// Shell is the decoded top-level object minus streamed array contents.
// A streamed member is present with an empty array when the input had an
// array there.
type Shell map[string]any

// StreamObject reads a single top-level object from r. For every member
// named in streamed whose value is an array, fn is called once per element.
// When fn returns ErrStop the walk ends and the shell is returned as read
// so far with stopped=true.
func StreamObject(ctx context.Context, r io.Reader, streamed []string, fn ElementFunc) (shell Shell, stopped bool, err error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	want := make(map[string]bool, len(streamed))
	for _, k := range streamed {
		want[k] = true
	}

	tok, err := dec.Token()
	if err != nil {
		return nil, false, fmt.Errorf("json: read root: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, false, ErrNotObject
	}

	shell = Shell{}
	for dec.More() {
		if err := ctx.Err(); err != nil {
			return shell, false, err
		}
		kt, err := dec.Token()
		if err != nil {
			return shell, false, fmt.Errorf("json: read key: %w", err)
		}
		key, _ := kt.(string)

		if !want[key] {
			var v any
			if err := dec.Decode(&v); err != nil {
				return shell, false, fmt.Errorf("json: member %q: %w", key, err)
			}
			shell[key] = v
			continue
		}

		stop, err := streamMember(ctx, dec, shell, key, fn)
		if err != nil {
			return shell, false, err
		}
		if stop {
			return shell, true, nil
		}
	}

	if _, err := dec.Token(); err != nil {
		return shell, false, fmt.Errorf("json: close root: %w", err)
	}
	return shell, false, nil
}

// streamMember consumes the value of a streamed member. Non-array values
// are stored in the shell as-is so the caller's structural checks see them.
func streamMember(ctx context.Context, dec *json.Decoder, shell Shell, key string, fn ElementFunc) (bool, error) {
	tok, err := dec.Token()
	if err != nil {
		return false, fmt.Errorf("json: member %q: %w", key, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		v, err := tokenValue(dec, tok)
		if err != nil {
			return false, fmt.Errorf("json: member %q: %w", key, err)
		}
		shell[key] = v
		return false, nil
	}

	shell[key] = []any{}
	for i := 0; dec.More(); i++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		var elem any
		if err := dec.Decode(&elem); err != nil {
			return false, fmt.Errorf("json: %s[%d]: %w", key, i, err)
		}
		if err := fn(key, i, elem); err != nil {
			if errors.Is(err, ErrStop) {
				return true, nil
			}
			return false, err
		}
	}
	if _, err := dec.Token(); err != nil { // ']'
		return false, fmt.Errorf("json: member %q: %w", key, err)
	}
	return false, nil
}

// tokenValue rebuilds the value that starts with tok.
func tokenValue(dec *json.Decoder, tok json.Token) (any, error) {
	d, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch d {
	case '{':
		obj := map[string]any{}
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			var v any
			if err := dec.Decode(&v); err != nil {
				return nil, err
			}
			obj[kt.(string)] = v
		}
		_, err := dec.Token()
		return obj, err
	case '[':
		arr := []any{}
		for dec.More() {
			var v any
			if err := dec.Decode(&v); err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		_, err := dec.Token()
		return arr, err
	}
	return nil, fmt.Errorf("unexpected delimiter %v", d)
}
