// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package rpc

import (
	"context"
	"fmt"
)

// Sum adds all of its arguments.
// If every argument is an int the result is an int, otherwise it is a
// float64.
func Sum(_ context.Context, args []interface{}) (interface{}, error) {
	var (
		isum   int
		fsum   float64
		floats bool
	)
	for i, a := range args {
		switch v := a.(type) {
		case int:
			isum += v
			fsum += float64(v)
		case float64:
			floats = true
			fsum += v
		default:
			return nil, fmt.Errorf("argument %d is a %T, not a number", i, a)
		}
	}
	if floats {
		return fsum, nil
	}
	return isum, nil
}

// Add adds exactly two numbers.
func Add(ctx context.Context, args []interface{}) (interface{}, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("add takes 2 arguments, got %d", len(args))
	}
	return Sum(ctx, args)
}

// Reverse reverses a string.
func Reverse(_ context.Context, args []interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("reverse takes 1 argument, got %d", len(args))
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("argument 0 is a %T, not a string", args[0])
	}
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r), nil
}

// RegisterExamples registers Sum, Add, and Reverse as "sum", "add", and
// "reverse".
func RegisterExamples(d *Dispatcher) {
	d.Register("sum", Sum)
	d.Register("add", Add)
	d.Register("reverse", Reverse)
}
