// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package rpc

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"mellium.im/benderjab"
)

// TimeFormat is the layout of XML-RPC dateTime.iso8601 values.
const TimeFormat = "20060102T15:04:05"

// Call is a decoded method call.
type Call struct {
	Method string
	Params []interface{}
}

func el(local string, children ...benderjab.Node) benderjab.Node {
	return benderjab.NewNode(xml.Name{Local: local}, children...)
}

func text(local, s string) benderjab.Node {
	return benderjab.TextNode(xml.Name{Local: local}, s)
}

func child(n benderjab.Node, local string) (benderjab.Node, bool) {
	return n.Child(xml.Name{Local: local})
}

func children(n benderjab.Node, local string) []benderjab.Node {
	var out []benderjab.Node
	for _, c := range n.Nodes {
		if c.XMLName.Local == local {
			out = append(out, c)
		}
	}
	return out
}

func encodeParams(params []interface{}) (benderjab.Node, error) {
	p := el("params")
	for i, v := range params {
		val, err := EncodeValue(v)
		if err != nil {
			return benderjab.Node{}, fmt.Errorf("rpc: param %d: %w", i, err)
		}
		p.Nodes = append(p.Nodes, el("param", val))
	}
	return p, nil
}

func decodeParams(n benderjab.Node) ([]interface{}, error) {
	params, ok := child(n, "params")
	if !ok {
		return nil, nil
	}
	out := make([]interface{}, 0, len(params.Nodes))
	for i, p := range children(params, "param") {
		val, ok := child(p, "value")
		if !ok {
			return nil, fmt.Errorf("rpc: param %d has no value", i)
		}
		v, err := DecodeValue(val)
		if err != nil {
			return nil, fmt.Errorf("rpc: param %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// EncodeCall returns a methodCall element.
func EncodeCall(method string, params ...interface{}) (benderjab.Node, error) {
	p, err := encodeParams(params)
	if err != nil {
		return benderjab.Node{}, err
	}
	return el("methodCall", text("methodName", method), p), nil
}

// DecodeCall decodes a methodCall element.
func DecodeCall(n benderjab.Node) (Call, error) {
	if n.XMLName.Local != "methodCall" {
		return Call{}, fmt.Errorf("rpc: expected methodCall, got %s", n.XMLName.Local)
	}
	name, ok := child(n, "methodName")
	if !ok || name.TrimmedText() == "" {
		return Call{}, fmt.Errorf("rpc: methodCall has no methodName")
	}
	params, err := decodeParams(n)
	if err != nil {
		return Call{}, err
	}
	return Call{Method: name.TrimmedText(), Params: params}, nil
}

// EncodeResponse returns a methodResponse element carrying v.
func EncodeResponse(v interface{}) (benderjab.Node, error) {
	p, err := encodeParams([]interface{}{v})
	if err != nil {
		return benderjab.Node{}, err
	}
	return el("methodResponse", p), nil
}

// EncodeFault returns a methodResponse element carrying f.
func EncodeFault(f *Fault) benderjab.Node {
	val, _ := EncodeValue(map[string]interface{}{
		"faultCode":   f.Code,
		"faultString": f.String,
	})
	return el("methodResponse", el("fault", val))
}

// DecodeResponse decodes a methodResponse element.
// If the response is a fault, it is returned as a *Fault error.
func DecodeResponse(n benderjab.Node) ([]interface{}, error) {
	if n.XMLName.Local != "methodResponse" {
		return nil, fmt.Errorf("rpc: expected methodResponse, got %s", n.XMLName.Local)
	}
	if fault, ok := child(n, "fault"); ok {
		val, ok := child(fault, "value")
		if !ok {
			return nil, fmt.Errorf("rpc: fault has no value")
		}
		v, err := DecodeValue(val)
		if err != nil {
			return nil, err
		}
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("rpc: fault is a %T, not a struct", v)
		}
		f := &Fault{}
		f.Code, _ = m["faultCode"].(int)
		f.String, _ = m["faultString"].(string)
		return nil, f
	}
	return decodeParams(n)
}

// EncodeValue returns a value element for v.
//
// Supported types are booleans, integers that fit in 32 bits, floats,
// strings, time.Time, []byte, slices and arrays of supported types, and maps
// with string keys and supported values.
func EncodeValue(v interface{}) (benderjab.Node, error) {
	inner, err := encodeValue(reflect.ValueOf(v))
	if err != nil {
		return benderjab.Node{}, err
	}
	return el("value", inner), nil
}

func encodeValue(v reflect.Value) (benderjab.Node, error) {
	if !v.IsValid() {
		return benderjab.Node{}, fmt.Errorf("rpc: cannot encode nil")
	}
	switch x := v.Interface().(type) {
	case time.Time:
		return text("dateTime.iso8601", x.Format(TimeFormat)), nil
	case []byte:
		return text("base64", base64.StdEncoding.EncodeToString(x)), nil
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Ptr:
		if v.IsNil() {
			return benderjab.Node{}, fmt.Errorf("rpc: cannot encode nil")
		}
		return encodeValue(v.Elem())
	case reflect.Bool:
		if v.Bool() {
			return text("boolean", "1"), nil
		}
		return text("boolean", "0"), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := v.Int()
		if i < math.MinInt32 || i > math.MaxInt32 {
			return benderjab.Node{}, fmt.Errorf("rpc: int %d exceeds XML-RPC limits", i)
		}
		return text("int", strconv.FormatInt(i, 10)), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := v.Uint()
		if u > math.MaxInt32 {
			return benderjab.Node{}, fmt.Errorf("rpc: int %d exceeds XML-RPC limits", u)
		}
		return text("int", strconv.FormatUint(u, 10)), nil
	case reflect.Float32, reflect.Float64:
		return text("double", strconv.FormatFloat(v.Float(), 'f', -1, 64)), nil
	case reflect.String:
		return text("string", v.String()), nil
	case reflect.Slice, reflect.Array:
		data := el("data")
		for i := 0; i < v.Len(); i++ {
			inner, err := encodeValue(v.Index(i))
			if err != nil {
				return benderjab.Node{}, err
			}
			data.Nodes = append(data.Nodes, el("value", inner))
		}
		return el("array", data), nil
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return benderjab.Node{}, fmt.Errorf("rpc: cannot encode map with %s keys", v.Type().Key())
		}
		keys := make([]string, 0, v.Len())
		for _, k := range v.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		s := el("struct")
		for _, k := range keys {
			inner, err := encodeValue(v.MapIndex(reflect.ValueOf(k).Convert(v.Type().Key())))
			if err != nil {
				return benderjab.Node{}, fmt.Errorf("rpc: member %s: %w", k, err)
			}
			s.Nodes = append(s.Nodes, el("member", text("name", k), el("value", inner)))
		}
		return s, nil
	}
	return benderjab.Node{}, fmt.Errorf("rpc: cannot encode %s", v.Type())
}

// DecodeValue decodes a value element.
// Integers decode to int, doubles to float64, booleans to bool, dates to
// time.Time, base64 to []byte, arrays to []interface{}, and structs to
// map[string]interface{}.
func DecodeValue(n benderjab.Node) (interface{}, error) {
	if len(n.Nodes) == 0 {
		return n.Text, nil
	}
	typed := n.Nodes[0]
	s := typed.Text
	switch typed.XMLName.Local {
	case "string":
		return s, nil
	case "int", "i4", "i8":
		i, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("rpc: bad int: %w", err)
		}
		return i, nil
	case "boolean":
		switch strings.TrimSpace(s) {
		case "1":
			return true, nil
		case "0":
			return false, nil
		}
		return nil, fmt.Errorf("rpc: bad boolean %q", s)
	case "double":
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("rpc: bad double: %w", err)
		}
		return f, nil
	case "dateTime.iso8601":
		t, err := time.Parse(TimeFormat, strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("rpc: bad dateTime: %w", err)
		}
		return t, nil
	case "base64":
		b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("rpc: bad base64: %w", err)
		}
		return b, nil
	case "nil":
		return nil, nil
	case "array":
		data, ok := child(typed, "data")
		if !ok {
			return nil, fmt.Errorf("rpc: array has no data")
		}
		out := make([]interface{}, 0, len(data.Nodes))
		for _, val := range children(data, "value") {
			v, err := DecodeValue(val)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case "struct":
		out := make(map[string]interface{})
		for _, m := range children(typed, "member") {
			name, ok := child(m, "name")
			if !ok {
				return nil, fmt.Errorf("rpc: struct member has no name")
			}
			val, ok := child(m, "value")
			if !ok {
				return nil, fmt.Errorf("rpc: struct member %s has no value", name.Text)
			}
			v, err := DecodeValue(val)
			if err != nil {
				return nil, err
			}
			out[name.TrimmedText()] = v
		}
		return out, nil
	}
	return nil, fmt.Errorf("rpc: unknown value type %s", typed.XMLName.Local)
}
