package geoblur

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/maxmind/mmdbwriter/mmdbtype"
)

// valueDecoder receives a store record from maxminddb's deserializer
// callbacks and rebuilds it as mmdbtype values. Unlike decoding into
// interface{}, this keeps the exact on-disk type of every value (uint16
// stays Uint16, float stays Float32), so unchanged records are written
// back identically.
type valueDecoder struct {
	stack []*container
	value mmdbtype.DataType
	done  bool
}

type container struct {
	isMap bool
	m     mmdbtype.Map
	s     mmdbtype.Slice
	key   *mmdbtype.String
}

func (d *valueDecoder) reset() {
	d.stack = d.stack[:0]
	d.value = nil
	d.done = false
}

// result returns the decoded value.
func (d *valueDecoder) result() (mmdbtype.DataType, error) {
	if !d.done || len(d.stack) != 0 {
		return nil, errors.New("incomplete record")
	}
	return d.value, nil
}

func (d *valueDecoder) add(v mmdbtype.DataType) error {
	if len(d.stack) == 0 {
		if d.done {
			return errors.New("unexpected value after record end")
		}
		d.value = v
		d.done = true
		return nil
	}

	top := d.stack[len(d.stack)-1]
	if !top.isMap {
		top.s = append(top.s, v)
		return nil
	}
	if top.key == nil {
		k, ok := v.(mmdbtype.String)
		if !ok {
			return fmt.Errorf("map key is %T, want string", v)
		}
		top.key = &k
		return nil
	}
	top.m[*top.key] = v
	top.key = nil
	return nil
}

// ShouldSkip always decodes; records are never shared between calls.
func (d *valueDecoder) ShouldSkip(uintptr) (bool, error) { return false, nil }

func (d *valueDecoder) StartSlice(size uint) error {
	d.stack = append(d.stack, &container{s: make(mmdbtype.Slice, 0, size)})
	return nil
}

func (d *valueDecoder) StartMap(size uint) error {
	d.stack = append(d.stack, &container{isMap: true, m: make(mmdbtype.Map, size)})
	return nil
}

func (d *valueDecoder) End() error {
	if len(d.stack) == 0 {
		return errors.New("end without start")
	}
	top := d.stack[len(d.stack)-1]
	d.stack = d.stack[:len(d.stack)-1]
	if top.isMap {
		if top.key != nil {
			return fmt.Errorf("map key %q has no value", string(*top.key))
		}
		return d.add(top.m)
	}
	return d.add(top.s)
}

func (d *valueDecoder) String(v string) error   { return d.add(mmdbtype.String(v)) }
func (d *valueDecoder) Float64(v float64) error { return d.add(mmdbtype.Float64(v)) }
func (d *valueDecoder) Float32(v float32) error { return d.add(mmdbtype.Float32(v)) }
func (d *valueDecoder) Uint16(v uint16) error   { return d.add(mmdbtype.Uint16(v)) }
func (d *valueDecoder) Uint32(v uint32) error   { return d.add(mmdbtype.Uint32(v)) }
func (d *valueDecoder) Uint64(v uint64) error   { return d.add(mmdbtype.Uint64(v)) }
func (d *valueDecoder) Int32(v int32) error     { return d.add(mmdbtype.Int32(v)) }
func (d *valueDecoder) Bool(v bool) error       { return d.add(mmdbtype.Bool(v)) }

func (d *valueDecoder) Bytes(v []byte) error {
	b := make([]byte, len(v))
	copy(b, v)
	return d.add(mmdbtype.Bytes(b))
}

func (d *valueDecoder) Uint128(v *big.Int) error {
	return d.add((*mmdbtype.Uint128)(new(big.Int).Set(v)))
}
