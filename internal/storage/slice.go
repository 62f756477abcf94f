package storage

import (
	"fmt"
	"reflect"
)

// sliceAppender decodes documents one at a time into a caller-provided
// *[]T without the store knowing T.
type sliceAppender struct {
	slice reflect.Value
	elem  reflect.Value
}

func newSliceAppender(dst interface{}) (*sliceAppender, error) {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Slice {
		return nil, fmt.Errorf("storage: dst must be a pointer to a slice, got %T", dst)
	}
	slice := rv.Elem()
	slice.Set(reflect.MakeSlice(slice.Type(), 0, 0))
	return &sliceAppender{slice: slice}, nil
}

// next returns a pointer to a fresh element to decode into.
func (a *sliceAppender) next() interface{} {
	a.elem = reflect.New(a.slice.Type().Elem())
	return a.elem.Interface()
}

func (a *sliceAppender) commit() {
	a.slice.Set(reflect.Append(a.slice, a.elem.Elem()))
}
