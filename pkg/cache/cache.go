package cache

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service defines cache operations interface.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	Name() string
	Close() error
}

// assign copies value into the pointer dest. Values are stored as given, so
// the caller must read them back into the same type it wrote.
func assign(dest interface{}, value interface{}) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("cache: dest must be a non-nil pointer, got %T", dest)
	}
	vv := reflect.ValueOf(value)
	if !vv.IsValid() {
		dv.Elem().Set(reflect.Zero(dv.Elem().Type()))
		return nil
	}
	if vv.Type().AssignableTo(dv.Elem().Type()) {
		dv.Elem().Set(vv)
		return nil
	}
	// stored a pointer, reading into its element type
	if vv.Kind() == reflect.Pointer && !vv.IsNil() && vv.Elem().Type().AssignableTo(dv.Elem().Type()) {
		dv.Elem().Set(vv.Elem())
		return nil
	}
	return fmt.Errorf("cache: cannot assign %T to %T", value, dest)
}

// deref returns the value a dest pointer points to.
func deref(dest interface{}) interface{} {
	dv := reflect.ValueOf(dest)
	if dv.Kind() == reflect.Pointer && !dv.IsNil() {
		return dv.Elem().Interface()
	}
	return dest
}
