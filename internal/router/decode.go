package router

import (
	"context"
	"fmt"
	"reflect"

	"github.com/kisumi/kisumi/internal/packets"
	"github.com/kisumi/kisumi/internal/session"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	sessionType = reflect.TypeOf((*session.Session)(nil))
	readerType  = reflect.TypeOf((*packets.Reader)(nil))
	packetsType = reflect.TypeOf([][]byte(nil))
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

type argDecoder func(ctx context.Context, s *session.Session, r *packets.Reader) (reflect.Value, error)

// valueDecoder reads one wire value of a fixed type.
type valueDecoder func(r *packets.Reader) (reflect.Value, error)

func decoderFor(t reflect.Type) (argDecoder, error) {
	switch t {
	case contextType:
		return func(ctx context.Context, _ *session.Session, _ *packets.Reader) (reflect.Value, error) {
			return reflect.ValueOf(&ctx).Elem(), nil
		}, nil
	case sessionType:
		return func(_ context.Context, s *session.Session, _ *packets.Reader) (reflect.Value, error) {
			return reflect.ValueOf(s), nil
		}, nil
	case readerType:
		return func(_ context.Context, _ *session.Session, r *packets.Reader) (reflect.Value, error) {
			return reflect.ValueOf(r), nil
		}, nil
	}

	var decode valueDecoder
	if t.Kind() == reflect.Slice {
		elem, err := valueDecoderFor(t.Elem())
		if err != nil {
			return nil, err
		}
		decode = sliceDecoder(t, elem)
	} else {
		var err error
		if decode, err = valueDecoderFor(t); err != nil {
			return nil, err
		}
	}
	return func(_ context.Context, _ *session.Session, r *packets.Reader) (reflect.Value, error) {
		return decode(r)
	}, nil
}

// valueDecoderFor supports every kind with a wire representation, including
// named types such as data.Mode, whose values are converted after reading.
func valueDecoderFor(t reflect.Type) (valueDecoder, error) {
	var read func(r *packets.Reader) (interface{}, error)
	switch t.Kind() {
	case reflect.Bool:
		read = func(r *packets.Reader) (interface{}, error) {
			v, err := r.ReadU8()
			return v != 0, err
		}
	case reflect.Uint8:
		read = func(r *packets.Reader) (interface{}, error) { return r.ReadU8() }
	case reflect.Int8:
		read = func(r *packets.Reader) (interface{}, error) { return r.ReadI8() }
	case reflect.Uint16:
		read = func(r *packets.Reader) (interface{}, error) { return r.ReadU16() }
	case reflect.Int16:
		read = func(r *packets.Reader) (interface{}, error) { return r.ReadI16() }
	case reflect.Uint32:
		read = func(r *packets.Reader) (interface{}, error) { return r.ReadU32() }
	case reflect.Int32:
		read = func(r *packets.Reader) (interface{}, error) { return r.ReadI32() }
	case reflect.Uint64:
		read = func(r *packets.Reader) (interface{}, error) { return r.ReadU64() }
	case reflect.Int64:
		read = func(r *packets.Reader) (interface{}, error) { return r.ReadI64() }
	case reflect.Float32:
		read = func(r *packets.Reader) (interface{}, error) { return r.ReadF32() }
	case reflect.String:
		read = func(r *packets.Reader) (interface{}, error) { return r.ReadString() }
	default:
		return nil, fmt.Errorf("type %s has no wire representation", t)
	}

	return func(r *packets.Reader) (reflect.Value, error) {
		v, err := read(r)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(v).Convert(t), nil
	}, nil
}

// sliceDecoder reads a u16 count followed by that many elements.
func sliceDecoder(t reflect.Type, elem valueDecoder) valueDecoder {
	return func(r *packets.Reader) (reflect.Value, error) {
		count, err := r.ReadU16()
		if err != nil {
			return reflect.Value{}, err
		}
		if r.MaxArrayLength > 0 && int(count) > r.MaxArrayLength {
			return reflect.Value{}, packets.ErrLengthLimit
		}

		out := reflect.MakeSlice(t, int(count), int(count))
		for i := 0; i < int(count); i++ {
			v, err := elem(r)
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(v)
		}
		return out, nil
	}
}
