package entity

import (
	"fmt"

	"github.com/cmsweb/cmaclient/client/internal/value"
)

// Record is one API record: its sys block plus the domain payload.
type Record[P any] struct {
	Sys  Sys
	Data P

	// doc is a private copy of the document the record was decoded from.
	// Keys that Sys or the payload type do not model are taken from it
	// when the record is encoded again.
	doc *value.Object
}

// Codec converts between a record document and its payload type.
type Codec[P any] interface {
	Decode(obj *value.Object) (P, error)
	Encode(p P) (*value.Object, error)
}

// JSONCodec maps a payload struct through its JSON tags. The sys key is
// ignored unless P declares it.
type JSONCodec[P any] struct{}

// Decode implements Codec.
func (JSONCodec[P]) Decode(obj *value.Object) (P, error) {
	var p P
	err := value.DecodeInto(obj, &p)
	return p, err
}

// Encode implements Codec.
func (JSONCodec[P]) Encode(p P) (*value.Object, error) {
	v, err := value.FromAny(p)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(*value.Object)
	if !ok {
		return nil, fmt.Errorf("entity: payload encodes to %T, want object", v)
	}
	return obj, nil
}

// NodeCodec keeps the parsed document itself as the payload. Link patches
// applied to the document after wrapping stay visible through the entity.
type NodeCodec struct{}

// Decode implements Codec.
func (NodeCodec) Decode(obj *value.Object) (*value.Object, error) {
	return obj, nil
}

// Encode implements Codec.
func (NodeCodec) Encode(obj *value.Object) (*value.Object, error) {
	if obj == nil {
		return value.NewObject(), nil
	}
	return obj.Clone(), nil
}

// decodeRecord splits a record document into sys and payload.
func decodeRecord[P any](codec Codec[P], obj *value.Object) (*Record[P], error) {
	rec := &Record[P]{doc: obj.DeepClone()}
	if sys, ok := obj.Get("sys"); ok {
		if err := value.DecodeInto(sys, &rec.Sys); err != nil {
			return nil, fmt.Errorf("entity: decode sys: %w", err)
		}
	}
	data, err := codec.Decode(obj)
	if err != nil {
		return nil, fmt.Errorf("entity: decode %s payload: %w", rec.Sys.Type, err)
	}
	rec.Data = data
	return rec, nil
}

// EncodeRecord joins sys and payload into one document with sys first.
// Keys of the decoded document that the typed views do not model are kept.
func EncodeRecord[P any](codec Codec[P], rec *Record[P]) (*value.Object, error) {
	body, err := codec.Encode(rec.Data)
	if err != nil {
		return nil, err
	}
	sys, err := value.FromAny(rec.Sys)
	if err != nil {
		return nil, err
	}
	if rec.doc != nil {
		if body, sys, err = keepUnknown(codec, rec.doc, body, sys); err != nil {
			return nil, err
		}
	}
	out := value.NewObject()
	out.Set("sys", sys)
	for _, k := range body.Keys() {
		if k == "sys" {
			continue
		}
		v, _ := body.Get(k)
		out.Set(k, v)
	}
	return out, nil
}

// keepUnknown merges the unmodelled parts of doc into body and sys.
func keepUnknown[P any](codec Codec[P], doc, body *value.Object, sys value.Value) (*value.Object, value.Value, error) {
	view, err := codec.Decode(doc)
	if err != nil {
		return nil, nil, err
	}
	known, err := codec.Encode(view)
	if err != nil {
		return nil, nil, err
	}
	body = value.KeepUnknown(doc, known, body).(*value.Object)

	rawSys, ok := doc.Get("sys")
	if !ok {
		return body, sys, nil
	}
	var s Sys
	if err := value.DecodeInto(rawSys, &s); err != nil {
		return nil, nil, err
	}
	knownSys, err := value.FromAny(s)
	if err != nil {
		return nil, nil, err
	}
	return body, value.KeepUnknown(rawSys, knownSys, sys), nil
}
