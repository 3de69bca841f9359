package remote

import (
	"fmt"
	"strings"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/protobuf/types/descriptorpb"
)

// Fields whose name is "handle" or ends in "_handle" carry opaque payload
// references: string ids on the wire, Handle values on this side.
func isHandleField(fd *desc.FieldDescriptor) bool {
	name := fd.GetName()
	return name == "handle" || strings.HasSuffix(name, "_handle")
}

// valueToProto converts a plain Go value to the representation the dynamic
// message field expects. A nil result with nil error means "leave the field
// at its default".
func valueToProto(v any, fd *desc.FieldDescriptor) (any, error) {
	if v == nil {
		return nil, nil
	}

	if fd.IsRepeated() {
		items, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("field %s is repeated, expected []any, got %T", fd.GetName(), v)
		}
		out := make([]any, 0, len(items))
		for _, item := range items {
			converted, err := singleValueToProto(item, fd)
			if err != nil {
				return nil, err
			}
			out = append(out, converted)
		}
		return out, nil
	}

	return singleValueToProto(v, fd)
}

func singleValueToProto(v any, fd *desc.FieldDescriptor) (any, error) {
	if h, ok := v.(Handle); ok {
		if fd.GetType() != descriptorpb.FieldDescriptorProto_TYPE_STRING {
			return nil, fmt.Errorf("field %s carries a handle but is not a string field", fd.GetName())
		}
		return h.ID, nil
	}

	switch fd.GetType() {
	case descriptorpb.FieldDescriptorProto_TYPE_INT32, descriptorpb.FieldDescriptorProto_TYPE_SINT32, descriptorpb.FieldDescriptorProto_TYPE_SFIXED32:
		if i, ok := asInt64(v); ok {
			return int32(i), nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_INT64, descriptorpb.FieldDescriptorProto_TYPE_SINT64, descriptorpb.FieldDescriptorProto_TYPE_SFIXED64:
		if i, ok := asInt64(v); ok {
			return i, nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_UINT32, descriptorpb.FieldDescriptorProto_TYPE_FIXED32:
		if i, ok := asInt64(v); ok {
			return uint32(i), nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_UINT64, descriptorpb.FieldDescriptorProto_TYPE_FIXED64:
		if i, ok := asInt64(v); ok {
			return uint64(i), nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_FLOAT:
		if f, ok := v.(float64); ok {
			return float32(f), nil
		}
		if f, ok := v.(float32); ok {
			return f, nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_DOUBLE:
		if f, ok := v.(float64); ok {
			return f, nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_BOOL:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_STRING:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_BYTES:
		if b, ok := v.([]byte); ok {
			return b, nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_MESSAGE:
		fields, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %s is a message, expected map[string]any, got %T", fd.GetName(), v)
		}
		msg := dynamic.NewMessage(fd.GetMessageType())
		for name, val := range fields {
			nested := fd.GetMessageType().FindFieldByName(name)
			if nested == nil {
				continue // unknown fields are dropped, as the remote side would
			}
			converted, err := valueToProto(val, nested)
			if err != nil {
				return nil, err
			}
			if converted != nil {
				msg.SetField(nested, converted)
			}
		}
		return msg, nil
	}
	return nil, fmt.Errorf("cannot convert %T to proto field %s (%v)", v, fd.GetName(), fd.GetType())
}

func asInt64(v any) (int64, bool) {
	switch i := v.(type) {
	case int:
		return int64(i), true
	case int32:
		return int64(i), true
	case int64:
		return i, true
	}
	return 0, false
}

// messageToValue converts a response message to a plain Go value: the
// single field's value when the message has exactly one field, otherwise a
// map of field name to value.
func messageToValue(msg *dynamic.Message) any {
	fields := msg.GetMessageDescriptor().GetFields()
	if len(fields) == 1 {
		return protoToValue(msg.GetField(fields[0]), fields[0])
	}

	out := make(map[string]any, len(fields))
	for _, fd := range fields {
		out[fd.GetName()] = protoToValue(msg.GetField(fd), fd)
	}
	return out
}

func protoToValue(v any, fd *desc.FieldDescriptor) any {
	if v == nil {
		return nil
	}

	if fd.IsRepeated() {
		items, ok := v.([]any)
		if !ok {
			return []any{}
		}
		out := make([]any, 0, len(items))
		for _, item := range items {
			out = append(out, singleProtoToValue(item, fd))
		}
		return out
	}

	return singleProtoToValue(v, fd)
}

func singleProtoToValue(v any, fd *desc.FieldDescriptor) any {
	if isHandleField(fd) {
		if s, ok := v.(string); ok {
			return Handle{ID: s}
		}
	}

	switch val := v.(type) {
	case int32:
		return int64(val)
	case int64:
		return val
	case uint32:
		return int64(val)
	case uint64:
		return int64(val)
	case float32:
		return float64(val)
	case float64:
		return val
	case bool:
		return val
	case string:
		return val
	case []byte:
		return val
	case *dynamic.Message:
		return messageToValue(val)
	case int:
		return int64(val)
	}
	return nil
}
