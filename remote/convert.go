package remote

import (
	"fmt"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/protobuf/types/descriptorpb"
)

// mapToProto converts a field map to a dynamic message of the given
// descriptor. Unknown field names are rejected rather than skipped so a
// typo fails loudly.
func mapToProto(fields map[string]any, msgDesc *desc.MessageDescriptor) (*dynamic.Message, error) {
	msg := dynamic.NewMessage(msgDesc)

	for name, val := range fields {
		field := msgDesc.FindFieldByName(name)
		if field == nil {
			return nil, fmt.Errorf("message %s has no field %q", msgDesc.GetFullyQualifiedName(), name)
		}

		if field.IsRepeated() {
			items, ok := val.([]any)
			if !ok {
				return nil, fmt.Errorf("field %s is repeated; want a list, got %T", name, val)
			}
			for _, item := range items {
				pv, err := toProtoField(item, field)
				if err != nil {
					return nil, fmt.Errorf("field %s: %w", name, err)
				}
				if err := msg.TryAddRepeatedField(field, pv); err != nil {
					return nil, fmt.Errorf("field %s: %w", name, err)
				}
			}
			continue
		}

		pv, err := toProtoField(val, field)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		if err := msg.TrySetField(field, pv); err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
	}
	return msg, nil
}

// toProtoField converts one scalar, enum, or nested map value to the
// representation dynamic.Message expects for the field's proto type.
func toProtoField(val any, field *desc.FieldDescriptor) (any, error) {
	switch field.GetType() {
	case descriptorpb.FieldDescriptorProto_TYPE_STRING:
		s, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("want string, got %T", val)
		}
		return s, nil

	case descriptorpb.FieldDescriptorProto_TYPE_BOOL:
		b, ok := val.(bool)
		if !ok {
			return nil, fmt.Errorf("want bool, got %T", val)
		}
		return b, nil

	case descriptorpb.FieldDescriptorProto_TYPE_BYTES:
		s, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("want string for bytes, got %T", val)
		}
		return []byte(s), nil

	case descriptorpb.FieldDescriptorProto_TYPE_INT32,
		descriptorpb.FieldDescriptorProto_TYPE_SINT32,
		descriptorpb.FieldDescriptorProto_TYPE_SFIXED32:
		n, err := toFloat(val)
		if err != nil {
			return nil, err
		}
		return int32(n), nil

	case descriptorpb.FieldDescriptorProto_TYPE_INT64,
		descriptorpb.FieldDescriptorProto_TYPE_SINT64,
		descriptorpb.FieldDescriptorProto_TYPE_SFIXED64:
		n, err := toFloat(val)
		if err != nil {
			return nil, err
		}
		return int64(n), nil

	case descriptorpb.FieldDescriptorProto_TYPE_UINT32,
		descriptorpb.FieldDescriptorProto_TYPE_FIXED32:
		n, err := toFloat(val)
		if err != nil {
			return nil, err
		}
		return uint32(n), nil

	case descriptorpb.FieldDescriptorProto_TYPE_UINT64,
		descriptorpb.FieldDescriptorProto_TYPE_FIXED64:
		n, err := toFloat(val)
		if err != nil {
			return nil, err
		}
		return uint64(n), nil

	case descriptorpb.FieldDescriptorProto_TYPE_FLOAT:
		n, err := toFloat(val)
		if err != nil {
			return nil, err
		}
		return float32(n), nil

	case descriptorpb.FieldDescriptorProto_TYPE_DOUBLE:
		return toFloat(val)

	case descriptorpb.FieldDescriptorProto_TYPE_ENUM:
		switch ev := val.(type) {
		case string:
			enumVal := field.GetEnumType().FindValueByName(ev)
			if enumVal == nil {
				return nil, fmt.Errorf("enum %s has no value %q", field.GetEnumType().GetFullyQualifiedName(), ev)
			}
			return enumVal.GetNumber(), nil
		default:
			n, err := toFloat(val)
			if err != nil {
				return nil, err
			}
			return int32(n), nil
		}

	case descriptorpb.FieldDescriptorProto_TYPE_MESSAGE:
		nested, ok := val.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("want object for message field, got %T", val)
		}
		return mapToProto(nested, field.GetMessageType())
	}

	return nil, fmt.Errorf("unsupported proto type: %v", field.GetType())
}

// toFloat accepts the numeric types JSON decoding and Go callers
// produce.
func toFloat(val any) (float64, error) {
	switch n := val.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("want number, got %T", val)
}

// protoToMap converts a dynamic message to a field map.
func protoToMap(msg *dynamic.Message) (map[string]any, error) {
	out := make(map[string]any)
	for _, field := range msg.GetMessageDescriptor().GetFields() {
		if !msg.HasField(field) && !field.IsRepeated() {
			continue
		}
		val := msg.GetField(field)

		if field.IsRepeated() {
			items, ok := val.([]any)
			if !ok {
				// dynamic returns []interface{} for populated repeated
				// fields and a typed nil otherwise.
				continue
			}
			converted := make([]any, len(items))
			for i, item := range items {
				cv, err := fromProtoField(item, field)
				if err != nil {
					return nil, fmt.Errorf("field %s: %w", field.GetName(), err)
				}
				converted[i] = cv
			}
			out[field.GetName()] = converted
			continue
		}

		cv, err := fromProtoField(val, field)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.GetName(), err)
		}
		out[field.GetName()] = cv
	}
	return out, nil
}

// fromProtoField converts one proto field value to a plain Go value.
func fromProtoField(val any, field *desc.FieldDescriptor) (any, error) {
	switch field.GetType() {
	case descriptorpb.FieldDescriptorProto_TYPE_MESSAGE:
		nested, ok := val.(*dynamic.Message)
		if !ok {
			return nil, fmt.Errorf("want message, got %T", val)
		}
		return protoToMap(nested)

	case descriptorpb.FieldDescriptorProto_TYPE_ENUM:
		num, ok := val.(int32)
		if !ok {
			return nil, fmt.Errorf("want enum number, got %T", val)
		}
		if enumVal := field.GetEnumType().FindValueByNumber(num); enumVal != nil {
			return enumVal.GetName(), nil
		}
		return num, nil

	case descriptorpb.FieldDescriptorProto_TYPE_BYTES:
		b, ok := val.([]byte)
		if !ok {
			return nil, fmt.Errorf("want bytes, got %T", val)
		}
		return string(b), nil
	}

	return val, nil
}
