package remote

import (
	"strings"
	"testing"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/builder"
)

// buildTestMessage constructs the descriptor the conversion tests run
// against: scalars, an enum, a repeated field, and a nested message.
func buildTestMessage(t *testing.T) *desc.MessageDescriptor {
	t.Helper()

	color := builder.NewEnum("Color").
		AddValue(builder.NewEnumValue("RED").SetNumber(0)).
		AddValue(builder.NewEnumValue("GREEN").SetNumber(1)).
		AddValue(builder.NewEnumValue("BLUE").SetNumber(2))

	address := builder.NewMessage("Address").
		AddField(builder.NewField("city", builder.FieldTypeString())).
		AddField(builder.NewField("zip", builder.FieldTypeInt32()))

	msg := builder.NewMessage("Person").
		AddField(builder.NewField("name", builder.FieldTypeString())).
		AddField(builder.NewField("age", builder.FieldTypeInt64())).
		AddField(builder.NewField("active", builder.FieldTypeBool())).
		AddField(builder.NewField("score", builder.FieldTypeDouble())).
		AddField(builder.NewField("avatar", builder.FieldTypeBytes())).
		AddField(builder.NewField("color", builder.FieldTypeEnum(color))).
		AddField(builder.NewField("tags", builder.FieldTypeString()).SetRepeated()).
		AddField(builder.NewField("address", builder.FieldTypeMessage(address)))

	md, err := msg.Build()
	if err != nil {
		t.Fatalf("building test descriptor: %v", err)
	}
	return md
}

// ---------------------------------------------------------------------------
// mapToProto
// ---------------------------------------------------------------------------

func TestMapToProtoScalars(t *testing.T) {
	md := buildTestMessage(t)

	msg, err := mapToProto(map[string]any{
		"name":   "ada",
		"age":    float64(41), // JSON decoding produces float64
		"active": true,
		"score":  99.5,
		"avatar": "png-bytes",
	}, md)
	if err != nil {
		t.Fatalf("mapToProto failed: %v", err)
	}

	if got := msg.GetFieldByName("name"); got != "ada" {
		t.Errorf("name = %v, want ada", got)
	}
	if got := msg.GetFieldByName("age"); got != int64(41) {
		t.Errorf("age = %v (%T), want int64 41", got, got)
	}
	if got := msg.GetFieldByName("active"); got != true {
		t.Errorf("active = %v, want true", got)
	}
	if got := msg.GetFieldByName("score"); got != 99.5 {
		t.Errorf("score = %v, want 99.5", got)
	}
	if got := msg.GetFieldByName("avatar"); string(got.([]byte)) != "png-bytes" {
		t.Errorf("avatar = %v", got)
	}
}

func TestMapToProtoEnumByName(t *testing.T) {
	md := buildTestMessage(t)

	msg, err := mapToProto(map[string]any{"color": "GREEN"}, md)
	if err != nil {
		t.Fatalf("mapToProto failed: %v", err)
	}
	if got := msg.GetFieldByName("color"); got != int32(1) {
		t.Errorf("color = %v, want 1", got)
	}
}

func TestMapToProtoEnumByNumber(t *testing.T) {
	md := buildTestMessage(t)

	msg, err := mapToProto(map[string]any{"color": float64(2)}, md)
	if err != nil {
		t.Fatalf("mapToProto failed: %v", err)
	}
	if got := msg.GetFieldByName("color"); got != int32(2) {
		t.Errorf("color = %v, want 2", got)
	}
}

func TestMapToProtoUnknownEnumValue(t *testing.T) {
	md := buildTestMessage(t)

	_, err := mapToProto(map[string]any{"color": "MAUVE"}, md)
	if err == nil {
		t.Fatal("expected error for unknown enum value name")
	}
}

func TestMapToProtoRepeated(t *testing.T) {
	md := buildTestMessage(t)

	msg, err := mapToProto(map[string]any{
		"tags": []any{"a", "b", "c"},
	}, md)
	if err != nil {
		t.Fatalf("mapToProto failed: %v", err)
	}

	field := md.FindFieldByName("tags")
	got := msg.GetField(field).([]any)
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("tags = %v", got)
	}
}

func TestMapToProtoRepeatedWantsList(t *testing.T) {
	md := buildTestMessage(t)

	_, err := mapToProto(map[string]any{"tags": "not-a-list"}, md)
	if err == nil {
		t.Fatal("expected error for scalar in repeated field")
	}
}

func TestMapToProtoNested(t *testing.T) {
	md := buildTestMessage(t)

	msg, err := mapToProto(map[string]any{
		"address": map[string]any{"city": "Oslo", "zip": float64(1234)},
	}, md)
	if err != nil {
		t.Fatalf("mapToProto failed: %v", err)
	}

	nested, err := protoToMap(msg)
	if err != nil {
		t.Fatalf("protoToMap failed: %v", err)
	}
	addr, ok := nested["address"].(map[string]any)
	if !ok {
		t.Fatalf("address = %T, want map", nested["address"])
	}
	if addr["city"] != "Oslo" {
		t.Errorf("city = %v, want Oslo", addr["city"])
	}
	if addr["zip"] != int32(1234) {
		t.Errorf("zip = %v (%T), want int32 1234", addr["zip"], addr["zip"])
	}
}

func TestMapToProtoUnknownField(t *testing.T) {
	md := buildTestMessage(t)

	_, err := mapToProto(map[string]any{"nickname": "al"}, md)
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
	if !strings.Contains(err.Error(), "nickname") {
		t.Errorf("error %q should name the bad field", err)
	}
}

func TestMapToProtoTypeMismatch(t *testing.T) {
	md := buildTestMessage(t)

	_, err := mapToProto(map[string]any{"name": 42}, md)
	if err == nil {
		t.Fatal("expected error for number in string field")
	}
}

// ---------------------------------------------------------------------------
// protoToMap round trips
// ---------------------------------------------------------------------------

func TestProtoToMapRoundTrip(t *testing.T) {
	md := buildTestMessage(t)

	msg, err := mapToProto(map[string]any{
		"name":   "grace",
		"age":    float64(85),
		"color":  "BLUE",
		"tags":   []any{"x", "y"},
		"avatar": "raw",
	}, md)
	if err != nil {
		t.Fatalf("mapToProto failed: %v", err)
	}

	out, err := protoToMap(msg)
	if err != nil {
		t.Fatalf("protoToMap failed: %v", err)
	}

	if out["name"] != "grace" {
		t.Errorf("name = %v", out["name"])
	}
	if out["age"] != int64(85) {
		t.Errorf("age = %v (%T)", out["age"], out["age"])
	}
	// Enums come back as names, bytes as strings.
	if out["color"] != "BLUE" {
		t.Errorf("color = %v, want BLUE", out["color"])
	}
	if out["avatar"] != "raw" {
		t.Errorf("avatar = %v, want raw", out["avatar"])
	}
	tags, ok := out["tags"].([]any)
	if !ok || len(tags) != 2 || tags[1] != "y" {
		t.Errorf("tags = %v", out["tags"])
	}
	if _, ok := out["address"]; ok {
		t.Error("unset message field should be omitted")
	}
}

// ---------------------------------------------------------------------------
// toFloat
// ---------------------------------------------------------------------------

func TestToFloat(t *testing.T) {
	for _, val := range []any{float64(7), float32(7), int(7), int32(7), int64(7), uint32(7), uint64(7)} {
		n, err := toFloat(val)
		if err != nil {
			t.Errorf("toFloat(%T) failed: %v", val, err)
		}
		if n != 7 {
			t.Errorf("toFloat(%T) = %v, want 7", val, n)
		}
	}

	if _, err := toFloat("7"); err == nil {
		t.Error("expected error for string input")
	}
}

// ---------------------------------------------------------------------------
// resolveMethod format validation
// ---------------------------------------------------------------------------

func TestResolveMethodInvalidFormat(t *testing.T) {
	// Format validation happens before the reflection client is touched,
	// so a zero-value Client is enough.
	c := &Client{}

	for _, name := range []string{"no-slash-here", "a/b/c", ""} {
		if _, err := c.resolveMethod(name); err == nil {
			t.Errorf("resolveMethod(%q) should fail", name)
		}
	}
}
