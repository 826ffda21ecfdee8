package journal

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"minyoung-maker/affection"
)

// EncodeEntry marshals an entry as a protobuf Struct.
func EncodeEntry(en Entry) ([]byte, error) {
	at, err := timestampValue(time.UnixMilli(en.AtMs))
	if err != nil {
		return nil, err
	}
	fields := map[string]*structpb.Value{
		"seq":  structpb.NewNumberValue(float64(en.Seq)),
		"type": structpb.NewStringValue(en.Type),
		"at":   at,
	}
	if en.Type == EntryRejected {
		fields["op"] = structpb.NewStringValue(string(en.Op))
		fields["error"] = structpb.NewStringValue(en.Error)
	} else {
		ev, err := eventStruct(en.Event)
		if err != nil {
			return nil, err
		}
		fields["event"] = structpb.NewStructValue(ev)
	}
	return proto.Marshal(&structpb.Struct{Fields: fields})
}

// EncodeEntryB64 is EncodeEntry for text transports.
func EncodeEntryB64(en Entry) (string, error) {
	data, err := EncodeEntry(en)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func DecodeEntry(data []byte) (Entry, error) {
	var msg structpb.Struct
	if err := proto.Unmarshal(data, &msg); err != nil {
		return Entry{}, fmt.Errorf("decode entry: %w", err)
	}
	f := msg.GetFields()
	en := Entry{
		Seq:   uint64(f["seq"].GetNumberValue()),
		Type:  f["type"].GetStringValue(),
		Op:    Op(f["op"].GetStringValue()),
		Error: f["error"].GetStringValue(),
	}
	if at := f["at"]; at != nil {
		t, err := timestampFrom(at)
		if err != nil {
			return Entry{}, err
		}
		en.AtMs = t.UnixMilli()
	}
	if ev := f["event"].GetStructValue(); ev != nil {
		raw, err := protojson.Marshal(ev)
		if err != nil {
			return Entry{}, fmt.Errorf("decode entry event: %w", err)
		}
		if err := json.Unmarshal(raw, &en.Event); err != nil {
			return Entry{}, fmt.Errorf("decode entry event: %w", err)
		}
	}
	return en, nil
}

func DecodeEntryB64(s string) (Entry, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Entry{}, fmt.Errorf("decode entry base64: %w", err)
	}
	return DecodeEntry(data)
}

func eventStruct(ev affection.Event) (*structpb.Struct, error) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	var out structpb.Struct
	if err := protojson.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return &out, nil
}

// timestampValue stores t in the Timestamp JSON form (RFC 3339).
func timestampValue(t time.Time) (*structpb.Value, error) {
	raw, err := protojson.Marshal(timestamppb.New(t))
	if err != nil {
		return nil, fmt.Errorf("encode timestamp: %w", err)
	}
	var v structpb.Value
	if err := protojson.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("encode timestamp: %w", err)
	}
	return &v, nil
}

func timestampFrom(v *structpb.Value) (time.Time, error) {
	raw, err := protojson.Marshal(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode timestamp: %w", err)
	}
	var ts timestamppb.Timestamp
	if err := protojson.Unmarshal(raw, &ts); err != nil {
		return time.Time{}, fmt.Errorf("decode timestamp: %w", err)
	}
	if err := ts.CheckValid(); err != nil {
		return time.Time{}, fmt.Errorf("decode timestamp: %w", err)
	}
	return ts.AsTime(), nil
}
