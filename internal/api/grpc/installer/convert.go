package installer

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Encode converts a JSON-serializable value into a Struct message.
func Encode(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}

	var fields map[string]any
	if err = json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}

	message, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}

	return message, nil
}

// Decode fills v from a Struct message using the JSON field names of v.
func Decode(message *structpb.Struct, v any) error {
	if message == nil {
		message = new(structpb.Struct)
	}

	data, err := protojson.Marshal(message)
	if err != nil {
		return fmt.Errorf("decode message: %w", err)
	}

	if err = json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}

	return nil
}
