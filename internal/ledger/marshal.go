package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/bosync/internal/ir"
)

// marshalFields serializes an object body. LangList values keep their
// double-list wire form.
func marshalFields(f ir.Fields) (string, error) {
	if f == nil {
		f = ir.Fields{}
	}
	data, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}
	return string(data), nil
}

func unmarshalFields(s string) (ir.Fields, error) {
	var f ir.Fields
	if err := json.Unmarshal([]byte(s), &f); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	if f == nil {
		f = ir.Fields{}
	}
	return f, nil
}

func marshalOperations(ops []ir.Operation) (string, error) {
	if ops == nil {
		ops = []ir.Operation{}
	}
	data, err := json.Marshal(ops)
	if err != nil {
		return "", fmt.Errorf("marshal operations: %w", err)
	}
	return string(data), nil
}

func unmarshalOperations(s string) ([]ir.Operation, error) {
	var ops []ir.Operation
	if err := json.Unmarshal([]byte(s), &ops); err != nil {
		return nil, fmt.Errorf("unmarshal operations: %w", err)
	}
	return ops, nil
}

func marshalIDs(ids []ir.ObjectID) (string, error) {
	if ids == nil {
		ids = []ir.ObjectID{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("marshal ids: %w", err)
	}
	return string(data), nil
}

func unmarshalIDs(s string) ([]ir.ObjectID, error) {
	var ids []ir.ObjectID
	if err := json.Unmarshal([]byte(s), &ids); err != nil {
		return nil, fmt.Errorf("unmarshal ids: %w", err)
	}
	return ids, nil
}
