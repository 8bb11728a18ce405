package domain

import (
	"database/sql/driver"

	"github.com/pkg/errors"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONB is a generic JSON object column.
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return "{}", nil
	}
	b, err := json.Marshal(j)
	return string(b), err
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSONB)
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("jsonb: unsupported column type")
	}
	return json.Unmarshal(data, j)
}

// FlowNodeList is the nodes JSON array column on a flow record.
type FlowNodeList []FlowNode

func (l FlowNodeList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *FlowNodeList) Scan(value interface{}) error {
	return scanJSONList(value, l)
}

// FlowEdgeList is the edges JSON array column on a flow record.
type FlowEdgeList []FlowEdge

func (l FlowEdgeList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *FlowEdgeList) Scan(value interface{}) error {
	return scanJSONList(value, l)
}

func scanJSONList(value interface{}, dst interface{}) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("jsonlist: unsupported column type")
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}
