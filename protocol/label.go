package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/larsvanarragon/axini-matrix-skeleton/errors"
)

// Sort classifies the direction of a label relative to the SUT.
type Sort string

const (
	// SortStimulus marks a label the broker offers to the SUT.
	// Examples: open, close, lock, unlock
	SortStimulus Sort = "stimulus"

	// SortResponse marks a label the SUT produced and the adapter
	// forwards to the broker.
	// Examples: opened, closed, invalid_passcode
	SortResponse Sort = "response"
)

// String returns the string representation of the Sort.
func (s Sort) String() string {
	return string(s)
}

// IsValid checks if the Sort is one of the defined constants.
func (s Sort) IsValid() bool {
	switch s {
	case SortStimulus, SortResponse:
		return true
	}
	return false
}

// MarshalJSON implements json.Marshaler to ensure Sort serializes as a string.
func (s Sort) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements json.Unmarshaler to deserialize Sort from string.
func (s *Sort) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = Sort(str)
	return nil
}

// ValueType declares the type of a parameter or configuration value.
type ValueType string

const (
	// TypeString is a UTF-8 string value.
	TypeString ValueType = "string"

	// TypeInteger is a signed integer value.
	TypeInteger ValueType = "integer"

	// TypeDecimal is a floating point value.
	TypeDecimal ValueType = "decimal"

	// TypeBoolean is a true/false value.
	TypeBoolean ValueType = "boolean"
)

// String returns the string representation of the ValueType.
func (vt ValueType) String() string {
	return string(vt)
}

// IsValid checks if the ValueType is one of the defined constants.
func (vt ValueType) IsValid() bool {
	switch vt {
	case TypeString, TypeInteger, TypeDecimal, TypeBoolean:
		return true
	}
	return false
}

// Parameter is a single named, typed value attached to a label.
// In an announcement catalogue the Value is nil: only the name and type
// declare the label's signature. On a concrete label instance the Value
// carries the actual data.
type Parameter struct {
	Name  string    `json:"name"`
	Type  ValueType `json:"type"`
	Value any       `json:"value,omitempty"`
}

// StringParameter builds a string-typed parameter with a value.
func StringParameter(name, value string) Parameter {
	return Parameter{Name: name, Type: TypeString, Value: value}
}

// IntegerParameter builds an integer-typed parameter with a value.
func IntegerParameter(name string, value int64) Parameter {
	return Parameter{Name: name, Type: TypeInteger, Value: value}
}

// DecimalParameter builds a decimal-typed parameter with a value.
func DecimalParameter(name string, value float64) Parameter {
	return Parameter{Name: name, Type: TypeDecimal, Value: value}
}

// BooleanParameter builds a boolean-typed parameter with a value.
func BooleanParameter(name string, value bool) Parameter {
	return Parameter{Name: name, Type: TypeBoolean, Value: value}
}

// StringValue returns the parameter value as a string.
func (p Parameter) StringValue() (string, error) {
	s, ok := p.Value.(string)
	if !ok {
		return "", errors.WrapInvalid(
			fmt.Errorf("parameter %s holds %T, not a string", p.Name, p.Value),
			"Parameter", "StringValue", "type mismatch")
	}
	return s, nil
}

// IntegerValue returns the parameter value as an int64. JSON decoding
// produces float64 numbers, so integral floats are accepted as well.
func (p Parameter) IntegerValue() (int64, error) {
	switch v := p.Value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		if v != float64(int64(v)) {
			return 0, errors.WrapInvalid(
				fmt.Errorf("parameter %s holds non-integral number %v", p.Name, v),
				"Parameter", "IntegerValue", "type mismatch")
		}
		return int64(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, errors.WrapInvalid(err, "Parameter", "IntegerValue", "type mismatch")
		}
		return n, nil
	default:
		return 0, errors.WrapInvalid(
			fmt.Errorf("parameter %s holds %T, not an integer", p.Name, p.Value),
			"Parameter", "IntegerValue", "type mismatch")
	}
}

// Validate checks the parameter declaration and, when a value is present,
// that the value matches the declared type.
func (p Parameter) Validate() error {
	if p.Name == "" {
		return errors.WrapInvalid(errors.ErrInvalidMessage, "Parameter", "Validate", "parameter name is empty")
	}
	if !p.Type.IsValid() {
		return errors.WrapInvalid(errors.ErrInvalidMessage, "Parameter", "Validate",
			fmt.Sprintf("parameter %s has unknown type %q", p.Name, p.Type))
	}
	if p.Value == nil {
		return nil
	}

	ok := false
	switch p.Type {
	case TypeString:
		_, ok = p.Value.(string)
	case TypeInteger:
		_, err := p.IntegerValue()
		ok = err == nil
	case TypeDecimal:
		switch p.Value.(type) {
		case float64, float32, int, int64:
			ok = true
		}
	case TypeBoolean:
		_, ok = p.Value.(bool)
	}
	if !ok {
		return errors.WrapInvalid(errors.ErrInvalidMessage, "Parameter", "Validate",
			fmt.Sprintf("parameter %s value %v does not match type %s", p.Name, p.Value, p.Type))
	}
	return nil
}

// Label is the unit of observable behavior exchanged between the broker
// and the SUT: a stimulus offered to the SUT or a response observed from it.
//
// Labels are treated as immutable values. The With* methods return copies,
// the original is never modified.
type Label struct {
	Sort    Sort   `json:"sort"`
	Name    string `json:"name"`
	Channel string `json:"channel"`

	// Parameters are ordered: position is part of the label signature.
	Parameters []Parameter `json:"parameters,omitempty"`

	// Timestamp is nanoseconds since the Unix epoch, stamped the moment
	// the label was observed or confirmed. Zero means unstamped.
	Timestamp int64 `json:"timestamp,omitempty"`

	// PhysicalPayload holds the raw bytes exchanged with the SUT that
	// this label abstracts (base64 on the JSON wire).
	PhysicalPayload []byte `json:"physical_payload,omitempty"`

	// CorrelationID ties a stimulus confirmation back to the broker's
	// original stimulus request.
	CorrelationID string `json:"correlation_id,omitempty"`
}

// NewStimulus builds a stimulus label.
func NewStimulus(name, channel string, params ...Parameter) Label {
	return Label{Sort: SortStimulus, Name: name, Channel: channel, Parameters: params}
}

// NewResponse builds a response label.
func NewResponse(name, channel string, params ...Parameter) Label {
	return Label{Sort: SortResponse, Name: name, Channel: channel, Parameters: params}
}

// IsStimulus returns true if the label is a stimulus.
func (l Label) IsStimulus() bool {
	return l.Sort == SortStimulus
}

// IsResponse returns true if the label is a response.
func (l Label) IsResponse() bool {
	return l.Sort == SortResponse
}

// Parameter returns the named parameter, if present.
func (l Label) Parameter(name string) (Parameter, bool) {
	for _, p := range l.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// WithTimestamp returns a copy of the label stamped with the given
// nanosecond timestamp.
func (l Label) WithTimestamp(ns int64) Label {
	l.Timestamp = ns
	return l
}

// WithPhysicalPayload returns a copy of the label carrying the raw SUT bytes.
func (l Label) WithPhysicalPayload(payload []byte) Label {
	l.PhysicalPayload = payload
	return l
}

// WithCorrelationID returns a copy of the label carrying the correlation ID.
func (l Label) WithCorrelationID(id string) Label {
	l.CorrelationID = id
	return l
}

// String renders the label for logging.
func (l Label) String() string {
	return fmt.Sprintf("%s %s(%s)", l.Sort, l.Name, l.Channel)
}

// Validate checks the label structure.
func (l Label) Validate() error {
	if !l.Sort.IsValid() {
		return errors.WrapInvalid(errors.ErrInvalidMessage, "Label", "Validate",
			fmt.Sprintf("unknown sort %q", l.Sort))
	}
	if l.Name == "" {
		return errors.WrapInvalid(errors.ErrInvalidMessage, "Label", "Validate", "label name is empty")
	}
	if l.Channel == "" {
		return errors.WrapInvalid(errors.ErrInvalidMessage, "Label", "Validate", "label channel is empty")
	}
	if l.Timestamp < 0 {
		return errors.WrapInvalid(errors.ErrInvalidMessage, "Label", "Validate",
			fmt.Sprintf("negative timestamp %d", l.Timestamp))
	}
	for _, p := range l.Parameters {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}
