package eduapi

import (
	"encoding/json"
	"errors"

	"github.com/buger/jsonparser"
)

// validationPayload is the field-validation failure body:
//
//	{ "type": string, "title": string, "status": number,
//	  "errors": { field: [string, ...] }, "traceId"?: string }
type validationPayload struct {
	Type    string
	Title   string
	Status  int
	Fields  []string
	Errors  map[string][]string
	TraceID string
}

// problemPayload is the generic problem-details body:
//
//	{ "title": string, "status": number, "detail": string, "instance": string }
type problemPayload struct {
	Title    string
	Status   int
	Detail   string
	Instance string
}

// MapFailure converts any failure into a *DomainError or *ServerError.
// It never panics and never returns nil. Errors that are already mapped
// are returned unchanged.
func MapFailure(raw error) error {
	if raw == nil {
		return NewServerError(MessageUnexpected, nil, nil)
	}

	var mapped mappedError
	if errors.As(raw, &mapped) {
		return mapped
	}

	var respErr *ResponseError
	if errors.As(raw, &respErr) && respErr.Response != nil {
		return mapResponseFailure(respErr, raw)
	}

	var transportErr *TransportError
	if errors.As(raw, &transportErr) {
		return NewServerError(MessageNetworkError, nil, raw)
	}

	return NewServerError(messageOr(raw), nil, raw)
}

// AsAppError returns the AppError core of a mapped error.
func AsAppError(err error) (*AppError, bool) {
	var mapped mappedError
	if errors.As(err, &mapped) {
		return mapped.appError(), true
	}
	return nil, false
}

func mapResponseFailure(respErr *ResponseError, raw error) error {
	res := respErr.Response

	if fields, ok := topLevelFields(res.Data); ok {
		if v, ok := parseValidationPayload(fields); ok {
			ctx := &ErrorContext{StatusCode: res.Status, Path: res.URL()}
			de := NewDomainError(v.Fields, v.Errors, ctx, raw)
			if de.Message == "" {
				de.Message = v.Title
			}
			return de
		}

		if p, ok := parseProblemPayload(fields); ok {
			msg := p.Detail
			if msg == "" {
				msg = p.Title
			}
			return NewServerError(msg, &ErrorContext{StatusCode: p.Status, Path: p.Instance}, raw)
		}
	}

	var ctx *ErrorContext
	if res.Status != 0 {
		ctx = &ErrorContext{StatusCode: res.Status}
	}
	return NewServerError(messageOr(raw), ctx, raw)
}

func messageOr(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return MessageUnexpected
}

// jsonField is a raw top-level member of a payload.
type jsonField struct {
	value    []byte
	dataType jsonparser.ValueType
}

// topLevelFields indexes the members of a JSON object. It fails for
// anything that is not a complete, valid object. A repeated key keeps its
// last value.
func topLevelFields(data []byte) (map[string]jsonField, bool) {
	if !json.Valid(data) {
		return nil, false
	}
	fields := make(map[string]jsonField)
	err := jsonparser.ObjectEach(data, func(key, value []byte, dt jsonparser.ValueType, _ int) error {
		name, err := jsonparser.ParseString(key)
		if err != nil {
			return err
		}
		fields[name] = jsonField{value: value, dataType: dt}
		return nil
	})
	if err != nil {
		return nil, false
	}
	return fields, true
}

func parseValidationPayload(fields map[string]jsonField) (validationPayload, bool) {
	var v validationPayload
	var ok bool

	if v.Type, ok = stringField(fields, "type"); !ok {
		return v, false
	}
	if v.Title, ok = stringField(fields, "title"); !ok {
		return v, false
	}
	if v.Status, ok = numberField(fields, "status"); !ok {
		return v, false
	}

	errs, ok := fields["errors"]
	if !ok || errs.dataType != jsonparser.Object {
		return v, false
	}

	v.Errors = make(map[string][]string)
	v.Fields = []string{}
	err := jsonparser.ObjectEach(errs.value, func(key, value []byte, dt jsonparser.ValueType, _ int) error {
		field, err := jsonparser.ParseString(key)
		if err != nil {
			return err
		}
		messages, ok := stringArray(value, dt)
		if !ok {
			return errNotStringArray
		}
		if _, seen := v.Errors[field]; !seen {
			v.Fields = append(v.Fields, field)
		}
		v.Errors[field] = messages
		return nil
	})
	if err != nil {
		return v, false
	}

	v.TraceID, _ = stringField(fields, "traceId")
	return v, true
}

func parseProblemPayload(fields map[string]jsonField) (problemPayload, bool) {
	var p problemPayload
	var ok bool

	if p.Title, ok = stringField(fields, "title"); !ok {
		return p, false
	}
	if p.Status, ok = numberField(fields, "status"); !ok {
		return p, false
	}
	if p.Detail, ok = stringField(fields, "detail"); !ok {
		return p, false
	}
	if p.Instance, ok = stringField(fields, "instance"); !ok {
		return p, false
	}
	return p, true
}

var errNotStringArray = errors.New("value is not an array of strings")

func stringField(fields map[string]jsonField, key string) (string, bool) {
	f, ok := fields[key]
	if !ok || f.dataType != jsonparser.String {
		return "", false
	}
	s, err := jsonparser.ParseString(f.value)
	if err != nil {
		return "", false
	}
	return s, true
}

func numberField(fields map[string]jsonField, key string) (int, bool) {
	f, ok := fields[key]
	if !ok || f.dataType != jsonparser.Number {
		return 0, false
	}
	n, err := jsonparser.ParseFloat(f.value)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

func stringArray(value []byte, dataType jsonparser.ValueType) ([]string, bool) {
	if dataType != jsonparser.Array {
		return nil, false
	}
	out := []string{}
	valid := true
	_, err := jsonparser.ArrayEach(value, func(item []byte, dt jsonparser.ValueType, _ int, err error) {
		if err != nil || dt != jsonparser.String {
			valid = false
			return
		}
		s, perr := jsonparser.ParseString(item)
		if perr != nil {
			valid = false
			return
		}
		out = append(out, s)
	})
	if err != nil || !valid {
		return nil, false
	}
	return out, true
}
