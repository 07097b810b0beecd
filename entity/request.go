package entity

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"github.com/jacentio/strata/storage"
)

// requestChecker validates normalized request structs.
var requestChecker = validator.New()

// Request is the normalized operation input.
type Request struct {
	TargetName string            `json:"targetName" validate:"required"`
	Payload    map[string]any    `json:"payload"`
	Actor      string            `json:"actor,omitempty"`
	Persist    *storage.Override `json:"persist,omitempty"`
	Locale     string            `json:"locale,omitempty"`
}

// Normalize extracts a Request from a heterogeneous request object. The
// target name may sit at top level, inside payload, or inside
// payload.data; payload fields may sit beside or under data. The
// returned payload has data and targetName stripped out.
func Normalize(raw map[string]any) (*Request, error) {
	req := &Request{}
	if s, ok := raw["targetName"].(string); ok {
		req.TargetName = s
	}
	if s, ok := raw["actor"].(string); ok {
		req.Actor = s
	}
	if s, ok := raw["locale"].(string); ok {
		req.Locale = s
	}
	if m, ok := raw["persist"].(map[string]any); ok {
		req.Persist = decodeOverride(m)
	}
	if m, ok := raw["payload"].(map[string]any); ok {
		req.Payload = copyMap(m)
	} else {
		req.Payload = map[string]any{}
	}
	return normalizeRequest(req)
}

// normalizeRequest flattens payload.data, pulls the target name out of
// the payload when absent at top level, and checks the request shape.
func normalizeRequest(req *Request) (*Request, error) {
	out := &Request{
		TargetName: req.TargetName,
		Actor:      req.Actor,
		Persist:    req.Persist,
		Locale:     req.Locale,
		Payload:    copyMap(req.Payload),
	}
	if out.Payload == nil {
		out.Payload = map[string]any{}
	}

	if data, ok := out.Payload["data"].(map[string]any); ok {
		for k, v := range data {
			if k == "targetName" {
				continue
			}
			out.Payload[k] = deepCopy(v)
		}
		if out.TargetName == "" {
			if s, ok := data["targetName"].(string); ok {
				out.TargetName = s
			}
		}
	}
	delete(out.Payload, "data")

	if s, ok := out.Payload["targetName"].(string); ok {
		if out.TargetName == "" {
			out.TargetName = s
		}
		delete(out.Payload, "targetName")
	}

	if err := requestChecker.Struct(out); err != nil {
		var fields []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, fieldName(fe.Field()))
			}
		} else {
			fields = append(fields, "request")
		}
		return nil, &ShapeError{Fields: fields}
	}
	return out, nil
}

func fieldName(structField string) string {
	switch structField {
	case "TargetName":
		return "targetName"
	case "Payload":
		return "payload"
	default:
		return structField
	}
}

// decodeOverride maps a loose persist object onto a storage override.
func decodeOverride(m map[string]any) *storage.Override {
	data, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	var o storage.Override
	if err := json.Unmarshal(data, &o); err != nil {
		return nil
	}
	return &o
}

// Response is the standardized operation envelope.
type Response struct {
	Success bool            `json:"success"`
	Action  string          `json:"action"`
	Payload ResponsePayload `json:"payload"`
	Meta    ResponseMeta    `json:"meta"`
}

// ResponsePayload carries the operation's record and metadata.
type ResponsePayload struct {
	TargetName string         `json:"targetName"`
	Record     map[string]any `json:"record,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ResponseMeta describes what persistence happened.
type ResponseMeta struct {
	Persisted   bool   `json:"persisted"`
	StoragePath string `json:"storagePath,omitempty"`
}
