package plan

import (
	"fmt"
)

// ParamKind — тип параметра плана.
type ParamKind string

const (
	ParamString ParamKind = "string"
	ParamFloat  ParamKind = "float"
	ParamInt    ParamKind = "int"
	ParamBool   ParamKind = "bool"
)

// ParamSpec — описание одного параметра плана.
//
// Схема параметров валидируется при запуске плана и отдаётся наружу
// для отображения (list plans).
type ParamSpec struct {
	// Name — имя параметра.
	Name string `json:"name"`

	// Kind — тип значения.
	Kind ParamKind `json:"kind"`

	// Required — параметр обязателен.
	Required bool `json:"required"`

	// Default — значение по умолчанию для необязательного параметра.
	Default any `json:"default,omitempty"`

	// Description — описание для выдачи наружу.
	Description string `json:"description,omitempty"`
}

// decodeParams валидирует raw по схеме и возвращает полный набор
// параметров с применёнными defaults.
//
// Числа принимаются в любом численном представлении (JSON decoding
// даёт float64) и приводятся к виду, который ожидают аксессоры Run.
func decodeParams(specs []ParamSpec, raw map[string]any) (map[string]any, error) {
	params := make(map[string]any, len(specs))

	known := make(map[string]bool, len(specs))
	for _, spec := range specs {
		known[spec.Name] = true

		v, present := raw[spec.Name]
		if !present {
			if spec.Required {
				return nil, fmt.Errorf("%w: missing required param %q", ErrInvalidParams, spec.Name)
			}
			if spec.Default != nil {
				params[spec.Name] = spec.Default
			}
			continue
		}

		coerced, err := coerceParam(spec.Kind, v)
		if err != nil {
			return nil, fmt.Errorf("%w: param %q: %v", ErrInvalidParams, spec.Name, err)
		}
		params[spec.Name] = coerced
	}

	for name := range raw {
		if !known[name] {
			return nil, fmt.Errorf("%w: unknown param %q", ErrInvalidParams, name)
		}
	}

	return params, nil
}

// coerceParam приводит значение к типу Kind.
func coerceParam(kind ParamKind, v any) (any, error) {
	switch kind {
	case ParamString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return s, nil

	case ParamFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
		return nil, fmt.Errorf("expected number, got %T", v)

	case ParamInt:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case float64:
			if n != float64(int(n)) {
				return nil, fmt.Errorf("expected integer, got %v", n)
			}
			return int(n), nil
		}
		return nil, fmt.Errorf("expected integer, got %T", v)

	case ParamBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", v)
		}
		return b, nil
	}

	return nil, fmt.Errorf("unknown param kind %q", kind)
}
