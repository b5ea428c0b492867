// Package jsonapi renders the in-memory task table as the JSON documents
// served under /api/tasks. It is a pure projection: nothing here mutates
// internal/task types, and nothing here is used to parse config.
package jsonapi

import (
	"encoding/json"

	"github.com/headexplodes/henchman/internal/task"
)

// Task is the wire representation of a task.Def.
type Task struct {
	Name        string      `json:"name"`
	Description *string     `json:"description,omitempty"`
	Method      []string    `json:"method"`
	Parameters  []Parameter `json:"parameters"`
}

// Parameter is the wire representation of a task.Parameter.
type Parameter struct {
	Name     string          `json:"name"`
	Required bool            `json:"required"`
	Default  json.RawMessage `json:"default,omitempty"`
	Type     string          `json:"type"`
	Enum     []string        `json:"enum,omitempty"`
}

// FromTask converts a task.Def into its wire representation.
func FromTask(def task.Def) Task {
	var description *string
	if def.HasDescription {
		d := def.Description
		description = &d
	}

	return Task{
		Name:        def.Name,
		Description: description,
		Method:      methodList(def.Methods),
		Parameters:  parameterList(def.Parameters),
	}
}

func methodList(methods map[task.Method]bool) []string {
	result := make([]string, 0, len(methods))
	// GET before POST, for deterministic output regardless of map order.
	if methods[task.MethodGET] {
		result = append(result, string(task.MethodGET))
	}
	if methods[task.MethodPOST] {
		result = append(result, string(task.MethodPOST))
	}
	return result
}

func parameterList(params []task.Parameter) []Parameter {
	result := make([]Parameter, len(params))
	for i, p := range params {
		result[i] = Parameter{
			Name:     p.Name,
			Required: p.Required,
			Default:  defaultValue(p.Default),
			Type:     string(p.Type),
			Enum:     p.Enum,
		}
	}
	return result
}

// defaultValue renders a parameter default as untagged JSON: a bare
// string, number, or boolean, matching the source format's untagged enum.
func defaultValue(v *task.ParameterValue) json.RawMessage {
	if v == nil {
		return nil
	}

	switch v.Type {
	case task.TypeString:
		b, _ := json.Marshal(v.Str)
		return b
	case task.TypeNumber:
		// Marshalled directly from Rendered() rather than through
		// encoding/json's float formatting, so the JSON default is the
		// same text the server fills in for an unset parameter (an
		// integer default is "3").
		return json.RawMessage(v.Rendered())
	case task.TypeBoolean:
		if v.Bool {
			return json.RawMessage("true")
		}
		return json.RawMessage("false")
	default:
		return nil
	}
}
