// Package task holds the in-memory task configuration model: the shape a
// task descriptor takes once loaded and parsed, independent of the TOML
// source format (see internal/taskfile) or the JSON wire format (see
// internal/jsonapi).
package task

import (
	"fmt"
	"strconv"
)

// Method is an HTTP method a task may be invoked with.
type Method string

const (
	MethodGET  Method = "GET"
	MethodPOST Method = "POST"
)

// ParameterType is the declared type of a task parameter's value.
type ParameterType string

const (
	TypeString  ParameterType = "string"
	TypeNumber  ParameterType = "number"
	TypeBoolean ParameterType = "boolean"
)

// ParameterValue is a typed default/resolved parameter value.
//
// Exactly one of the fields is meaningful, selected by Type. IsInt
// distinguishes an integer-valued Number from a fractional one so that
// integer defaults render in plain decimal ("1000000") rather than the
// exponent form shortest float formatting gives ("1e+06") (see Rendered).
type ParameterValue struct {
	Type ParameterType

	Str   string
	Num   float64
	IsInt bool
	Bool  bool
}

// Rendered returns the value's canonical string form, as used both when
// filling an unset parameter's default and when serialising a default to
// JSON in untagged form.
func (v ParameterValue) Rendered() string {
	switch v.Type {
	case TypeString:
		return v.Str
	case TypeNumber:
		if v.IsInt {
			return strconv.FormatInt(int64(v.Num), 10)
		}
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case TypeBoolean:
		if v.Bool {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// Parameter is one declared parameter of a task.
type Parameter struct {
	Name     string
	Required bool
	Type     ParameterType
	Default  *ParameterValue
	Enum     []string
	Env      string
}

// Validate reports whether the string value str, as presented on an
// incoming request, is an acceptable value for this parameter's declared
// type.
func (p Parameter) Validate(str string) bool {
	switch p.Type {
	case TypeNumber:
		_, err := strconv.ParseFloat(str, 64)
		return err == nil
	case TypeBoolean:
		return str == "true" || str == "false"
	case TypeString:
		fallthrough
	default:
		if len(p.Enum) == 0 {
			return true
		}
		for _, e := range p.Enum {
			if e == str {
				return true
			}
		}
		return false
	}
}

// Exec describes the child process a task spawns.
type Exec struct {
	Command string
	Args    []string
	Dir     string // always absolute; resolved at load time
}

// Def is an immutable, fully-resolved task definition as held in the
// server's task table.
type Def struct {
	Name           string
	Description    string
	HasDescription bool
	Methods        map[Method]bool
	Parameters     []Parameter
	Exec           Exec
}

// AllowsMethod reports whether m is one of the task's configured methods.
func (d Def) AllowsMethod(m Method) bool {
	return d.Methods[m]
}

// Param looks up a declared parameter by name.
func (d Def) Param(name string) (Parameter, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// String implements fmt.Stringer for log-friendly rendering, deliberately
// omitting parameter values (which may carry secrets passed in at request
// time, not at definition time, so this is safe -- it only ever describes
// configuration).
func (d Def) String() string {
	return fmt.Sprintf("Def{name=%s, command=%s, dir=%s}", d.Name, d.Exec.Command, d.Exec.Dir)
}
