// Package taskfile discovers and parses the *.task.toml descriptors that
// define a server's task table.
package taskfile

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/headexplodes/henchman/internal/task"
)

// TaskFileSuffix is the filename suffix that marks a file as a task
// descriptor; the task's name is the filename with this suffix stripped.
const TaskFileSuffix = ".task.toml"

// ErrInvalidName is returned when a task file's name is empty once the
// suffix is stripped (e.g. the file was literally named ".task.toml").
var ErrInvalidName = errors.New("taskfile: invalid task file name")

// tomlFile mirrors the on-disk TOML schema documented in the task file
// format; it is an intermediate representation, never exposed outside this
// package.
type tomlFile struct {
	Task tomlTask `toml:"task"`
	Exec tomlExec `toml:"exec"`
}

type tomlTask struct {
	Description string          `toml:"description"`
	Method      []string        `toml:"method"`
	Parameters  []tomlParameter `toml:"parameters"`
}

type tomlParameter struct {
	Name     string      `toml:"name"`
	Required *bool       `toml:"required"`
	Type     string      `toml:"type"`
	Default  interface{} `toml:"default"`
	Enum     []string    `toml:"enum"`
	Env      string      `toml:"env"`
}

type tomlExec struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	Dir     string   `toml:"dir"`
}

// Load reads and parses a single task file at path. The parent directory of
// path becomes the task's default working directory, per the locality rule
// that lets a task author ship a task next to the script it invokes.
func Load(path string) (task.Def, error) {
	var file tomlFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return task.Def{}, fmt.Errorf("taskfile: parsing %s: %w", path, err)
	}

	name, err := taskName(path)
	if err != nil {
		return task.Def{}, err
	}

	methods, err := toMethods(file.Task.Method)
	if err != nil {
		return task.Def{}, fmt.Errorf("taskfile: %s: %w", path, err)
	}

	params := make([]task.Parameter, 0, len(file.Task.Parameters))
	seen := make(map[string]bool, len(file.Task.Parameters))
	for _, tp := range file.Task.Parameters {
		p, err := toParameter(tp)
		if err != nil {
			return task.Def{}, fmt.Errorf("taskfile: %s: parameter %q: %w", path, tp.Name, err)
		}
		if seen[p.Name] {
			return task.Def{}, fmt.Errorf("taskfile: %s: duplicate parameter name %q", path, p.Name)
		}
		seen[p.Name] = true
		params = append(params, p)
	}

	exec, err := toExec(file.Exec, path)
	if err != nil {
		return task.Def{}, fmt.Errorf("taskfile: %s: %w", path, err)
	}

	return task.Def{
		Name:           name,
		Description:    file.Task.Description,
		HasDescription: file.Task.Description != "",
		Methods:        methods,
		Parameters:     params,
		Exec:           exec,
	}, nil
}

func taskName(path string) (string, error) {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, TaskFileSuffix)
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidName, path)
	}
	return name, nil
}

func toMethods(raw []string) (map[task.Method]bool, error) {
	if len(raw) == 0 {
		return map[task.Method]bool{task.MethodGET: true, task.MethodPOST: true}, nil
	}

	methods := make(map[task.Method]bool, len(raw))
	for _, m := range raw {
		switch strings.ToUpper(m) {
		case string(task.MethodGET):
			methods[task.MethodGET] = true
		case string(task.MethodPOST):
			methods[task.MethodPOST] = true
		default:
			return nil, fmt.Errorf("unsupported method %q", m)
		}
	}
	return methods, nil
}

func toParameter(tp tomlParameter) (task.Parameter, error) {
	if tp.Name == "" {
		return task.Parameter{}, errors.New("parameter name is required")
	}

	ptype := task.TypeString
	switch strings.ToLower(tp.Type) {
	case "", string(task.TypeString):
		ptype = task.TypeString
	case string(task.TypeNumber):
		ptype = task.TypeNumber
	case string(task.TypeBoolean):
		ptype = task.TypeBoolean
	default:
		return task.Parameter{}, fmt.Errorf("unsupported type %q", tp.Type)
	}

	var def *task.ParameterValue
	if tp.Default != nil {
		v, err := toParameterValue(tp.Default)
		if err != nil {
			return task.Parameter{}, fmt.Errorf("default value: %w", err)
		}
		def = &v
	}

	required := false
	if tp.Required != nil {
		required = *tp.Required
	}

	return task.Parameter{
		Name:     tp.Name,
		Required: required,
		Type:     ptype,
		Default:  def,
		Enum:     tp.Enum,
		Env:      tp.Env,
	}, nil
}

// toParameterValue converts a decoded TOML scalar into a task.ParameterValue,
// preserving integer-vs-float distinction so integer defaults render back out
// in plain decimal rather than exponent form (see task.ParameterValue.Rendered).
func toParameterValue(raw interface{}) (task.ParameterValue, error) {
	switch v := raw.(type) {
	case string:
		return task.ParameterValue{Type: task.TypeString, Str: v}, nil
	case int64:
		return task.ParameterValue{Type: task.TypeNumber, Num: float64(v), IsInt: true}, nil
	case int:
		return task.ParameterValue{Type: task.TypeNumber, Num: float64(v), IsInt: true}, nil
	case float64:
		return task.ParameterValue{Type: task.TypeNumber, Num: v}, nil
	case bool:
		return task.ParameterValue{Type: task.TypeBoolean, Bool: v}, nil
	default:
		return task.ParameterValue{}, fmt.Errorf("unsupported default value type %T", raw)
	}
}

func toExec(e tomlExec, path string) (task.Exec, error) {
	if e.Command == "" {
		return task.Exec{}, errors.New("exec.command is required")
	}

	parentDir := filepath.Dir(path)

	dir := parentDir
	if e.Dir != "" {
		if filepath.IsAbs(e.Dir) {
			dir = e.Dir
		} else {
			dir = filepath.Join(parentDir, e.Dir)
		}
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return task.Exec{}, fmt.Errorf("resolving exec.dir: %w", err)
	}

	return task.Exec{
		Command: e.Command,
		Args:    e.Args,
		Dir:     absDir,
	}, nil
}

// FindTaskFiles walks dir recursively and returns the paths of every file
// whose name ends in TaskFileSuffix.
//
// Symlinks are skipped, not followed: this avoids the risk of an infinite
// walk from a self-referential link, at the cost of not being able to share
// a task file across directories via a symlink. A future version could add
// cycle detection and lift this restriction.
func FindTaskFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("taskfile: reading directory %s: %w", dir, err)
	}

	var result []string
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("taskfile: stat %s: %w", path, err)
		}

		switch {
		case info.Mode()&os.ModeSymlink != 0:
			slog.Warn("skipping symlink in task directory", "path", path)
			continue
		case entry.IsDir():
			sub, err := FindTaskFiles(path)
			if err != nil {
				return nil, err
			}
			result = append(result, sub...)
		case entry.Type().IsRegular():
			if strings.HasSuffix(path, TaskFileSuffix) {
				result = append(result, path)
			}
		default:
			return nil, fmt.Errorf("taskfile: unexpected file type for %s", path)
		}
	}

	return result, nil
}

// LoadDir walks dir and parses every task file found, returning the result
// as a name-keyed table. A later task file with a name collision silently
// overwrites an earlier one, matching the declared (if regrettable) load
// order semantics: it's deterministic filesystem walk order, not something
// worth failing startup over.
func LoadDir(dir string) (map[string]task.Def, error) {
	paths, err := FindTaskFiles(dir)
	if err != nil {
		return nil, err
	}

	slog.Info("found task files", "count", len(paths))

	tasks := make(map[string]task.Def, len(paths))
	for _, path := range paths {
		def, err := Load(path)
		if err != nil {
			return nil, err
		}
		tasks[def.Name] = def
	}

	return tasks, nil
}
