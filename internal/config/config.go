// Package config loads the server's TOML configuration file: the listen
// address, the task directory, and the static user/password/role table.
package config

import (
	"fmt"
	"net"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/headexplodes/henchman/internal/auth"
	"github.com/headexplodes/henchman/pkg/password"
)

const (
	defaultListen = "0.0.0.0:8080"
	defaultDir    = "."
)

type serverToml struct {
	Server *serverSectionToml `toml:"server"`
	Auth   *authSectionToml   `toml:"auth"`
}

type serverSectionToml struct {
	Listen string `toml:"listen"`
	Dir    string `toml:"dir"`
}

type authSectionToml struct {
	Users []authUserToml `toml:"users"`
}

type authUserToml struct {
	Username string   `toml:"username"`
	Password string   `toml:"password"`
	Roles    []string `toml:"roles"`
}

// Config is the fully-resolved server configuration: a bindable listen
// address, a task directory resolved against the config file's directory
// (absolute when the config path or the configured dir is), and a loaded
// user table.
type Config struct {
	Listen   string
	TasksDir string
	Users    map[string]auth.User
}

// Load reads and resolves the server config file at path. Paths in the
// file (the task directory) are resolved relative to path's own directory
// when not already absolute, so a config file can be run from anywhere.
func Load(path string) (Config, error) {
	var raw serverToml
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	listen := defaultListen
	dir := defaultDir
	if raw.Server != nil {
		if raw.Server.Listen != "" {
			listen = raw.Server.Listen
		}
		if raw.Server.Dir != "" {
			dir = raw.Server.Dir
		}
	}

	if _, _, err := net.SplitHostPort(listen); err != nil {
		return Config{}, fmt.Errorf("config: invalid listen address %q: %w", listen, err)
	}

	configDir := filepath.Dir(path)
	tasksDir := dir
	if !filepath.IsAbs(tasksDir) {
		tasksDir = filepath.Join(configDir, tasksDir)
	}

	users, err := loadUsers(raw.Auth)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Listen:   listen,
		TasksDir: tasksDir,
		Users:    users,
	}, nil
}

func loadUsers(raw *authSectionToml) (map[string]auth.User, error) {
	users := make(map[string]auth.User)
	if raw == nil {
		return users, nil
	}

	for _, u := range raw.Users {
		parts, err := password.Parse(u.Password)
		if err != nil {
			return nil, fmt.Errorf("config: invalid password hash for user %q: %w", u.Username, err)
		}

		roles := make(map[string]bool, len(u.Roles))
		for _, r := range u.Roles {
			roles[r] = true
		}

		users[u.Username] = auth.User{
			Username: u.Username,
			Password: parts,
			Roles:    roles,
		}
	}

	return users, nil
}
