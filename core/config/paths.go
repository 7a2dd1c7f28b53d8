package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DirEnv overrides the directory searched for obix config files.
const DirEnv = "OBIX_CONFIG_DIR"

const appDir = "obix"

// DefaultConfigPath is where obixctl and obix-sim look for name when no
// config file is given on the command line.
func DefaultConfigPath(name string) string {
	if dir := GetEnv(DirEnv, ""); dir != "" {
		return filepath.Join(dir, name)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(SystemConfigDir(runtime.GOOS, home, os.Getenv("ProgramData")), name)
}

// SystemConfigDir is the per-OS obix config directory: Application Support
// under home on macOS, ProgramData on Windows, /etc elsewhere.
func SystemConfigDir(goos, home, programData string) string {
	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", appDir)
	case "windows":
		root := strings.TrimRight(programData, `\/`)
		if root == "" {
			root = "C:/ProgramData"
		}
		return filepath.Join(root, appDir)
	}
	return filepath.Join("/etc", appDir)
}
