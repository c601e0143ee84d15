package utils

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
)

const appDir = "wildserve"

// PathResolver finds where WildServe keeps its config and data files.
type PathResolver struct {
	executableDir string
	homeDir       string
	configDir     string
	dataDir       string
}

// NewPathResolver determines the platform config and data directories
func NewPathResolver() (*PathResolver, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, err
	}
	if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = resolved
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}

	pr := &PathResolver{
		executableDir: filepath.Dir(execPath),
		homeDir:       homeDir,
		configDir:     getConfigDir(homeDir),
		dataDir:       getDataDir(homeDir),
	}
	log.Debugf("PathResolver initialized: execDir=%s, configDir=%s, dataDir=%s",
		pr.executableDir, pr.configDir, pr.dataDir)
	return pr, nil
}

// getConfigDir returns the appropriate config directory for the platform
func getConfigDir(homeDir string) string {
	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, appDir)
		}
		return filepath.Join(homeDir, "AppData", "Roaming", appDir)
	default:
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, appDir)
		}
		return filepath.Join(homeDir, ".config", appDir)
	}
}

// getDataDir returns the directory for the persisted wildcard cache
func getDataDir(homeDir string) string {
	switch runtime.GOOS {
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, appDir)
		}
		return filepath.Join(homeDir, "AppData", "Local", appDir)
	default:
		if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
			return filepath.Join(dataHome, appDir)
		}
		return filepath.Join(homeDir, ".local", "share", appDir)
	}
}

// GetConfigPath returns the full path for a config file, falling back to
// other writable locations when the config dir is read-only
func (pr *PathResolver) GetConfigPath(filename string) string {
	return pr.firstWritable(pr.configDir, filename)
}

// GetDataPath returns the full path for a data file
func (pr *PathResolver) GetDataPath(filename string) string {
	return pr.firstWritable(pr.dataDir, filename)
}

func (pr *PathResolver) firstWritable(preferred, filename string) string {
	if isWritableDir(preferred) {
		return filepath.Join(preferred, filename)
	}

	fallbackDirs := []string{
		filepath.Join(pr.homeDir, "."+appDir),
		filepath.Join(os.TempDir(), appDir),
		pr.executableDir,
	}
	for _, dir := range fallbackDirs {
		if isWritableDir(dir) {
			path := filepath.Join(dir, filename)
			log.Warnf("Using fallback location: %s", path)
			return path
		}
	}

	tempPath := filepath.Join(os.TempDir(), filename)
	log.Warnf("Using temporary file: %s", tempPath)
	return tempPath
}

// ResolveDir resolves a relative directory against the working directory
// first and the executable directory second
func (pr *PathResolver) ResolveDir(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	if cwd, err := os.Getwd(); err == nil {
		candidate := filepath.Join(cwd, dir)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
	}
	execRelative := filepath.Join(pr.executableDir, dir)
	if info, err := os.Stat(execRelative); err == nil && info.IsDir() {
		return execRelative
	}
	return GetAbsolutePath(dir)
}
