package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"time"

	"subtraction-builder/internal/config"
	"subtraction-builder/internal/domain"
	"subtraction-builder/internal/index"
)

const (
	installCommandTimeout = 45 * time.Minute
	downloadTimeout       = 45 * time.Minute
)

type installOption struct {
	manager  string
	commands [][]string
}

// InstallOrFixDiagnostic applies an OS-specific remediation for one failed
// diagnostic item, then reruns the checks.
func (a *App) InstallOrFixDiagnostic(ctx context.Context, itemID string) (domain.DiagnosticReport, error) {
	if a.Store == nil {
		return domain.DiagnosticReport{}, fmt.Errorf("settings store is not configured")
	}

	id := strings.TrimSpace(itemID)
	if id == "" {
		return domain.DiagnosticReport{}, fmt.Errorf("diagnostic item id is required")
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}
	settings = config.Normalize(settings)

	settingsChanged := false
	var fixErr error

	switch id {
	case "tool_bowtie2-build":
		settings, settingsChanged, fixErr = installOrFixIndexerTool(settings)
	case "data_dir":
		settings, settingsChanged, fixErr = installOrFixDataDir(settings)
	case "work_dir":
		settings, settingsChanged, fixErr = installOrFixWorkDir(settings)
	case "database":
		fixErr = fmt.Errorf("no automatic fix for the document store: start MongoDB at %s, or clear the URI to run against the built-in in-memory store", settings.MongoURI)
	default:
		return domain.DiagnosticReport{}, fmt.Errorf("unsupported diagnostic item id: %s", id)
	}

	if settingsChanged {
		if saveErr := a.Store.Save(settings); saveErr != nil {
			report := a.refreshDiagnosticsFromSettings(ctx, settings)
			return report, fmt.Errorf("save settings after fix: %w", saveErr)
		}
	}

	report := a.refreshDiagnosticsFromSettings(ctx, settings)
	if fixErr != nil {
		return report, fixErr
	}
	return report, nil
}

func (a *App) refreshDiagnosticsFromSettings(ctx context.Context, settings domain.Settings) domain.DiagnosticReport {
	a.mu.Lock()
	db := a.DB
	a.mu.Unlock()

	report := a.checker.Run(ctx, settings, db.Ping)
	a.mu.Lock()
	a.Settings = settings
	a.Diagnostics = report
	a.mu.Unlock()
	return report
}

// installOrFixIndexerTool installs bowtie2 through the first working package
// manager. A configured tool path that no longer exists is cleared so the
// worker falls back to PATH lookup.
func installOrFixIndexerTool(settings domain.Settings) (domain.Settings, bool, error) {
	changed := false

	configured := strings.TrimSpace(settings.Bowtie2Path)
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return settings, false, nil
		}
		settings.Bowtie2Path = ""
		changed = true
	}

	if commandAvailable(index.DefaultTool) {
		return settings, changed, nil
	}

	if err := runFirstSuccessfulInstall(bowtie2InstallOptions()); err != nil {
		return settings, changed, fmt.Errorf("install bowtie2: %w", err)
	}
	if err := requireToolsOnPath(index.DefaultTool, "bowtie2"); err != nil {
		return settings, changed, fmt.Errorf("verify bowtie2 on PATH: %w", err)
	}
	return settings, changed, nil
}

func bowtie2InstallOptions() []installOption {
	switch goruntime.GOOS {
	case "windows":
		return nil
	case "darwin":
		return []installOption{
			{
				manager: "brew",
				commands: [][]string{
					{"brew", "install", "bowtie2"},
				},
			},
		}
	default:
		return []installOption{
			{
				manager: "apt-get",
				commands: [][]string{
					{"apt-get", "update"},
					{"apt-get", "install", "-y", "bowtie2"},
				},
			},
			{
				manager: "dnf",
				commands: [][]string{
					{"dnf", "install", "-y", "bowtie2"},
				},
			},
			{
				manager: "pacman",
				commands: [][]string{
					{"pacman", "-Sy", "--noconfirm", "bowtie2"},
				},
			},
			{
				manager: "zypper",
				commands: [][]string{
					{"zypper", "install", "-y", "bowtie2"},
				},
			},
			{
				manager: "brew",
				commands: [][]string{
					{"brew", "install", "bowtie2"},
				},
			},
		}
	}
}

func installOrFixDataDir(settings domain.Settings) (domain.Settings, bool, error) {
	dataDir := strings.TrimSpace(settings.DataDir)
	changed := false
	if dataDir == "" {
		dataDir = config.DefaultSettings().DataDir
		settings.DataDir = dataDir
		changed = true
	}

	dirs := []string{
		dataDir,
		filepath.Join(dataDir, "files"),
		filepath.Join(dataDir, "subtractions"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return settings, changed, fmt.Errorf("create data directory %s: %w", dir, err)
		}
	}
	return settings, changed, nil
}

func installOrFixWorkDir(settings domain.Settings) (domain.Settings, bool, error) {
	workDir := strings.TrimSpace(settings.WorkDir)
	changed := false
	if workDir == "" {
		workDir = config.DefaultSettings().WorkDir
		settings.WorkDir = workDir
		changed = true
	}

	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return settings, changed, fmt.Errorf("create work directory %s: %w", workDir, err)
	}
	return settings, changed, nil
}

func runFirstSuccessfulInstall(options []installOption) error {
	if len(options) == 0 {
		return fmt.Errorf("no install commands configured for OS %s", goruntime.GOOS)
	}

	errorsByManager := make([]string, 0, len(options))
	atLeastOneManager := false

	for _, option := range options {
		if !commandAvailable(option.manager) {
			continue
		}
		atLeastOneManager = true
		if err := runInstallCommands(option.commands); err == nil {
			return nil
		} else {
			errorsByManager = append(errorsByManager, fmt.Sprintf("%s: %v", option.manager, err))
		}
	}

	if !atLeastOneManager {
		return fmt.Errorf("no supported package manager found for %s", goruntime.GOOS)
	}
	return errors.New(strings.Join(errorsByManager, " | "))
}

func runInstallCommands(commands [][]string) error {
	for _, command := range commands {
		if err := runCommandWithPossibleElevation(command); err != nil {
			return err
		}
	}
	return nil
}

func runCommandWithPossibleElevation(command []string) error {
	if len(command) == 0 {
		return fmt.Errorf("empty command")
	}

	candidates := [][]string{command}
	if goruntime.GOOS == "linux" && requiresElevation(command[0]) {
		if commandAvailable("pkexec") {
			candidates = append(candidates, append([]string{"pkexec"}, command...))
		}
		if commandAvailable("sudo") {
			candidates = append(candidates, append([]string{"sudo", "-n"}, command...))
		}
	}

	attemptErrors := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		if err := runCommand(candidate[0], candidate[1:]...); err == nil {
			return nil
		} else {
			attemptErrors = append(attemptErrors, err.Error())
		}
	}

	return errors.New(strings.Join(attemptErrors, " | "))
}

func runCommand(name string, args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), installCommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s timed out after %s", formatCommand(name, args), installCommandTimeout)
	}

	trimmed := strings.TrimSpace(string(output))
	if len(trimmed) > 500 {
		trimmed = trimmed[:500] + "..."
	}
	if trimmed == "" {
		return fmt.Errorf("%s failed: %w", formatCommand(name, args), err)
	}
	return fmt.Errorf("%s failed: %w (%s)", formatCommand(name, args), err, trimmed)
}

func formatCommand(name string, args []string) string {
	parts := append([]string{name}, args...)
	return strings.Join(parts, " ")
}

func requiresElevation(manager string) bool {
	switch manager {
	case "apt-get", "dnf", "pacman", "zypper":
		return true
	default:
		return false
	}
}

func commandAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func requireToolsOnPath(names ...string) error {
	missing := make([]string, 0, len(names))
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing tools on PATH: %s", strings.Join(missing, ", "))
	}
	return nil
}

// downloadURLToFile streams a URL into destinationPath through a sibling
// temp file so an interrupted download never leaves a partial target.
func downloadURLToFile(ctx context.Context, destinationPath string, sourceURL string) error {
	if err := os.MkdirAll(filepath.Dir(destinationPath), 0o755); err != nil {
		return fmt.Errorf("prepare destination directory: %w", err)
	}

	tmpPath := destinationPath + ".download"
	if err := os.Remove(tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale temp file: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "subtraction-builder")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected HTTP status: %s", resp.Status)
	}

	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}

	_, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if copyErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write destination file: %w", copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close destination file: %w", closeErr)
	}

	if err := os.Remove(destinationPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("remove old destination file: %w", err)
	}
	if err := os.Rename(tmpPath, destinationPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("move downloaded file into place: %w", err)
	}

	return nil
}
