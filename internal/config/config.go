// Package config loads the PSHELL file formats described in spec §6:
// the server and control-client configuration files, startup files, and
// batch files. All four share the same hand-rolled line-oriented parser
// rather than a structured-config library -- grounded on the observation
// that no example repo reaches for viper/toml for a format this small;
// nabbar-golib's viper usage is for its own much larger application
// configuration and isn't analogous to a dozen flat key=value lines.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// SearchPaths returns the directories searched for a named config file,
// in precedence order (spec §6): $PSHELL_CONFIG_DIR, /etc/pshell/config,
// then the current working directory.
func SearchPaths() []string {
	var paths []string
	if d := os.Getenv("PSHELL_CONFIG_DIR"); d != "" {
		paths = append(paths, d)
	}
	paths = append(paths, "/etc/pshell/config")
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, cwd)
	}
	return paths
}

// find returns the first existing path for name across SearchPaths.
func find(name string) (string, bool) {
	for _, dir := range SearchPaths() {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// Entries is the parsed `<name>.<key>=<value>` lines of a config file,
// keyed first by name then by key.
type Entries map[string]map[string]string

// parseKV parses a "<name>.<key>=<value>" config file (pshell-server.conf
// / pshell-control.conf), skipping blank lines and "#" comments.
func parseKV(r *bufio.Scanner) (Entries, error) {
	out := Entries{}
	lineNo := 0
	for r.Scan() {
		lineNo++
		line := strings.TrimSpace(r.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			return nil, fmt.Errorf("config: line %d: missing '=': %q", lineNo, line)
		}
		lhs := strings.TrimSpace(line[:eq])
		value := strings.TrimSpace(line[eq+1:])
		dot := strings.IndexByte(lhs, '.')
		if dot < 0 {
			return nil, fmt.Errorf("config: line %d: missing '<name>.<key>': %q", lineNo, line)
		}
		name, key := lhs[:dot], lhs[dot+1:]
		if out[name] == nil {
			out[name] = map[string]string{}
		}
		out[name][key] = value
	}
	return out, r.Err()
}

// LoadServerConfig loads pshell-server.conf (spec §6). Keys recognized
// per serverName: title, banner, prompt, host, port, type, timeout.
// I/O and parse errors are non-fatal: callers should fall back to
// defaults, per spec §7 ("Config-file and startup-file I/O errors are
// non-fatal").
func LoadServerConfig() (Entries, error) {
	path, ok := find("pshell-server.conf")
	if !ok {
		return Entries{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Entries{}, err
	}
	defer f.Close()
	return parseKV(bufio.NewScanner(f))
}

// LoadControlConfig loads pshell-control.conf (spec §6). Keys recognized
// per controlName: udp, unix, port, timeout.
func LoadControlConfig() (Entries, error) {
	path, ok := find("pshell-control.conf")
	if !ok {
		return Entries{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Entries{}, err
	}
	defer f.Close()
	return parseKV(bufio.NewScanner(f))
}

// ServerParams is the subset of startServer's parameters a config file
// may override.
type ServerParams struct {
	Title, Banner, Prompt, Host, Type string
	Port                              int
	// Timeout is the idle-session timeout in minutes; TimeoutNone is true
	// when the config says "none" (spec §6: "timeout=none disables").
	Timeout     int
	TimeoutNone bool
}

// ApplyServerConfig overlays the pshell-server.conf entries for
// serverName onto base, returning the merged params. Unset or unparsable
// keys leave the corresponding base field untouched.
func ApplyServerConfig(entries Entries, serverName string, base ServerParams) ServerParams {
	kv, ok := entries[serverName]
	if !ok {
		return base
	}
	out := base
	if v, ok := kv["title"]; ok {
		out.Title = v
	}
	if v, ok := kv["banner"]; ok {
		out.Banner = v
	}
	if v, ok := kv["prompt"]; ok {
		if !strings.HasSuffix(v, " ") {
			v += " "
		}
		out.Prompt = v
	}
	if v, ok := kv["host"]; ok {
		out.Host = v
	}
	if v, ok := kv["type"]; ok {
		out.Type = v
	}
	if v, ok := kv["port"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			out.Port = n
		}
	}
	if v, ok := kv["timeout"]; ok {
		if v == "none" {
			out.TimeoutNone = true
		} else if n, err := strconv.Atoi(v); err == nil {
			out.Timeout = n
			out.TimeoutNone = false
		}
	}
	return out
}

// ControlParams is the subset of connectServer's parameters a control
// config file may override.
type ControlParams struct {
	UDPHost    string
	UnixServer string
	Port       int
	// TimeoutMS is the default timeout in milliseconds; 0 means NO_WAIT.
	TimeoutMS int
}

// ApplyControlConfig overlays the pshell-control.conf entries for
// controlName onto base.
func ApplyControlConfig(entries Entries, controlName string, base ControlParams) ControlParams {
	kv, ok := entries[controlName]
	if !ok {
		return base
	}
	out := base
	if v, ok := kv["udp"]; ok {
		out.UDPHost = v
	}
	if v, ok := kv["unix"]; ok {
		out.UnixServer = v
		out.Port = -1 // spec: "implies port=unix"
	}
	if v, ok := kv["port"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			out.Port = n
		}
	}
	if v, ok := kv["timeout"]; ok {
		if v == "none" {
			out.TimeoutMS = 0
		} else if n, err := strconv.Atoi(v); err == nil {
			out.TimeoutMS = n
		}
	}
	return out
}

// LoadLines reads a startup or batch file: one command per line, blank
// lines and "#" comments skipped (spec §6).
func LoadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, sc.Err()
}

// StartupFile returns the conventional startup-file path for a server
// name (spec §6: "<serverName>.startup"), searched via SearchPaths.
func StartupFile(serverName string) (string, bool) {
	return find(serverName + ".startup")
}

// batchExtensions are the accepted batch-file extensions (spec §4.E).
var batchExtensions = []string{".psh", ".batch"}

// FindBatch resolves a batch file name by searching, in order, the
// current directory, $PSHELL_BATCH_DIR, and defaultDir (spec §4.E).
func FindBatch(name, defaultDir string) (string, bool) {
	dirs := []string{"."}
	if d := os.Getenv("PSHELL_BATCH_DIR"); d != "" {
		dirs = append(dirs, d)
	}
	if defaultDir != "" {
		dirs = append(dirs, defaultDir)
	}

	candidates := []string{name}
	hasExt := false
	for _, ext := range batchExtensions {
		if strings.HasSuffix(name, ext) {
			hasExt = true
		}
	}
	if !hasExt {
		for _, ext := range batchExtensions {
			candidates = append(candidates, name+ext)
		}
	}

	for _, dir := range dirs {
		for _, c := range candidates {
			p := filepath.Join(dir, c)
			if _, err := os.Stat(p); err == nil {
				return p, true
			}
		}
	}
	return "", false
}
