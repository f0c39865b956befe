// Package pshelldir implements the PSHELL filesystem coordination
// directory (component G): per-endpoint lockfiles used both to claim a
// unique endpoint name and to detect and reclaim endpoints whose owning
// process has died.
//
// Grounded on PshellControl.py's _lockProcess/_unlockProcess scan-and-
// reclaim algorithm (original_source) -- no teacher package does this
// since minimega assumes a single long-lived meshage daemon per host, not
// many short-lived, independently-named endpoints. Advisory locking uses
// golang.org/x/sys/unix.Flock, the lower-level binding the corpus imports
// directly (the teacher's own go.mod requires golang.org/x/sys), in
// preference to github.com/gofrs/flock, which only ever appears as an
// indirect transitive dependency elsewhere in the pack.
package pshelldir

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/pshell-go/pshell/pkg/pshelllog"
)

// DefaultDir is the default coordination directory (spec §6).
const DefaultDir = "/tmp/.pshell/"

// DirMode is the permission mode the coordination directory is created
// with (spec §6: "mode 0777").
const DirMode = 0777

// Lock represents an exclusive advisory lock held on one coordination-
// directory lockfile for the lifetime of an endpoint.
type Lock struct {
	path string
	file *os.File
}

// Ensure creates the coordination directory (if missing) with DirMode.
func Ensure(dir string) error {
	return os.MkdirAll(dir, DirMode)
}

// unixLockName is the lockfile name for a UNIX-transport endpoint (spec
// §3: "<server>-unix.lock").
func unixLockName(serverName string) string {
	return serverName + "-unix.lock"
}

// inetLockName is the lockfile name for a UDP/TCP endpoint (spec §3:
// "<server>-<type>-<host>-<port>.lock").
func inetLockName(serverName, transport, host string, port int) string {
	return fmt.Sprintf("%s-%s-%s-%d.lock", serverName, transport, host, port)
}

// Acquire creates (or opens) the lockfile at dir/name and takes a non-
// blocking exclusive advisory lock on it, held for the endpoint's full
// lifetime (spec §4.G). It fails if another live process already holds
// the lock.
func Acquire(dir, name string) (*Lock, error) {
	if err := Ensure(dir); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("pshelldir: lock %s held by another process: %w", path, err)
	}

	fmt.Fprintf(f, "pid=%d\n", os.Getpid())

	return &Lock{path: path, file: f}, nil
}

// AcquireUnix is Acquire specialized for a UNIX-transport server endpoint.
func AcquireUnix(dir, serverName string) (*Lock, error) {
	return Acquire(dir, unixLockName(serverName))
}

// AcquireInet is Acquire specialized for a UDP/TCP server endpoint.
func AcquireInet(dir, serverName, transport, host string, port int) (*Lock, error) {
	return Acquire(dir, inetLockName(serverName, transport, host, port))
}

// Release unlocks and removes the lockfile.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	name := l.file.Name()
	err := l.file.Close()
	os.Remove(name)
	return err
}

// Path returns the full path of the lockfile.
func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// ReclaimStale scans dir for *.lock files left behind by dead processes
// (spec §4.G / §8 "Stale-socket reclamation"): for each, it attempts a
// non-blocking exclusive lock; success means the prior owner is gone, so
// the lockfile is removed, along with the associated UNIX socket file if
// the lock name encodes a "-unix.lock" endpoint. It returns the server
// names it reclaimed sockets for.
func ReclaimStale(dir string) ([]string, error) {
	if err := Ensure(dir); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var reclaimed []string
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".lock") {
			continue
		}
		path := filepath.Join(dir, ent.Name())

		f, err := os.OpenFile(path, os.O_RDWR, 0666)
		if err != nil {
			continue
		}
		lockErr := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if lockErr != nil {
			// Still held: a live owner exists.
			f.Close()
			continue
		}

		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
		os.Remove(path)

		if serverName, ok := strings.CutSuffix(ent.Name(), "-unix.lock"); ok {
			sockPath := filepath.Join(dir, serverName)
			if err := os.Remove(sockPath); err == nil {
				pshelllog.Infof("pshelldir: reclaimed stale unix socket %s", sockPath)
			}
			reclaimed = append(reclaimed, serverName)
		} else {
			pshelllog.Infof("pshelldir: reclaimed stale lockfile %s", path)
		}
	}

	return reclaimed, nil
}

// UniqueUnixName finds an unused UNIX-transport server name starting from
// base, appending "1", "2", ... up to maxSuffix on collision (spec §4.E:
// "up to a cap (≈1000)"). "Unused" means the candidate socket path doesn't
// exist once ReclaimStale has removed the sockets of dead owners; the
// candidate's own lockfile is not checked here.
func UniqueUnixName(dir, base string, maxSuffix int) (string, error) {
	ReclaimStale(dir)

	for i := 0; i <= maxSuffix; i++ {
		candidate := base
		if i > 0 {
			candidate = fmt.Sprintf("%s%d", base, i)
		}
		sockPath := filepath.Join(dir, candidate)
		if _, err := os.Stat(sockPath); err == nil {
			continue
		}
		return candidate, nil
	}
	return "", fmt.Errorf("pshelldir: exhausted %d unix name suffixes for %q", maxSuffix, base)
}

// RandomSuffix returns a short random suffix used for control-client
// source socket names (spec §4.F: "<serverName>-control<rand>"), grounded
// on ron's own use of google/uuid for client identifiers.
func RandomSuffix() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:4])
}
