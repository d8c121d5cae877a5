package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/darshan-rambhia/pacemon/internal/cib"
)

// Paths of the Pacemaker tools.
const (
	CRMMon   = "/usr/sbin/crm_mon"
	CIBAdmin = "/usr/sbin/cibadmin"
	CRMAdmin = "/usr/sbin/crmadmin"
	Booth    = "/usr/sbin/booth"
)

var (
	// ErrNotInstalled is returned when Pacemaker is missing on the target host.
	ErrNotInstalled = errors.New("pacemaker does not appear to be installed")
	// ErrNotExecutable is returned when crm_mon exists but cannot be run.
	ErrNotExecutable = errors.New("pacemaker tools are not executable")
	// ErrPermissionDenied is returned when the CIB refuses the caller.
	ErrPermissionDenied = errors.New("permission denied")
)

// cibadmin exit statuses meaning permission denied. 54 is the code used
// before pacemaker 1.1.8.
const (
	exitPermissionDenied    = 13
	exitPermissionDeniedOld = 54
)

// CommandError describes a command that exited with a non-zero status.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Command, e.ExitCode, msg)
}

// Source supplies everything a snapshot needs besides the classifier.
type Source interface {
	cib.TicketLister
	// FetchCIB returns the raw CIB document.
	FetchCIB(ctx context.Context) ([]byte, error)
	// DesignatedCoordinator returns the DC node name, or "" when unknown.
	DesignatedCoordinator(ctx context.Context) (string, error)
	// BoothConfig returns the booth.conf contents, or "" when there is none.
	BoothConfig(ctx context.Context) (string, error)
	// Host names the machine the CIB is read from.
	Host() string
}

// CommandSource reads the live CIB by running the Pacemaker tools through
// a Runner.
type CommandSource struct {
	runner    Runner
	host      string
	boothPath string
	timeout   time.Duration
}

// NewCommandSource creates a source over runner. boothPath may be empty to
// skip geo-cluster lookups.
func NewCommandSource(runner Runner, host, boothPath string, timeout time.Duration) *CommandSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CommandSource{runner: runner, host: host, boothPath: boothPath, timeout: timeout}
}

// NewLocalSource reads the CIB of the cluster this host belongs to.
func NewLocalSource(boothPath string, timeout time.Duration) *CommandSource {
	host, _ := os.Hostname()
	return NewCommandSource(LocalRunner{}, host, boothPath, timeout)
}

func (s *CommandSource) Host() string { return s.host }

func (s *CommandSource) run(ctx context.Context, cmd string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.runner.Run(ctx, cmd)
}

// FetchCIB checks that Pacemaker is usable and dumps the local CIB copy.
func (s *CommandSource) FetchCIB(ctx context.Context) ([]byte, error) {
	check := fmt.Sprintf(`if [ ! -e %[1]s ]; then echo missing; elif [ ! -x %[1]s ]; then echo noexec; fi`, CRMMon)
	res, err := s.run(ctx, check)
	if err != nil {
		return nil, err
	}
	switch strings.TrimSpace(string(res.Stdout)) {
	case "missing":
		return nil, fmt.Errorf("%w (%s not found)", ErrNotInstalled, CRMMon)
	case "noexec":
		return nil, fmt.Errorf("%w (unable to execute %s)", ErrNotExecutable, CRMMon)
	}

	cmd := CIBAdmin + " -Ql"
	res, err = s.run(ctx, cmd)
	if err != nil {
		return nil, err
	}
	switch res.ExitCode {
	case 0:
		return res.Stdout, nil
	case exitPermissionDenied, exitPermissionDeniedOld:
		return nil, fmt.Errorf("%s: %w", cmd, ErrPermissionDenied)
	default:
		return nil, &CommandError{Command: cmd, ExitCode: res.ExitCode, Stderr: string(res.Stderr)}
	}
}

// DesignatedCoordinator asks the controller for the DC, waiting at most
// 100ms so that a cluster still coming up does not stall the poll.
func (s *CommandSource) DesignatedCoordinator(ctx context.Context) (string, error) {
	cmd := CRMAdmin + " -t 100 -D 2>/dev/null"
	res, err := s.run(ctx, cmd)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", &CommandError{Command: cmd, ExitCode: res.ExitCode}
	}
	return cib.ParseDesignatedCoordinator(string(res.Stdout)), nil
}

// BoothConfig returns the booth.conf contents. A missing file is not an
// error; it means the cluster is not part of a geo-cluster.
func (s *CommandSource) BoothConfig(ctx context.Context) (string, error) {
	if s.boothPath == "" {
		return "", nil
	}
	res, err := s.run(ctx, "cat "+shellQuote(s.boothPath)+" 2>/dev/null")
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", nil
	}
	return string(res.Stdout), nil
}

// ListTickets returns the output of the booth ticket client.
func (s *CommandSource) ListTickets(ctx context.Context) (string, error) {
	cmd := Booth + " client list 2>/dev/null"
	res, err := s.run(ctx, cmd)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", &CommandError{Command: cmd, ExitCode: res.ExitCode}
	}
	return string(res.Stdout), nil
}

// shellQuote wraps s in single quotes for /bin/sh.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// FileSource reads a saved CIB from disk. It has no DC and no ticket
// client.
type FileSource struct {
	cibPath   string
	boothPath string
}

// NewFileSource creates a source for a saved CIB. boothPath may be empty.
func NewFileSource(cibPath, boothPath string) *FileSource {
	return &FileSource{cibPath: cibPath, boothPath: boothPath}
}

func (s *FileSource) Host() string { return "" }

func (s *FileSource) FetchCIB(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.cibPath)
	if err != nil {
		return nil, fmt.Errorf("reading CIB file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("reading CIB file %s: %w", s.cibPath, cib.ErrEmptyDocument)
	}
	return data, nil
}

func (s *FileSource) DesignatedCoordinator(_ context.Context) (string, error) { return "", nil }

func (s *FileSource) BoothConfig(_ context.Context) (string, error) {
	if s.boothPath == "" {
		return "", nil
	}
	data, err := os.ReadFile(s.boothPath)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading booth config: %w", err)
	}
	return string(data), nil
}

func (s *FileSource) ListTickets(_ context.Context) (string, error) { return "", nil }
