package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/darshan-rambhia/pacemon/internal/cib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner answers commands by prefix.
type fakeRunner struct {
	results map[string]Result
	err     error
	cmds    []string
}

func (f *fakeRunner) Run(ctx context.Context, cmd string) (Result, error) {
	f.cmds = append(f.cmds, cmd)
	if _, ok := ctx.Deadline(); !ok {
		return Result{}, errors.New("command run without a deadline")
	}
	if f.err != nil {
		return Result{}, f.err
	}
	for prefix, res := range f.results {
		if strings.HasPrefix(cmd, prefix) {
			return res, nil
		}
	}
	return Result{}, nil
}

func newFake(results map[string]Result) (*fakeRunner, *CommandSource) {
	r := &fakeRunner{results: results}
	return r, NewCommandSource(r, "node1", "/etc/booth/booth.conf", time.Second)
}

// ---------------------------------------------------------------------------
// FetchCIB
// ---------------------------------------------------------------------------

func TestFetchCIB_OK(t *testing.T) {
	r, s := newFake(map[string]Result{
		CIBAdmin: {Stdout: []byte("<cib/>")},
	})
	data, err := s.FetchCIB(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "<cib/>", string(data))
	require.Len(t, r.cmds, 2)
	assert.Contains(t, r.cmds[0], CRMMon)
	assert.Equal(t, CIBAdmin+" -Ql", r.cmds[1])
}

func TestFetchCIB_Errors(t *testing.T) {
	tests := []struct {
		name    string
		results map[string]Result
		want    error
	}{
		{"not installed", map[string]Result{"if [": {Stdout: []byte("missing\n")}}, ErrNotInstalled},
		{"not executable", map[string]Result{"if [": {Stdout: []byte("noexec\n")}}, ErrNotExecutable},
		{"permission denied", map[string]Result{CIBAdmin: {ExitCode: 13}}, ErrPermissionDenied},
		{"permission denied, old pacemaker", map[string]Result{CIBAdmin: {ExitCode: 54}}, ErrPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, s := newFake(tt.results)
			_, err := s.FetchCIB(context.Background())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFetchCIB_CommandError(t *testing.T) {
	_, s := newFake(map[string]Result{
		CIBAdmin: {ExitCode: 102, Stderr: []byte("Signon to CIB failed: Transport endpoint is not connected\n")},
	})
	_, err := s.FetchCIB(context.Background())

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 102, cmdErr.ExitCode)
	assert.Equal(t, CIBAdmin+" -Ql", cmdErr.Command)
	assert.Contains(t, err.Error(), "Transport endpoint is not connected")
	assert.NotContains(t, err.Error(), "\n")
}

func TestFetchCIB_RunnerFailure(t *testing.T) {
	r := &fakeRunner{err: errors.New("connection refused")}
	s := NewCommandSource(r, "node1", "", time.Second)
	_, err := s.FetchCIB(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestCommandError_NoStderr(t *testing.T) {
	err := &CommandError{Command: "booth client list", ExitCode: 1}
	assert.Equal(t, "booth client list exited with status 1", err.Error())
}

// ---------------------------------------------------------------------------
// DC, booth
// ---------------------------------------------------------------------------

func TestDesignatedCoordinator(t *testing.T) {
	_, s := newFake(map[string]Result{
		CRMAdmin: {Stdout: []byte("Designated Controller is: node2\n")},
	})
	dc, err := s.DesignatedCoordinator(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "node2", dc)

	_, s = newFake(map[string]Result{CRMAdmin: {ExitCode: 1}})
	dc, err = s.DesignatedCoordinator(context.Background())
	assert.Error(t, err)
	assert.Empty(t, dc)
}

func TestBoothConfig(t *testing.T) {
	r, s := newFake(map[string]Result{
		"cat ": {Stdout: []byte("site = 10.0.0.1\n")},
	})
	conf, err := s.BoothConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "site = 10.0.0.1\n", conf)
	assert.Equal(t, "cat '/etc/booth/booth.conf' 2>/dev/null", r.cmds[0])

	_, s = newFake(map[string]Result{"cat ": {ExitCode: 1}})
	conf, err = s.BoothConfig(context.Background())
	require.NoError(t, err, "missing booth.conf is not an error")
	assert.Empty(t, conf)

	r = &fakeRunner{}
	s = NewCommandSource(r, "node1", "", time.Second)
	conf, err = s.BoothConfig(context.Background())
	require.NoError(t, err)
	assert.Empty(t, conf)
	assert.Empty(t, r.cmds, "no booth path, no command")
}

func TestListTickets(t *testing.T) {
	_, s := newFake(map[string]Result{
		Booth: {Stdout: []byte("ticket: A, leader: 10.0.0.1\n")},
	})
	out, err := s.ListTickets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ticket: A, leader: 10.0.0.1\n", out)

	_, s = newFake(map[string]Result{Booth: {ExitCode: 1}})
	_, err = s.ListTickets(context.Background())
	var cmdErr *CommandError
	assert.ErrorAs(t, err, &cmdErr)
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, `'/etc/booth/booth.conf'`, shellQuote("/etc/booth/booth.conf"))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
}

func TestCommandSource_Host(t *testing.T) {
	_, s := newFake(nil)
	assert.Equal(t, "node1", s.Host())
}

// ---------------------------------------------------------------------------
// LocalRunner
// ---------------------------------------------------------------------------

func TestLocalRunner(t *testing.T) {
	res, err := LocalRunner{}.Run(context.Background(), "echo out; echo err >&2; exit 3")
	require.NoError(t, err)
	assert.Equal(t, "out\n", string(res.Stdout))
	assert.Equal(t, "err\n", string(res.Stderr))
	assert.Equal(t, 3, res.ExitCode)
}

func TestLocalRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := LocalRunner{}.Run(ctx, "sleep 5")
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// FileSource
// ---------------------------------------------------------------------------

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	cibPath := filepath.Join(dir, "cib.xml")
	boothPath := filepath.Join(dir, "booth.conf")
	require.NoError(t, os.WriteFile(cibPath, []byte("<cib/>"), 0o644))
	require.NoError(t, os.WriteFile(boothPath, []byte("ticket = A\n"), 0o644))

	s := NewFileSource(cibPath, boothPath)
	ctx := context.Background()

	data, err := s.FetchCIB(ctx)
	require.NoError(t, err)
	assert.Equal(t, "<cib/>", string(data))

	conf, err := s.BoothConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ticket = A\n", conf)

	dc, err := s.DesignatedCoordinator(ctx)
	require.NoError(t, err)
	assert.Empty(t, dc)

	out, err := s.ListTickets(ctx)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, s.Host())
}

func TestFileSource_Missing(t *testing.T) {
	dir := t.TempDir()
	s := NewFileSource(filepath.Join(dir, "nope.xml"), filepath.Join(dir, "nope.conf"))

	_, err := s.FetchCIB(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)

	conf, err := s.BoothConfig(context.Background())
	require.NoError(t, err)
	assert.Empty(t, conf)
}

func TestFileSource_Empty(t *testing.T) {
	cibPath := filepath.Join(t.TempDir(), "cib.xml")
	require.NoError(t, os.WriteFile(cibPath, []byte("  \n"), 0o644))

	_, err := NewFileSource(cibPath, "").FetchCIB(context.Background())
	assert.ErrorIs(t, err, cib.ErrEmptyDocument)
}
