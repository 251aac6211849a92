package shell

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}
}

type transitions struct {
	mu    sync.Mutex
	steps []State
}

func (tr *transitions) record(_, to State) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.steps = append(tr.steps, to)
}

func newTestEngine(interpreter ...string) (*Engine, *transitions) {
	e := NewEngine(interpreter, zerolog.Nop())
	tr := &transitions{}
	e.OnTransition = tr.record
	return e, tr
}

func TestExecuteEcho(t *testing.T) {
	skipOnWindows(t)
	e, tr := newTestEngine()

	out, err := e.Execute("echo hello", "")
	require.NoError(t, err)
	assert.Equal(t, Output{Stdout: "hello\n", Stderr: "", ExitCode: 0}, out)
	assert.Equal(t, []State{StatePipesCreated, StateSpawned, StateDraining, StateExited}, tr.steps)
}

func TestExecuteSeparatesStreams(t *testing.T) {
	skipOnWindows(t)
	e, _ := newTestEngine()

	out, err := e.Execute("printf 'out\\r\\n'; printf ' err ' >&2", "")
	require.NoError(t, err)
	assert.Equal(t, "out\r\n", out.Stdout)
	assert.Equal(t, " err ", out.Stderr)
}

func TestExecuteNonZeroExit(t *testing.T) {
	skipOnWindows(t)
	e, _ := newTestEngine()

	out, err := e.Execute("echo partial; exit 3", "")
	require.NoError(t, err)
	assert.Equal(t, 3, out.ExitCode)
	assert.Equal(t, "partial\n", out.Stdout)
}

func TestExecuteWorkingDir(t *testing.T) {
	skipOnWindows(t)
	e, _ := newTestEngine()

	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	out, err := e.Execute("pwd -P", dir)
	require.NoError(t, err)
	assert.Equal(t, dir+"\n", out.Stdout)
}

// Both streams are written well past the pipe buffer size in alternation. A
// sequential reader would leave the child blocked on the undrained pipe.
func TestExecuteLargeInterleavedOutput(t *testing.T) {
	skipOnWindows(t)
	e, _ := newTestEngine()

	const chunks, chunk = 40, 8192
	script := `i=0; blk=$(head -c 8192 /dev/zero | tr '\0' x)
while [ $i -lt 40 ]; do printf %s "$blk"; printf %s "$blk" >&2; i=$((i+1)); done`

	done := make(chan struct{})
	var out Output
	var err error
	go func() {
		defer close(done)
		out, err = e.Execute(script, "")
	}()

	select {
	case <-done:
	case <-time.After(20 * time.Second):
		t.Fatal("execution did not finish; output pipes are not drained concurrently")
	}

	require.NoError(t, err)
	assert.Equal(t, 0, out.ExitCode)
	assert.Equal(t, chunks*chunk, len(out.Stdout))
	assert.Equal(t, chunks*chunk, len(out.Stderr))
	assert.Equal(t, strings.Repeat("x", chunks*chunk), out.Stdout)
}

func TestExecuteSpawnFailure(t *testing.T) {
	e, tr := newTestEngine(filepath.Join(t.TempDir(), "no-such-interpreter"), "-c")

	out, err := e.Execute("echo hello", "")
	assert.ErrorIs(t, err, ErrSpawn)
	assert.Equal(t, FailedOutput, out)
	assert.Equal(t, -1, out.ExitCode)
	assert.Equal(t, []State{StatePipesCreated, StateFailed}, tr.steps)
}

func TestExecuteMissingWorkingDir(t *testing.T) {
	skipOnWindows(t)
	e, _ := newTestEngine()

	_, err := e.Execute("true", filepath.Join(t.TempDir(), "gone"))
	assert.ErrorIs(t, err, ErrSpawn)
}

func TestExecuteDoesNotLeakDescriptors(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("counts entries of /proc/self/fd")
	}
	e, _ := newTestEngine()

	count := func() int {
		entries, err := os.ReadDir("/proc/self/fd")
		require.NoError(t, err)
		return len(entries)
	}

	_, err := e.Execute("true", "")
	require.NoError(t, err)

	before := count()
	for i := 0; i < 20; i++ {
		_, err := e.Execute("echo x; echo y >&2", "")
		require.NoError(t, err)
	}
	_, err = NewEngine([]string{"/nonexistent/sh", "-c"}, zerolog.Nop()).Execute("true", "")
	require.Error(t, err)

	assert.LessOrEqual(t, count(), before)
}

func TestExecuteConcurrentCalls(t *testing.T) {
	skipOnWindows(t)
	e := NewEngine(nil, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := e.Execute("echo $$", "")
			assert.NoError(t, err)
			assert.Equal(t, 0, out.ExitCode)
			assert.NotEmpty(t, out.Stdout)
		}()
	}
	wg.Wait()
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "draining", StateDraining.String())
	assert.Equal(t, "state(42)", State(42).String())
}

func TestDefaultInterpreter(t *testing.T) {
	e := NewEngine(nil, zerolog.Nop())
	assert.Equal(t, DefaultInterpreter(), e.Interpreter())
}
