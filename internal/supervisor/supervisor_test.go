package supervisor

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"tools.zach/dev/procsvc/internal/shutdown"
)

// childModeEnv switches the test binary into a child helper. Children are
// spawned without arguments, so the mode travels through the inherited
// environment.
const childModeEnv = "PROCSVC_SUPERVISOR_TEST_CHILD"

func TestMain(m *testing.M) {
	switch mode := os.Getenv(childModeEnv); mode {
	case "":
		os.Exit(m.Run())
	case "sleep":
		time.Sleep(time.Minute)
		os.Exit(0)
	default:
		code, err := strconv.Atoi(mode)
		if err != nil {
			os.Exit(99)
		}
		os.Exit(code)
	}
}

// ///////////////////////////////////////////////
// Fakes
// ///////////////////////////////////////////////

// pollResult is one scripted answer from fakeProcess.Poll.
type pollResult struct {
	status ExitStatus
	err    error
}

// fakeProcess replays polls in order, repeating the last one.
type fakeProcess struct {
	mu    sync.Mutex
	polls []pollResult
	calls int
	kills int
	// onPoll runs after every poll; used to send a stop mid-run.
	onPoll func(n int)
}

func (f *fakeProcess) Pid() int { return 4242 }

func (f *fakeProcess) Poll() (ExitStatus, error) {
	f.mu.Lock()
	i := min(f.calls, len(f.polls)-1)
	f.calls++
	n := f.calls
	r := f.polls[i]
	f.mu.Unlock()
	if f.onPoll != nil {
		f.onPoll(n)
	}
	return r.status, r.err
}

func (f *fakeProcess) Kill() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kills++
	return errors.New("already gone")
}

// fakeSpawner hands out proc or fails with err.
type fakeSpawner struct {
	proc   Process
	err    error
	spawns []string
}

func (f *fakeSpawner) Spawn(path string) (Process, error) {
	f.spawns = append(f.spawns, path)
	if f.err != nil {
		return nil, f.err
	}
	return f.proc, nil
}

// recordingSpawner wraps a real spawner and counts kill requests.
type recordingSpawner struct {
	inner Spawner
	mu    sync.Mutex
	kills int
}

func (r *recordingSpawner) Spawn(path string) (Process, error) {
	p, err := r.inner.Spawn(path)
	if err != nil {
		return nil, err
	}
	return &recordingProcess{Process: p, r: r}, nil
}

type recordingProcess struct {
	Process
	r *recordingSpawner
}

func (p *recordingProcess) Kill() error {
	p.r.mu.Lock()
	p.r.kills++
	p.r.mu.Unlock()
	return p.Process.Kill()
}

// existingTarget returns a path that resolves, for runs whose spawner is faked.
func existingTarget(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "target.exe")
	if err := os.WriteFile(path, []byte("x"), 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func running() pollResult { return pollResult{} }

func exited(code uint32) pollResult {
	return pollResult{status: ExitStatus{Exited: true, Code: code, Known: true}}
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

func TestRunArgumentCount(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"nil", nil},
		{"empty", []string{}},
		{"service_name_only", []string{"svc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := &fakeSpawner{proc: &fakeProcess{polls: []pollResult{exited(0)}}}
			_, rx := shutdown.New()
			got := New(Options{Spawner: sp}).Run(tt.args, rx)
			if got != CodeArgumentCountError {
				t.Errorf("Run(%q) = %v, want %v", tt.args, got, CodeArgumentCountError)
			}
			if len(sp.spawns) != 0 {
				t.Errorf("spawned %v, want no spawn", sp.spawns)
			}
		})
	}
}

func TestRunArgumentDecode(t *testing.T) {
	tests := []struct {
		name string
		arg  string
	}{
		{"invalid_utf8", "C:\\bad\xff\xfe.exe"},
		{"replacement_rune", "C:\\bad\uFFFD.exe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := &fakeSpawner{}
			_, rx := shutdown.New()
			got := New(Options{Spawner: sp}).Run([]string{"svc", tt.arg}, rx)
			if got != CodeArgumentDecodeError {
				t.Errorf("Run = %v, want %v", got, CodeArgumentDecodeError)
			}
			if len(sp.spawns) != 0 {
				t.Errorf("spawned %v, want no spawn", sp.spawns)
			}
		})
	}
}

func TestRunTargetNotFound(t *testing.T) {
	sp := &fakeSpawner{}
	_, rx := shutdown.New()
	missing := filepath.Join(t.TempDir(), "no-such-target")

	got := New(Options{Spawner: sp}).Run([]string{"svc", missing}, rx)
	if got != CodeTargetNotFound {
		t.Errorf("Run = %v, want %v", got, CodeTargetNotFound)
	}
	if len(sp.spawns) != 0 {
		t.Errorf("spawned %v, want no spawn", sp.spawns)
	}
}

func TestRunTargetNotAllowed(t *testing.T) {
	sp := &fakeSpawner{proc: &fakeProcess{polls: []pollResult{exited(0)}}}
	_, rx := shutdown.New()
	target := existingTarget(t)

	s := New(Options{Spawner: sp, Allow: []string{filepath.Join(t.TempDir(), "**")}})
	if got := s.Run([]string{"svc", target}, rx); got != CodeTargetNotFound {
		t.Errorf("Run = %v, want %v", got, CodeTargetNotFound)
	}
	if len(sp.spawns) != 0 {
		t.Errorf("spawned %v, want no spawn", sp.spawns)
	}
}

func TestRunTargetAllowed(t *testing.T) {
	sp := &fakeSpawner{proc: &fakeProcess{polls: []pollResult{exited(0)}}}
	_, rx := shutdown.New()
	target := existingTarget(t)
	resolved, err := Resolve(target)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	s := New(Options{Spawner: sp, Allow: []string{filepath.Join(filepath.Dir(resolved), "*.exe")}})
	if got := s.Run([]string{"svc", target}, rx); got != CodeSuccess {
		t.Errorf("Run = %v, want %v", got, CodeSuccess)
	}
	if len(sp.spawns) != 1 || sp.spawns[0] != resolved {
		t.Errorf("spawns = %v, want [%s]", sp.spawns, resolved)
	}
}

func TestRunSpawnFailure(t *testing.T) {
	sp := &fakeSpawner{err: ErrChildProcess}
	_, rx := shutdown.New()

	got := New(Options{Spawner: sp}).Run([]string{"svc", existingTarget(t)}, rx)
	if got != CodeChildProcessError {
		t.Errorf("Run = %v, want %v", got, CodeChildProcessError)
	}
}

// ///////////////////////////////////////////////
// Polling Loop
// ///////////////////////////////////////////////

func TestRunExitCodes(t *testing.T) {
	tests := []struct {
		name  string
		polls []pollResult
		want  Code
	}{
		{"immediate_zero", []pollResult{exited(0)}, CodeSuccess},
		{"immediate_nonzero", []pollResult{exited(42)}, Code(42)},
		{"after_running", []pollResult{running(), running(), exited(7)}, Code(7)},
		{"no_exit_code", []pollResult{{status: ExitStatus{Exited: true}}}, CodeUnknownError},
		{"poll_error_then_exit", []pollResult{{err: errors.New("query failed")}, exited(0)}, CodeSuccess},
		{"large_windows_code", []pollResult{exited(0xC0000005)}, Code(0xC0000005)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &fakeProcess{polls: tt.polls}
			_, rx := shutdown.New()
			got := New(Options{Spawner: &fakeSpawner{proc: proc}}).Run([]string{"svc", existingTarget(t)}, rx)
			if got != tt.want {
				t.Errorf("Run = %v, want %v", got, tt.want)
			}
			if proc.kills != 0 {
				t.Errorf("kills = %d, want 0", proc.kills)
			}
		})
	}
}

func TestRunStopRequest(t *testing.T) {
	tx, rx := shutdown.New()
	proc := &fakeProcess{
		polls: []pollResult{running()},
		onPoll: func(n int) {
			if n == 3 {
				tx.Send()
			}
		},
	}

	got := New(Options{Spawner: &fakeSpawner{proc: proc}}).Run([]string{"svc", existingTarget(t)}, rx)
	if got != CodeStopService {
		t.Errorf("Run = %v, want %v", got, CodeStopService)
	}
	if proc.kills != 1 {
		t.Errorf("kills = %d, want 1", proc.kills)
	}
}

func TestRunStopAfterPollError(t *testing.T) {
	tx, rx := shutdown.New()
	tx.Send()
	proc := &fakeProcess{polls: []pollResult{{err: errors.New("query failed")}, running()}}

	got := New(Options{Spawner: &fakeSpawner{proc: proc}}).Run([]string{"svc", existingTarget(t)}, rx)
	if got != CodeStopService {
		t.Errorf("Run = %v, want %v", got, CodeStopService)
	}
	if proc.calls != 2 {
		t.Errorf("polls = %d, want 2 (stop is not checked after a failed poll)", proc.calls)
	}
}

func TestRunExitWinsOverSimultaneousStop(t *testing.T) {
	tx, rx := shutdown.New()
	tx.Send()
	proc := &fakeProcess{polls: []pollResult{exited(9)}}

	got := New(Options{Spawner: &fakeSpawner{proc: proc}}).Run([]string{"svc", existingTarget(t)}, rx)
	if got != Code(9) {
		t.Errorf("Run = %v, want 9", got)
	}
	if proc.kills != 0 {
		t.Errorf("kills = %d, want 0", proc.kills)
	}
}

func TestRunSecondStopHasNoEffect(t *testing.T) {
	tx, rx := shutdown.New()
	proc := &fakeProcess{
		polls: []pollResult{running()},
		onPoll: func(n int) {
			tx.Send()
			tx.Send()
		},
	}

	got := New(Options{Spawner: &fakeSpawner{proc: proc}}).Run([]string{"svc", existingTarget(t)}, rx)
	if got != CodeStopService {
		t.Errorf("Run = %v, want %v", got, CodeStopService)
	}
	if proc.kills != 1 {
		t.Errorf("kills = %d, want 1", proc.kills)
	}
	if tx.Send() {
		t.Error("Send after the run = true, want false")
	}
}

// ///////////////////////////////////////////////
// Real Child Processes
// ///////////////////////////////////////////////

func testBinary(t *testing.T) string {
	t.Helper()
	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable: %v", err)
	}
	return exe
}

func TestRunRealChildExitCode(t *testing.T) {
	for _, want := range []Code{0, 3, 17} {
		t.Run(want.String(), func(t *testing.T) {
			t.Setenv(childModeEnv, strconv.Itoa(int(want)))
			_, rx := shutdown.New()
			s := New(Options{PollInterval: 5 * time.Millisecond})
			if got := s.Run([]string{"svc", testBinary(t)}, rx); got != want {
				t.Errorf("Run = %v, want %v", got, want)
			}
		})
	}
}

func TestRunRealChildStopped(t *testing.T) {
	t.Setenv(childModeEnv, "sleep")
	tx, rx := shutdown.New()
	sp := &recordingSpawner{inner: ExecSpawner{}}
	s := New(Options{PollInterval: 5 * time.Millisecond, Spawner: sp})

	timer := time.AfterFunc(200*time.Millisecond, func() { tx.Send() })
	defer timer.Stop()

	done := make(chan Code, 1)
	go func() { done <- s.Run([]string{"svc", testBinary(t)}, rx) }()

	select {
	case got := <-done:
		if got != CodeStopService {
			t.Errorf("Run = %v, want %v", got, CodeStopService)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after a stop request")
	}

	sp.mu.Lock()
	defer sp.mu.Unlock()
	if sp.kills != 1 {
		t.Errorf("kills = %d, want 1", sp.kills)
	}
}

func TestRunRealChildNotExecutable(t *testing.T) {
	dir := t.TempDir()
	_, rx := shutdown.New()
	if got := New(Options{}).Run([]string{"svc", dir}, rx); got != CodeChildProcessError {
		t.Errorf("Run(directory) = %v, want %v", got, CodeChildProcessError)
	}
}
