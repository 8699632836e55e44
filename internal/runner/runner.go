// Package runner launches and supervises the game process: it streams and
// classifies game output, confirms startup, applies the auto-restart
// policy and classifies the final outcome.
package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/thrivegame/thrive-launcher-cli/internal/config"
)

// Outcome is the single classification of one finished play session.
type Outcome int

const (
	OutcomeCleanExit Outcome = iota
	OutcomeReportableCrash
	OutcomeNonReportableExit
	OutcomeLauncherFault
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCleanExit:
		return "clean exit"
	case OutcomeReportableCrash:
		return "reportable crash"
	case OutcomeNonReportableExit:
		return "non-reportable exit"
	case OutcomeLauncherFault:
		return "launcher fault"
	default:
		return "unknown"
	}
}

// Advisory is an optional hint shown alongside the outcome.
type Advisory int

const (
	AdvisoryNone Advisory = iota
	AdvisoryExitedQuickly
	AdvisoryMissingRuntime
)

func (a Advisory) String() string {
	switch a {
	case AdvisoryExitedQuickly:
		return "the game exited very quickly; it may be failing to start"
	case AdvisoryMissingRuntime:
		return "exit code 127 usually means a required runtime library is missing"
	default:
		return ""
	}
}

const (
	// SideFileName is written by the game itself to confirm startup.
	SideFileName = "startup_info.json"

	defaultQuickExitThreshold = 10 * time.Second
	defaultJoinTimeout        = 10 * time.Second
	defaultRSSSampleInterval  = 500 * time.Millisecond
	missingRuntimeExitCode    = 127
)

// Options configures one Runner.
type Options struct {
	Executable string
	Settings   config.Settings

	// Store is the storefront the running build came from, empty for
	// normal installs.
	Store string

	// HideLauncher marks the game's arguments that the launcher window
	// is not staying visible.
	HideLauncher bool

	// SupportsStartupDetection gates the auto-restart policy: builds
	// without the startup marker can never be restarted on its absence.
	SupportsStartupDetection bool

	// DefaultSideFile is checked when no data folder was detected from
	// output. Empty disables the fallback.
	DefaultSideFile string

	HeadLines          int
	TailLines          int
	QuickExitThreshold time.Duration
	JoinTimeout        time.Duration
	RSSSampleInterval  time.Duration

	// NewStartID generates the per-launch correlation id.
	NewStartID func() string
}

// Report is the settled state of a whole play session, including any
// restarts.
type Report struct {
	Outcome  Outcome
	Advisory Advisory
	ExitCode int

	ProperlyStarted     bool
	UserRequestedQuit   bool
	WantsLauncherReopen bool

	DataFolder      string
	LogFile         string
	CrashDumps      []string
	SuspiciousDumps []string
	ExceptionBlock  string

	StartCount      int
	Elapsed         time.Duration
	PeakRSS         uint64
	OutputTruncated bool
}

// Runner supervises game runs for one configured executable.
type Runner struct {
	opts Options
}

// New creates a runner, filling in defaults.
func New(opts Options) *Runner {
	if opts.QuickExitThreshold <= 0 {
		opts.QuickExitThreshold = defaultQuickExitThreshold
	}
	if opts.JoinTimeout <= 0 {
		opts.JoinTimeout = defaultJoinTimeout
	}
	if opts.RSSSampleInterval <= 0 {
		opts.RSSSampleInterval = defaultRSSSampleInterval
	}
	if opts.NewStartID == nil {
		opts.NewStartID = uuid.NewString
	}
	if opts.Settings.MaxStartRetries <= 0 {
		opts.Settings.MaxStartRetries = config.DefaultSettings().MaxStartRetries
	}
	return &Runner{opts: opts}
}

// Play runs the game, restarting per policy, and returns the final
// settled report. Spawn failures classify as a launcher fault instead of
// returning an error so there is one unified exit path.
func (r *Runner) Play(ctx context.Context) (*Report, error) {
	startCount := 0
	for {
		startCount++
		report, restart := r.runOnce(ctx, startCount)
		if restart && ctx.Err() == nil {
			log.Printf("game did not start properly, restarting (attempt %d of %d)",
				startCount+1, r.opts.Settings.MaxStartRetries)
			continue
		}
		report.StartCount = startCount
		return report, nil
	}
}

// attempt holds one run's mutable classification state. Only the two
// stream readers mutate it, each under mu.
type attempt struct {
	buf     *outputBuffer
	startID string

	mu              sync.Mutex
	properlyStarted bool
	userQuit        bool
	wantsReopen     bool
	dataFolder      string
	logFile         string

	exceptionLines  []string
	exceptionStream int // 0 none, 1 stdout, 2 stderr
	exceptionDone   bool
}

const (
	streamStdout = 1
	streamStderr = 2
)

func (a *attempt) handleLine(line string, stream int) {
	// Vendor SDK banners on stderr classify as normal output.
	if stream == streamStderr && isBenignStderr(line) {
		stream = streamStdout
	}

	inHead := a.buf.append(line)

	a.mu.Lock()
	defer a.mu.Unlock()

	// Inside an exception block only the starting stream contributes,
	// to keep interleaved output from corrupting the capture.
	if a.exceptionStream == stream && !a.exceptionDone {
		if strings.Contains(line, exceptionEndMarker) {
			a.exceptionDone = true
			return
		}
		a.exceptionLines = append(a.exceptionLines, line)
		return
	}
	if a.exceptionStream == 0 && strings.Contains(line, exceptionStartMarker) {
		a.exceptionStream = stream
		return
	}

	if inHead && strings.Contains(line, startupSuccessMarker) {
		a.properlyStarted = true
	}
	if a.logFile == "" {
		if folder, file, ok := parseLogsLocation(line); ok {
			a.logFile = file
			a.dataFolder = filepath.Dir(folder)
		}
	}
	if strings.Contains(line, userQuitMarker) {
		a.userQuit = true
	}
	if strings.Contains(line, launcherReopenMarker) {
		a.wantsReopen = true
	}
}

func (r *Runner) runOnce(ctx context.Context, startCount int) (*Report, bool) {
	a := &attempt{
		buf:     newOutputBuffer(r.opts.HeadLines, r.opts.TailLines),
		startID: r.opts.NewStartID(),
	}

	cmd := exec.Command(r.opts.Executable, r.buildArgs(a.startID)...)
	cmd.Dir = filepath.Dir(r.opts.Executable)
	cmd.Env = buildEnv()
	// The game never reads stdin; an empty reader avoids inheriting ours.
	cmd.Stdin = strings.NewReader("")

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &Report{Outcome: OutcomeLauncherFault, ExitCode: -1}, false
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &Report{Outcome: OutcomeLauncherFault, ExitCode: -1}, false
	}

	started := time.Now()
	if err := cmd.Start(); err != nil {
		log.Printf("failed to launch %s: %v", r.opts.Executable, err)
		return &Report{Outcome: OutcomeLauncherFault, ExitCode: -1}, false
	}

	var readers sync.WaitGroup
	readers.Add(2)
	go r.readStream(&readers, stdout, streamStdout, a)
	go r.readStream(&readers, stderr, streamStderr, a)

	peakRSS := r.sampleRSS(cmd.Process.Pid)

	waitCh := make(chan error, 1)
	go func() {
		readers.Wait()
		waitCh <- cmd.Wait()
	}()

	var waitErr error
	select {
	case waitErr = <-waitCh:
	case <-ctx.Done():
		// Cooperative termination only: ask, then wait a bounded time
		// for the monitoring goroutine before giving up on the join.
		_ = terminate(cmd)
		select {
		case waitErr = <-waitCh:
		case <-time.After(r.opts.JoinTimeout):
			log.Printf("gave up waiting for the game process to exit")
			waitErr = ctx.Err()
		}
	}
	elapsed := time.Since(started)

	return r.handleExit(ctx, a, exitCodeOf(waitErr), elapsed, startCount, peakRSS())
}

func (r *Runner) readStream(wg *sync.WaitGroup, pipe interface{ Read([]byte) (int, error) }, stream int, a *attempt) {
	defer wg.Done()
	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		a.handleLine(scanner.Text(), stream)
	}
}

// sampleRSS starts a background sampler and returns a function that stops
// it and yields the peak observed RSS.
func (r *Runner) sampleRSS(pid int) func() uint64 {
	var mu sync.Mutex
	var peak uint64
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		proc, err := process.NewProcess(int32(pid))
		if err != nil {
			return
		}
		ticker := time.NewTicker(r.opts.RSSSampleInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if mem, err := proc.MemoryInfo(); err == nil {
					mu.Lock()
					if mem.RSS > peak {
						peak = mem.RSS
					}
					mu.Unlock()
				}
			}
		}
	}()

	return func() uint64 {
		close(stop)
		<-done
		mu.Lock()
		defer mu.Unlock()
		return peak
	}
}

// handleExit is the single exit-handling path: it settles every
// classification before the report is handed out.
func (r *Runner) handleExit(ctx context.Context, a *attempt, exitCode int, elapsed time.Duration, startCount int, peakRSS uint64) (*Report, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Step 1: secondary startup check through the correlation side file.
	if !a.properlyStarted {
		a.properlyStarted = r.sideFileConfirms(a.dataFolder, a.startID)
	}

	// Step 3: restart policy. The report is built regardless so a
	// cancellation racing the decision still has a settled report to
	// return instead of a nil dereference.
	restart := !a.properlyStarted &&
		r.opts.SupportsStartupDetection &&
		!a.userQuit && !a.wantsReopen &&
		r.opts.Settings.AutoRestart &&
		startCount < r.opts.Settings.MaxStartRetries &&
		ctx.Err() == nil

	report := &Report{
		ExitCode:            exitCode,
		ProperlyStarted:     a.properlyStarted,
		UserRequestedQuit:   a.userQuit,
		WantsLauncherReopen: a.wantsReopen,
		DataFolder:          a.dataFolder,
		LogFile:             a.logFile,
		Elapsed:             elapsed,
		PeakRSS:             peakRSS,
	}

	// Steps 4 and 5: advisories.
	if elapsed < r.opts.QuickExitThreshold && !a.properlyStarted && !a.userQuit {
		report.Advisory = AdvisoryExitedQuickly
	}
	if exitCode == missingRuntimeExitCode {
		report.Advisory = AdvisoryMissingRuntime
	}

	// Step 6: exactly one outcome.
	lines, truncated := a.buf.snapshot()
	report.OutputTruncated = truncated
	report.CrashDumps, report.SuspiciousDumps = scanCrashDumps(lines)
	for _, p := range report.SuspiciousDumps {
		log.Printf("output mentions crash dump %s but it does not exist", p)
	}
	if a.exceptionStream != 0 {
		report.ExceptionBlock = strings.Join(a.exceptionLines, "\n")
	}

	switch {
	case a.exceptionStream != 0 || len(report.CrashDumps) > 0:
		report.Outcome = OutcomeReportableCrash
	case exitCode == 0:
		report.Outcome = OutcomeCleanExit
	default:
		report.Outcome = OutcomeNonReportableExit
	}
	return report, restart
}

// sideFileConfirms reads the startup side file and compares its StartId
// against this run's correlation id.
func (r *Runner) sideFileConfirms(dataFolder, startID string) bool {
	var path string
	if dataFolder != "" {
		path = filepath.Join(dataFolder, SideFileName)
	} else if r.opts.DefaultSideFile != "" {
		path = r.opts.DefaultSideFile
	} else {
		return false
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var side struct {
		StartID   string `json:"StartId"`
		StartedAt string `json:"StartedAt"`
	}
	if err := json.Unmarshal(raw, &side); err != nil {
		return false
	}
	return side.StartID == startID
}

func (r *Runner) buildArgs(startID string) []string {
	s := r.opts.Settings
	args := []string{
		"--thrive-started-by-launcher",
		"--thrive-start-id=" + startID,
	}
	if s.DisableVideos {
		args = append(args, "--thrive-disable-videos")
	}
	if s.ForceGLBackend {
		args = append(args, "--video-driver", "opengl3")
	}
	if s.AudioLatencyMS > 0 {
		args = append(args, "--audio-output-latency", strconv.Itoa(s.AudioLatencyMS))
	}
	if r.opts.Store != "" {
		args = append(args, "--thrive-store="+r.opts.Store)
	}
	if r.opts.HideLauncher {
		args = append(args, "--thrive-launcher-hidden")
	}
	return append(args, s.ExtraFlags...)
}

// buildEnv clears LD_PRELOAD to empty instead of leaving it absent, so a
// preload the launcher itself was started under never leaks into the game.
func buildEnv() []string {
	env := os.Environ()
	if runtime.GOOS == "windows" {
		return env
	}
	out := env[:0]
	for _, kv := range env {
		if !strings.HasPrefix(kv, "LD_PRELOAD=") {
			out = append(out, kv)
		}
	}
	return append(out, "LD_PRELOAD=")
}

// terminate asks the game to exit. Cooperative only; no forced kill.
func terminate(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Signal(syscall.SIGTERM)
}

func exitCodeOf(waitErr error) int {
	if waitErr == nil {
		return 0
	}
	if ee, ok := waitErr.(*exec.ExitError); ok {
		return ee.ExitCode()
	}
	return -1
}
