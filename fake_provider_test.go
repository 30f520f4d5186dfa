package lesst

import (
	"errors"
	"sync"

	"go.alt-gnome.ru/lesst/providers"
)

type fakeSession struct {
	stdout chan string
	stderr chan string

	mu         sync.Mutex
	writes     []string
	writeErr   error
	killErr    error
	killed     bool
	interrupts int
	exitCode   int
	exited     bool
	closeOnce  sync.Once
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		stdout:   make(chan string, 16),
		stderr:   make(chan string, 16),
		exitCode: -1,
	}
}

func (s *fakeSession) Write(input []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.writes = append(s.writes, string(input))
	return nil
}

func (s *fakeSession) Stdout() <-chan string { return s.stdout }
func (s *fakeSession) Stderr() <-chan string { return s.stderr }

func (s *fakeSession) Exited() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode, s.exited
}

func (s *fakeSession) Wait() (int, error) {
	code, _ := s.Exited()
	return code, nil
}

func (s *fakeSession) Interrupt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interrupts++
	return nil
}

func (s *fakeSession) Kill() error {
	s.mu.Lock()
	s.killed = true
	err := s.killErr
	s.mu.Unlock()
	s.closeStreams()
	return err
}

// exit marks the process finished and closes its output, as a real exit does.
func (s *fakeSession) exit(code int) {
	s.mu.Lock()
	s.exitCode = code
	s.exited = true
	s.mu.Unlock()
	s.closeStreams()
}

func (s *fakeSession) closeStreams() {
	s.closeOnce.Do(func() {
		close(s.stdout)
		close(s.stderr)
	})
}

func (s *fakeSession) Writes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.writes...)
}

func (s *fakeSession) Killed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.killed
}

// fakeProvider hands out a new fakeSession per StartCommand call.
type fakeProvider struct {
	mu       sync.Mutex
	err      error
	sessions []*fakeSession
	commands []providers.Command
	// onStart, if set, prepares each new session (e.g. queues output).
	onStart func(s *fakeSession)
}

func (p *fakeProvider) StartCommand(cmd providers.Command) (providers.InteractiveSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	s := newFakeSession()
	if p.onStart != nil {
		p.onStart(s)
	}
	p.sessions = append(p.sessions, s)
	p.commands = append(p.commands, cmd)
	return s, nil
}

func (p *fakeProvider) Starts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

func (p *fakeProvider) Session(i int) *fakeSession {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessions[i]
}

var errFake = errors.New("fake failure")

// recordingPrinter keeps the events it received.
type recordingPrinter struct {
	mu     sync.Mutex
	events []string
	echoed map[Channel]string
}

func (p *recordingPrinter) add(e string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPrinter) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func (p *recordingPrinter) Echoed(ch Channel) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.echoed[ch]
}

func (p *recordingPrinter) Section(title string) { p.add("section:" + title) }
func (p *recordingPrinter) Command(string) { p.add("command") }
func (p *recordingPrinter) Echo(ch Channel, chunk string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.echoed == nil {
		p.echoed = map[Channel]string{}
	}
	p.echoed[ch] += chunk
}
func (p *recordingPrinter) Input(line string) { p.add("input:" + line) }
func (p *recordingPrinter) CaseStart(_ int, desc string) { p.add("start:" + desc) }
func (p *recordingPrinter) AssertionFailed(message string) { p.add("assertion:" + message) }
func (p *recordingPrinter) Error(message string, err error) { p.add("error:" + message) }
func (p *recordingPrinter) Summary(*Report) { p.add("summary") }
func (p *recordingPrinter) Complete() { p.add("complete") }
func (p *recordingPrinter) CaseEnd(_ int, desc string, failed bool) {
	if failed {
		p.add("failed:" + desc)
		return
	}
	p.add("done:" + desc)
}
