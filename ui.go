package polish

import "sync"

// Sink is the presentation surface that shows one of three mutually exclusive views.
type Sink interface {
	ShowLoading(message string)
	ShowResult(text string)
	ShowError(message string)
}

// Trigger is the control that starts a submission.
type Trigger interface {
	SetEnabled(enabled bool)
}

// TriggerFunc adapts a function to Trigger.
type TriggerFunc func(enabled bool)

// SetEnabled calls f.
func (f TriggerFunc) SetEnabled(enabled bool) { f(enabled) }

// View identifies what the sink currently shows.
type View int

// Views.
const (
	ViewIdle View = iota
	ViewLoading
	ViewResult
	ViewError
)

func (v View) String() string {
	switch v {
	case ViewIdle:
		return "idle"
	case ViewLoading:
		return "loading"
	case ViewResult:
		return "result"
	case ViewError:
		return "error"
	default:
		return "unknown"
	}
}

// Messages are the user-facing strings shown by the orchestrator.
type Messages struct {
	Loading    string // First attempt in progress
	Retrying   string // A fallback attempt is in progress
	EmptyInput string
	Failed     string // Prefix of the final error; the last failure detail is appended
}

// DefaultMessages are the service's Korean UI strings.
var DefaultMessages = Messages{
	Loading:    "모델이 문장을 다듬는 중입니다...",
	Retrying:   "다른 경로로 다시 시도하는 중입니다...",
	EmptyInput: "⚠️ 텍스트를 입력해 주세요.",
	Failed:     "❌ 처리에 실패했습니다. 잠시 후 다시 시도해 주세요.",
}

func (m Messages) withDefaults() Messages {
	if m.Loading == "" {
		m.Loading = DefaultMessages.Loading
	}
	if m.Retrying == "" {
		m.Retrying = DefaultMessages.Retrying
	}
	if m.EmptyInput == "" {
		m.EmptyInput = DefaultMessages.EmptyInput
	}
	if m.Failed == "" {
		m.Failed = DefaultMessages.Failed
	}
	return m
}

// UIState owns the render sink and the trigger. It is only changed through its
// transition methods, each of which replaces the sink content wholesale.
type UIState struct {
	mu      sync.Mutex
	sink    Sink
	trigger Trigger
	view    View
	content string
	enabled bool
}

// NewUIState wraps sink and trigger. Either may be nil.
func NewUIState(sink Sink, trigger Trigger) *UIState {
	return &UIState{sink: sink, trigger: trigger, enabled: true}
}

// View returns the current view and its content.
func (u *UIState) View() (View, string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.view, u.content
}

// Enabled reports whether the trigger is enabled.
func (u *UIState) Enabled() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.enabled
}

func (u *UIState) showLoading(message string) {
	u.set(ViewLoading, message)
	if u.sink != nil {
		u.sink.ShowLoading(message)
	}
}

func (u *UIState) showResult(text string) {
	u.set(ViewResult, text)
	if u.sink != nil {
		u.sink.ShowResult(text)
	}
}

func (u *UIState) showError(message string) {
	u.set(ViewError, message)
	if u.sink != nil {
		u.sink.ShowError(message)
	}
}

func (u *UIState) disable() { u.setEnabled(false) }

func (u *UIState) enable() { u.setEnabled(true) }

func (u *UIState) set(v View, content string) {
	u.mu.Lock()
	u.view = v
	u.content = content
	u.mu.Unlock()
}

func (u *UIState) setEnabled(enabled bool) {
	u.mu.Lock()
	u.enabled = enabled
	u.mu.Unlock()
	if u.trigger != nil {
		u.trigger.SetEnabled(enabled)
	}
}
