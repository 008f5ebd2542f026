package client

import "sync"

type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
	ToastInfo    ToastKind = "info"
)

type Toast struct {
	Kind    ToastKind
	Title   string
	Message string
}

// Notifier shows transient messages to the user. Pages receive one
// explicitly rather than reaching for a global.
type Notifier interface {
	Notify(Toast)
}

type NotifierFunc func(Toast)

func (f NotifierFunc) Notify(t Toast) { f(t) }

// Discard drops every toast.
var Discard Notifier = NotifierFunc(func(Toast) {})

// ToastLog records toasts in order. It is safe for concurrent use.
type ToastLog struct {
	mu     sync.Mutex
	toasts []Toast
}

func (l *ToastLog) Notify(t Toast) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.toasts = append(l.toasts, t)
}

func (l *ToastLog) Toasts() []Toast {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Toast, len(l.toasts))
	copy(out, l.toasts)
	return out
}

// Last returns the most recent toast and whether there was one.
func (l *ToastLog) Last() (Toast, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.toasts) == 0 {
		return Toast{}, false
	}
	return l.toasts[len(l.toasts)-1], true
}
