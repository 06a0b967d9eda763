package store

import "log/slog"

// Notifier surfaces the outcome of user initiated operations.
type Notifier interface {
	Success(msg string)
	Error(err error)
}

// LogNotifier reports notifications through slog.
type LogNotifier struct{}

func (LogNotifier) Success(msg string) {
	slog.Info(msg)
}

func (LogNotifier) Error(err error) {
	slog.Error("operation failed", slog.Any("error", err))
}

type NotifierFuncs struct {
	SuccessFunc func(string)
	ErrorFunc   func(error)
}

func (n NotifierFuncs) Success(msg string) {
	if n.SuccessFunc != nil {
		n.SuccessFunc(msg)
	}
}

func (n NotifierFuncs) Error(err error) {
	if n.ErrorFunc != nil {
		n.ErrorFunc(err)
	}
}
