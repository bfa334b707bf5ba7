package bridge

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Translator converts a native-side failure into a managed exception.
type Translator func(err error) *Exception

// Translate is the default Translator.
func Translate(err error) *Exception {
	if err == nil {
		return nil
	}

	var exc *Exception
	if errors.As(err, &exc) {
		return exc
	}

	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return &Exception{Kind: KindIllegalState, Message: err.Error(), Cause: err}
	}

	var rtErr runtime.Error
	if errors.As(err, &rtErr) {
		return &Exception{Kind: runtimeKind(rtErr), Message: rtErr.Error(), Cause: err}
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &Exception{Kind: KindInterrupted, Message: err.Error(), Cause: err}
	case errors.Is(err, ErrNoSuchMethod):
		return &Exception{Kind: KindNoSuchMethod, Message: err.Error(), Cause: err}
	}

	return &Exception{Kind: KindRuntime, Message: err.Error(), Cause: err}
}

func runtimeKind(err runtime.Error) Kind {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "index out of range"), strings.Contains(msg, "slice bounds out of range"):
		return KindOutOfBounds
	case strings.Contains(msg, "nil pointer dereference"), strings.Contains(msg, "invalid memory address"):
		return KindNilPointer
	default:
		return KindRuntime
	}
}

// fromPanic turns a recovered value into an exception.
func fromPanic(r any, translate Translator, captureStack bool) *Exception {
	var exc *Exception
	if err, ok := r.(error); ok {
		if exc = translate(err); exc == nil {
			exc = Translate(err)
		}
	} else {
		exc = &Exception{Kind: KindUnknown, Message: fmt.Sprintf("panic: %v", r)}
	}
	if captureStack && exc.Stack == "" {
		exc = exc.withStack(string(debug.Stack()))
	}
	return exc
}
