// Package script runs user-supplied widget change callbacks. The editor
// host's native extension language is JavaScript, so callbacks arrive as JS
// source; they are evaluated in a sandboxed goja runtime with the Node-style
// globals stripped out.
package script

import (
	"fmt"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/promptkit/textbatch/pkg/host"
)

// Hook is a compiled widget callback. The source must evaluate to a function
// of one argument: the newly assigned widget value.
//
// Hooks are not safe for concurrent use; the relay invokes them from the
// event loop goroutine only.
type Hook struct {
	name string
	vm   *goja.Runtime
	fn   goja.Callable
}

// Compile builds a hook from JavaScript source.
func Compile(name, src string) (*Hook, error) {
	if src == "" {
		return nil, fmt.Errorf("hook %s: source is empty", name)
	}

	vm := goja.New()
	if err := sandbox(vm); err != nil {
		return nil, fmt.Errorf("hook %s: %w", name, err)
	}

	val, err := vm.RunString(src)
	if err != nil {
		return nil, fmt.Errorf("hook %s: compile: %w", name, err)
	}
	fn, ok := goja.AssertFunction(val)
	if !ok {
		return nil, fmt.Errorf("hook %s: source does not evaluate to a function", name)
	}

	return &Hook{name: name, vm: vm, fn: fn}, nil
}

// Invoke runs the hook with the given value and returns its result.
func (h *Hook) Invoke(value interface{}) (interface{}, error) {
	res, err := h.fn(goja.Undefined(), h.vm.ToValue(value))
	if err != nil {
		return nil, fmt.Errorf("hook %s: %w", h.name, err)
	}
	if res == nil || goja.IsUndefined(res) || goja.IsNull(res) {
		return nil, nil
	}
	return res.Export(), nil
}

// Callback adapts the hook to a widget change callback. Script failures are
// logged and swallowed; a broken callback must not break feedback routing.
func (h *Hook) Callback(logger *zap.Logger) host.WidgetCallback {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return func(value interface{}) {
		if _, err := h.Invoke(value); err != nil {
			logger.Error("Widget callback failed",
				zap.String("hook", h.name), zap.Error(err))
		}
	}
}

// sandbox strips runtime globals a widget callback has no business touching.
func sandbox(vm *goja.Runtime) error {
	dangerousGlobals := []string{
		"require",
		"module",
		"exports",
		"process",
		"global",
		"__dirname",
		"__filename",
		"Buffer",
		"setImmediate",
		"clearImmediate",
	}
	for _, name := range dangerousGlobals {
		if err := vm.Set(name, goja.Undefined()); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	return nil
}
