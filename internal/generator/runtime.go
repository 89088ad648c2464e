package generator

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/toyz/as2amd/internal/errors"
	"github.com/toyz/as2amd/internal/models"
)

// loader is a minimal synchronous AMD loader. A module that is required
// again while its own factory runs is a circular load and throws.
const loader = `
var __defs = {}, __loaded = {};
function define(deps, factory) {
	__defs[__current] = { deps: deps, factory: factory, state: 0 };
}
function require(name) {
	if (Object.prototype.hasOwnProperty.call(__loaded, name)) {
		return __loaded[name];
	}
	var def = __defs[name];
	if (!def) {
		throw new Error("module not found: " + name);
	}
	if (def.state === 1) {
		throw new Error("circular load: " + name);
	}
	def.state = 1;
	var args = [];
	for (var i = 0; i < def.deps.length; i++) {
		args.push(require(def.deps[i]));
	}
	__loaded[name] = def.factory.apply(null, args);
	return __loaded[name];
}
`

// Runtime evaluates generated modules in an embedded JavaScript engine
type Runtime struct {
	vm      *goja.Runtime
	require goja.Callable
}

// NewRuntime defines every module with the loader without running any factory
func NewRuntime(mods []*models.GeneratedModule) (*Runtime, error) {
	vm := goja.New()

	console := vm.NewObject()
	discard := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	if err := console.Set("log", discard); err != nil {
		return nil, err
	}
	if err := vm.Set("console", console); err != nil {
		return nil, err
	}

	if _, err := vm.RunString(loader); err != nil {
		return nil, fmt.Errorf("failed to install loader: %w", err)
	}
	for _, m := range mods {
		if err := vm.Set("__current", m.ID.LogicalName()); err != nil {
			return nil, err
		}
		if _, err := vm.RunScript(m.ID.String(), m.Content); err != nil {
			return nil, errors.NewGenerationError(m.ID.String(), "evaluate", err)
		}
	}

	require, ok := goja.AssertFunction(vm.Get("require"))
	if !ok {
		return nil, fmt.Errorf("loader did not define require")
	}
	return &Runtime{vm: vm, require: require}, nil
}

// Require loads a module by loader name and returns what its factory returned
func (r *Runtime) Require(name string) (*goja.Object, error) {
	v, err := r.require(goja.Undefined(), r.vm.ToValue(name))
	if err != nil {
		return nil, err
	}
	return v.ToObject(r.vm), nil
}

// Eval runs a script in the runtime, where require is in scope
func (r *Runtime) Eval(script string) (goja.Value, error) {
	return r.vm.RunString(script)
}

// Verify compiles every module, then loads each one. Syntax errors, missing
// dependencies and circular loads all surface as GenerationErrors.
func Verify(mods []*models.GeneratedModule) error {
	var errs *errors.MultipleErrors
	for _, m := range mods {
		if _, err := goja.Compile(m.ID.String(), m.Content, false); err != nil {
			errors.AddToMultiple(&errs, errors.NewGenerationError(m.ID.String(), "compile", err), errors.GenerationErrorCode)
		}
	}
	if errs != nil {
		return errs
	}

	rt, err := NewRuntime(mods)
	if err != nil {
		return err
	}
	for _, m := range mods {
		if _, err := rt.Require(m.ID.LogicalName()); err != nil {
			errors.AddToMultiple(&errs, errors.NewGenerationError(m.ID.String(), "load", err), errors.GenerationErrorCode)
		}
	}
	if errs != nil {
		return errs
	}
	return nil
}
