package scripteval

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// Globals stripped from the sandbox after the base library opens. Scripts
// evaluate state that is handed to them; they never load more code.
var strippedGlobals = []string{"load", "loadstring", "loadfile", "dofile", "require"}

// LuaEvaluator hosts evaluation scripts from a directory. Each call runs in
// a fresh interpreter state with only base, table, string and math opened,
// so scripts cannot touch the filesystem, network or each other.
type LuaEvaluator struct {
	dir     string
	timeout time.Duration
}

func NewLua(dir string, timeout time.Duration) *LuaEvaluator {
	return &LuaEvaluator{dir: dir, timeout: timeout}
}

// Evaluate loads the script for scriptID, calls its evaluate(input) function
// and returns the validated result. The script must return a status string
// and a numeric progress; progress is clamped to [0, 1].
func (e *LuaEvaluator) Evaluate(ctx context.Context, scriptID string, input map[string]any) (res Result, err error) {
	path, err := e.scriptPath(scriptID)
	if err != nil {
		return Result{}, err
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrBadScript, r)
		}
	}()

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	openSandbox(L)
	L.SetContext(ctx)

	if err := L.DoFile(path); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrBadScript, err)
	}

	fn := L.GetGlobal("evaluate")
	if fn.Type() != lua.LTFunction {
		return Result{}, fmt.Errorf("%w: no evaluate function", ErrBadScript)
	}

	if err := L.CallByParam(lua.P{Fn: fn, NRet: 2, Protect: true}, toLua(L, input)); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrBadScript, err)
	}
	progress := L.Get(-1)
	status := L.Get(-2)
	L.Pop(2)

	st, ok := status.(lua.LString)
	if !ok {
		return Result{}, fmt.Errorf("%w: status is %s, want string", ErrBadScript, status.Type())
	}
	num, ok := progress.(lua.LNumber)
	if !ok {
		return Result{}, fmt.Errorf("%w: progress is %s, want number", ErrBadScript, progress.Type())
	}

	return Result{Status: string(st), Progress: clamp(float64(num))}, nil
}

func (e *LuaEvaluator) scriptPath(scriptID string) (string, error) {
	if scriptID == "" || scriptID != filepath.Base(scriptID) || strings.ContainsAny(scriptID, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrScriptNotFound, scriptID)
	}
	path := filepath.Join(e.dir, scriptID+".lua")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %q", ErrScriptNotFound, scriptID)
		}
		return "", fmt.Errorf("stat script: %w", err)
	}
	return path, nil
}

func openSandbox(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range strippedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
}

func toLua(L *lua.LState, value any) lua.LValue {
	switch v := value.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(v)
	case string:
		return lua.LString(v)
	case int:
		return lua.LNumber(v)
	case int64:
		return lua.LNumber(v)
	case float64:
		return lua.LNumber(v)
	case map[string]any:
		tbl := L.NewTable()
		for key, item := range v {
			tbl.RawSetString(key, toLua(L, item))
		}
		return tbl
	case []any:
		tbl := L.NewTable()
		for _, item := range v {
			tbl.Append(toLua(L, item))
		}
		return tbl
	case []string:
		tbl := L.NewTable()
		for _, item := range v {
			tbl.Append(lua.LString(item))
		}
		return tbl
	default:
		return lua.LString(fmt.Sprint(v))
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
