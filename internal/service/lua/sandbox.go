package lua

import (
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/sapphire/internal/logging"
)

// globals that load code from outside the compiled chunk.
var blockedGlobals = []string{
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"require",
	"module",
	"collectgarbage",
}

// sandbox strips code loading from the base library and routes print to
// the log.
func sandbox(L *lua.LState, log *logging.Logger) {
	for _, name := range blockedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		log.Info(strings.Join(parts, "\t"))
		return 0
	}))
}
