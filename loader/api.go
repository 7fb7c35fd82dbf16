package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// registerAPI registers the Lua constructors as globals.
func registerAPI(L *lua.LState, coll *collector) {
	// Story { title = "...", ... }
	L.SetGlobal("Story", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		coll.story = tbl
		return 0
	}))

	// Character "Name" { ... } — curried: Character("Name") returns a
	// function that takes a table.
	L.SetGlobal("Character", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.characters = append(coll.characters, rawCharacter{name: name, table: tbl})
			return 0
		}))
		return 1
	}))

	// NarratorStyle "id" { ... } — curried.
	L.SetGlobal("NarratorStyle", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.narrators = append(coll.narrators, rawNarrator{id: id, table: tbl})
			return 0
		}))
		return 1
	}))
}
