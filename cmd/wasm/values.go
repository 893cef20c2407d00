//go:build js && wasm

package main

import (
	"encoding/json"
	"io"
	"strings"
	"syscall/js"
)

func ok() any {
	return js.ValueOf(map[string]any{"ok": true})
}

func fail(msg string) any {
	return js.ValueOf(map[string]any{"error": msg})
}

func done(err error) any {
	if err != nil {
		return fail(err.Error())
	}
	return ok()
}

// data returns v as a JSON string for the page to parse.
func data(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return fail(err.Error())
	}
	return js.ValueOf(string(b))
}

func optBool(args []js.Value, i int) bool {
	return len(args) > i && args[i].Type() == js.TypeBoolean && args[i].Bool()
}

func optString(args []js.Value, i int) string {
	if len(args) > i && args[i].Type() == js.TypeString {
		return args[i].String()
	}
	return ""
}

func stringReader(s string) io.Reader { return strings.NewReader(s) }
