//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"syscall/js"
	"time"

	"github.com/fxlayout/fxlayout/internal/editor"
	"github.com/fxlayout/fxlayout/internal/export"
	"github.com/fxlayout/fxlayout/internal/importer"
	"github.com/fxlayout/fxlayout/internal/scene"
)

var store *editor.Store

func main() {
	store = editor.NewStore(editor.DefaultOptions())
	forwardEvents(store)

	api := js.Global().Get("Object").New()

	// --- Commands (frontend → store) ---
	api.Set("loadScene", js.FuncOf(loadScene))
	api.Set("loadSample", js.FuncOf(loadSample))
	api.Set("apply", js.FuncOf(apply))
	api.Set("importOBJ", js.FuncOf(importOBJ))
	api.Set("selectVertex", js.FuncOf(selectVertex))
	api.Set("selectVertices", js.FuncOf(selectVertices))
	api.Set("selectShape", js.FuncOf(selectShape))
	api.Set("clearSelection", js.FuncOf(clearSelection))
	api.Set("selectAll", js.FuncOf(selectAll))
	api.Set("beginTransform", js.FuncOf(beginTransform))
	api.Set("updateTransform", js.FuncOf(updateTransform))
	api.Set("endTransform", js.FuncOf(endTransform))
	api.Set("cancelTransform", js.FuncOf(cancelTransform))
	api.Set("setCamera", js.FuncOf(setCamera))
	api.Set("runIdle", js.FuncOf(runIdle))

	// --- Queries (frontend ← store) ---
	api.Set("getFrame", js.FuncOf(getFrame))
	api.Set("getSelection", js.FuncOf(getSelection))
	api.Set("getSelectionBounds", js.FuncOf(getSelectionBounds))
	api.Set("getLayers", js.FuncOf(getLayers))
	api.Set("getHistoryState", js.FuncOf(getHistoryState))
	api.Set("exportScene", js.FuncOf(exportScene))
	api.Set("exportElements", js.FuncOf(exportElements))

	js.Global().Set("fxlayoutEditor", api)
	js.Global().Set("fxlayoutWasmReady", js.ValueOf(true))

	select {}
}

// forwardEvents calls window.fxlayoutOnEvent(type, dataJSON) when the page
// defines it.
func forwardEvents(s *editor.Store) {
	listener := editor.ListenerFunc(func(e editor.Event) {
		cb := js.Global().Get("fxlayoutOnEvent")
		if cb.Type() != js.TypeFunction {
			return
		}
		payload, _ := json.Marshal(e.Data)
		cb.Invoke(string(e.Type), string(payload))
	})
	for _, t := range []editor.EventType{editor.EventLargeScene, editor.EventSceneImported, editor.EventHistoryRestored} {
		s.Events().Subscribe(t, listener)
	}
}

// --- Command Handlers ---

func loadScene(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("missing scene JSON")
	}
	return done(store.ImportScene([]byte(args[0].String())))
}

func loadSample(this js.Value, args []js.Value) any {
	return done(store.LoadSample())
}

// apply takes an encoded command ({"kind": ..., "payload": ...}).
func apply(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("missing command JSON")
	}
	cmd, err := editor.DecodeCommand([]byte(args[0].String()))
	if err != nil {
		return fail(err.Error())
	}
	res, err := store.Apply(context.Background(), cmd)
	if err != nil {
		return fail(err.Error())
	}
	return data(res)
}

// importOBJ(text, layerID?)
func importOBJ(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("missing OBJ text")
	}
	points, err := importer.ParseOBJ(stringReader(args[0].String()))
	if err != nil {
		return fail(err.Error())
	}
	id, err := store.ImportShape(points, optString(args, 1))
	if err != nil {
		return fail(err.Error())
	}
	return data(map[string]any{"shapeId": id, "vertexCount": len(points)})
}

func selectVertex(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("missing vertex id")
	}
	return done(store.SelectVertex(args[0].String(), optBool(args, 1)))
}

// selectVertices(idsJSON, multi)
func selectVertices(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("missing ids JSON")
	}
	var ids []string
	if err := json.Unmarshal([]byte(args[0].String()), &ids); err != nil {
		return fail("invalid ids JSON: " + err.Error())
	}
	store.SelectMultipleVertices(ids, optBool(args, 1))
	return ok()
}

func selectShape(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("missing shape id")
	}
	return done(store.SelectShape(args[0].String(), optBool(args, 1)))
}

func clearSelection(this js.Value, args []js.Value) any {
	store.ClearAllSelections()
	return ok()
}

func selectAll(this js.Value, args []js.Value) any {
	store.SelectAllObjects()
	return ok()
}

func beginTransform(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("missing mode")
	}
	mode, err := editor.ParseMode(args[0].String())
	if err != nil {
		return fail(err.Error())
	}
	return done(store.BeginTransform(mode))
}

// updateTransform takes a delta JSON ({"translate", "rotate", "scale"}).
func updateTransform(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("missing delta JSON")
	}
	var d editor.Delta
	if err := json.Unmarshal([]byte(args[0].String()), &d); err != nil {
		return fail("invalid delta JSON: " + err.Error())
	}
	return done(store.UpdateTransform(context.Background(), d))
}

func endTransform(this js.Value, args []js.Value) any {
	return done(store.EndTransform(context.Background()))
}

func cancelTransform(this js.Value, args []js.Value) any {
	store.CancelTransform()
	return ok()
}

func setCamera(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("missing camera JSON")
	}
	var c scene.Camera
	if err := json.Unmarshal([]byte(args[0].String()), &c); err != nil {
		return fail("invalid camera JSON: " + err.Error())
	}
	store.SetCamera(c)
	return ok()
}

// runIdle(budgetMs) runs deferred store work, typically from requestIdleCallback.
func runIdle(this js.Value, args []js.Value) any {
	budget := 4 * time.Millisecond
	if len(args) > 0 && args[0].Type() == js.TypeNumber {
		budget = time.Duration(args[0].Float() * float64(time.Millisecond))
	}
	return js.ValueOf(store.RunIdle(budget))
}

// --- Query Handlers ---

func getFrame(this js.Value, args []js.Value) any {
	return data(store.Frame())
}

func getSelection(this js.Value, args []js.Value) any {
	return data(map[string]any{
		"vertices": store.SelectedVertices(),
		"shapes":   store.SelectedShapes(),
	})
}

func getSelectionBounds(this js.Value, args []js.Value) any {
	b := store.SelectionBounds()
	if b.IsEmpty() {
		return js.Null()
	}
	return data(map[string]any{"min": b.Min, "max": b.Max, "center": b.Center()})
}

func getLayers(this js.Value, args []js.Value) any {
	return data(store.Layers())
}

func getHistoryState(this js.Value, args []js.Value) any {
	return data(map[string]any{
		"canUndo": store.CanUndo(),
		"canRedo": store.CanRedo(),
		"index":   store.HistoryIndex(),
		"length":  store.HistoryLen(),
	})
}

func exportScene(this js.Value, args []js.Value) any {
	b, err := store.MarshalScene()
	if err != nil {
		return fail(err.Error())
	}
	return js.ValueOf(string(b))
}

func exportElements(this js.Value, args []js.Value) any {
	doc := store.ExportScene()
	return data(export.ExportToMainSystem(&doc))
}
