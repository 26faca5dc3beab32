package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefinitions(t *testing.T) {
	defs := Definitions([]string{"static", "vite-react-ts"})

	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Function.Name
		assert.Equal(t, "function", d.Type)
		assert.Equal(t, "object", d.Function.Parameters["type"])
		assert.NotEmpty(t, d.Function.Description)
	}
	assert.Equal(t, []string{
		InitProject, ManageDependencies, ListFiles, ReadFiles,
		WriteFile, PatchFile, SearchInFiles, DeleteFile, GetConsoleLogs,
	}, names)

	assert.Contains(t, defs[0].Function.Description, "static, vite-react-ts")
}

func TestConvert(t *testing.T) {
	tool := mcp.NewTool("write_file",
		mcp.WithDescription("Write a file"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path")),
		mcp.WithString("content"),
	)

	def := Convert(tool)
	data, err := json.Marshal(def)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"type": "function",
		"function": {
			"name": "write_file",
			"description": "Write a file",
			"parameters": {
				"type": "object",
				"properties": {
					"path": {"type": "string", "description": "Path"},
					"content": {"type": "string"}
				},
				"required": ["path"]
			}
		}
	}`, string(data))
}

func TestConvert_NoParameters(t *testing.T) {
	def := Convert(ConsoleLogsTool())
	data, err := json.Marshal(def.Function.Parameters)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object","properties":{}}`, string(data))
}

func TestPatchFileSchema(t *testing.T) {
	var patchDef map[string]any
	for _, d := range Definitions(nil) {
		if d.Function.Name == PatchFile {
			patchDef = d.Function.Parameters
		}
	}
	require.NotNil(t, patchDef)

	props := patchDef["properties"].(map[string]any)
	patches := props["patches"].(map[string]any)
	assert.Equal(t, "array", patches["type"])
	items := patches["items"].(map[string]any)
	assert.Equal(t, []string{"search", "replace"}, items["required"])
	assert.ElementsMatch(t, []string{"path", "patches"}, patchDef["required"])
}

func TestMux(t *testing.T) {
	m := NewMux()
	m.Register(mcp.NewTool("web_search", mcp.WithDescription("Search")), func(ctx context.Context, name string, args map[string]any) (string, error) {
		return "results for " + args["query"].(string), nil
	})
	m.Register(ConsoleLogsTool(), func(ctx context.Context, name string, args map[string]any) (string, error) {
		return "No console output yet.", nil
	})

	t.Run("routes by name", func(t *testing.T) {
		out, err := m.Handle(context.Background(), "web_search", map[string]any{"query": "vite"})
		require.NoError(t, err)
		assert.Equal(t, "results for vite", out)

		out, err = m.Handle(context.Background(), GetConsoleLogs, nil)
		require.NoError(t, err)
		assert.Equal(t, "No console output yet.", out)
	})

	t.Run("unknown without fallback", func(t *testing.T) {
		out, err := m.Handle(context.Background(), "deploy", nil)
		require.NoError(t, err)
		assert.Equal(t, `Error: unknown tool "deploy"`, out)
	})

	t.Run("fallback", func(t *testing.T) {
		m.Fallback(func(ctx context.Context, name string, args map[string]any) (string, error) {
			return "fallback:" + name, nil
		})
		out, err := m.Handle(context.Background(), "deploy", nil)
		require.NoError(t, err)
		assert.Equal(t, "fallback:deploy", out)
	})

	t.Run("definitions skip built-in console tool", func(t *testing.T) {
		defs := m.Definitions()
		require.Len(t, defs, 1)
		assert.Equal(t, "web_search", defs[0].Function.Name)
	})
}
