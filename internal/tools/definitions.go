package tools

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mark3labs/webgen/internal/message"
)

// Built-in tool names.
const (
	InitProject        = "init_project"
	ManageDependencies = "manage_dependencies"
	ListFiles          = "list_files"
	ReadFiles          = "read_files"
	WriteFile          = "write_file"
	PatchFile          = "patch_file"
	SearchInFiles      = "search_in_files"
	DeleteFile         = "delete_file"

	// GetConsoleLogs is declared to the model but served by an external handler.
	GetConsoleLogs = "get_console_logs"
)

// Builtin returns the schemas of the file-system tools, in the order they
// are offered to the model. templateNames feeds the init_project
// description.
func Builtin(templateNames []string) []mcp.Tool {
	initDesc := "Initialize the project with a template. Call this FIRST when starting a new project. " +
		"This replaces every existing file."
	if len(templateNames) > 0 {
		initDesc += fmt.Sprintf(" Available templates: %s.", strings.Join(templateNames, ", "))
	}

	return []mcp.Tool{
		mcp.NewTool(InitProject,
			mcp.WithDescription(initDesc),
			mcp.WithString("template", mcp.Required(), mcp.Description("Template name from the available list")),
		),
		mcp.NewTool(ManageDependencies,
			mcp.WithDescription("Add, remove, or update project dependencies by modifying package.json. "+
				"This triggers a full project restart to install the new dependencies. "+
				"Provide the complete updated package.json content."),
			mcp.WithString("package_json", mcp.Required(), mcp.Description("The complete package.json content to write")),
		),
		mcp.NewTool(ListFiles,
			mcp.WithDescription("List all file paths currently in the project. Returns one path per line."),
		),
		mcp.NewTool(ReadFiles,
			mcp.WithDescription("Read and return the full content of multiple files at once."),
			mcp.WithArray("paths", mcp.Required(),
				mcp.Description("List of file paths relative to project root"),
				mcp.WithStringItems(),
			),
		),
		mcp.NewTool(WriteFile,
			mcp.WithDescription("Create a new file or completely overwrite an existing file with the provided content."),
			mcp.WithString("path", mcp.Required(), mcp.Description("File path relative to project root")),
			mcp.WithString("content", mcp.Required(), mcp.Description("The complete file content to write")),
		),
		mcp.NewTool(PatchFile,
			mcp.WithDescription("Apply one or more search-and-replace patches to an existing file. "+
				"Each patch replaces the FIRST occurrence of the search string. "+
				"Include enough surrounding context in 'search' to ensure uniqueness."),
			mcp.WithString("path", mcp.Required(), mcp.Description("File path to patch")),
			mcp.WithArray("patches", mcp.Required(),
				mcp.Description("Ordered list of search-and-replace operations"),
				mcp.Items(map[string]any{
					"type": "object",
					"properties": map[string]any{
						"search": map[string]any{
							"type":        "string",
							"description": "Exact text to find (must be unique in the file)",
						},
						"replace": map[string]any{
							"type":        "string",
							"description": "Text to replace the match with",
						},
					},
					"required": []string{"search", "replace"},
				}),
			),
		),
		mcp.NewTool(SearchInFiles,
			mcp.WithDescription("Search for a regex pattern across all project files"),
			mcp.WithString("pattern", mcp.Required(), mcp.Description("Regex pattern")),
		),
		mcp.NewTool(DeleteFile,
			mcp.WithDescription("Delete a file from the project."),
			mcp.WithString("path", mcp.Required(), mcp.Description("File path to delete")),
		),
	}
}

// ConsoleLogsTool is the schema for get_console_logs.
func ConsoleLogsTool() mcp.Tool {
	return mcp.NewTool(GetConsoleLogs,
		mcp.WithDescription("Get the console output from the running preview. "+
			"Use this after finishing code changes to check for runtime errors, warnings, or syntax errors. "+
			"If errors are found, fix them immediately."),
	)
}

// Convert turns an MCP tool schema into the function definition format of
// the chat-completions API.
func Convert(t mcp.Tool) message.ToolDefinition {
	props := t.InputSchema.Properties
	if props == nil {
		props = map[string]any{}
	}
	params := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(t.InputSchema.Required) > 0 {
		params["required"] = t.InputSchema.Required
	}
	return message.ToolDefinition{
		Type: "function",
		Function: message.FunctionDefinition{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  params,
		},
	}
}

// ConvertAll converts a list of MCP tools.
func ConvertAll(ts []mcp.Tool) []message.ToolDefinition {
	defs := make([]message.ToolDefinition, len(ts))
	for i, t := range ts {
		defs[i] = Convert(t)
	}
	return defs
}

// Definitions returns the built-in tools plus get_console_logs, converted
// for the model.
func Definitions(templateNames []string) []message.ToolDefinition {
	return ConvertAll(append(Builtin(templateNames), ConsoleLogsTool()))
}
