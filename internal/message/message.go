// Package message defines the conversation data model shared by the model
// client, the tool dispatcher and the generation loop.
package message

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"strings"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// PartType tags a ContentPart.
type PartType string

const (
	PartText     PartType = "text"
	PartImageURL PartType = "image_url"
)

// ImageURL references an image by URL or data URI.
type ImageURL struct {
	URL string `json:"url"`
}

// ContentPart is one element of a multi-part message body.
type ContentPart struct {
	Type     PartType  `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// TextPart returns a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: PartText, Text: text}
}

// ImagePart returns an image content part.
func ImagePart(url string) ContentPart {
	return ContentPart{Type: PartImageURL, ImageURL: &ImageURL{URL: url}}
}

// Content is a message body: null, a plain string, or an ordered list of
// parts. The zero value is null.
type Content struct {
	text  *string
	parts []ContentPart
}

// Text returns string content.
func Text(s string) Content {
	return Content{text: &s}
}

// Parts returns multi-part content. A nil or empty list is kept as an empty
// list, not null.
func Parts(parts ...ContentPart) Content {
	if parts == nil {
		parts = []ContentPart{}
	}
	return Content{parts: parts}
}

// IsNull reports whether the content is null.
func (c Content) IsNull() bool {
	return c.text == nil && c.parts == nil
}

// IsParts reports whether the content is a parts list.
func (c Content) IsParts() bool {
	return c.parts != nil
}

// PartList returns the parts of multi-part content, or nil.
func (c Content) PartList() []ContentPart {
	return c.parts
}

// String folds the content to plain text: string content as is, parts
// content as the concatenation of its text parts, null as "".
func (c Content) String() string {
	switch {
	case c.text != nil:
		return *c.text
	case c.parts != nil:
		var b strings.Builder
		for _, p := range c.parts {
			if p.Type == PartText {
				b.WriteString(p.Text)
			}
		}
		return b.String()
	default:
		return ""
	}
}

func (c Content) MarshalJSON() ([]byte, error) {
	switch {
	case c.text != nil:
		return json.Marshal(*c.text)
	case c.parts != nil:
		return json.Marshal(c.parts)
	default:
		return []byte("null"), nil
	}
}

func (c *Content) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*c = Content{}
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Text(s)
	case data[0] == '[':
		var parts []ContentPart
		if err := json.Unmarshal(data, &parts); err != nil {
			return err
		}
		*c = Parts(parts...)
	default:
		return fmt.Errorf("message content must be null, a string or a list of parts")
	}
	return nil
}

// FunctionCall is the function half of a ToolCall.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall is a model request to run one named tool. Arguments stay raw
// until the dispatcher parses them.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// Message is one conversation entry.
type Message struct {
	Role       Role       `json:"role"`
	Content    Content    `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Thinking   string     `json:"thinking,omitempty"`
}

// Text folds the message content to plain text.
func (m Message) Text() string {
	return m.Content.String()
}

// HasToolCalls reports whether the message requests tool execution.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// NewSystem builds a system message.
func NewSystem(text string) Message {
	return Message{Role: RoleSystem, Content: Text(text)}
}

// NewUser builds a user message. With images the content becomes a parts
// list: the text first, then one image part per URL in order.
func NewUser(text string, images ...string) Message {
	if len(images) == 0 {
		return Message{Role: RoleUser, Content: Text(text)}
	}
	parts := make([]ContentPart, 0, len(images)+1)
	parts = append(parts, TextPart(text))
	for _, url := range images {
		parts = append(parts, ImagePart(url))
	}
	return Message{Role: RoleUser, Content: Parts(parts...)}
}

// NewAssistant builds an assistant message with text content.
func NewAssistant(text string) Message {
	return Message{Role: RoleAssistant, Content: Text(text)}
}

// NewToolResult builds the tool message answering callID.
func NewToolResult(callID, result string) Message {
	return Message{Role: RoleTool, Content: Text(result), ToolCallID: callID}
}

// Clone returns a copy that shares no slices with m.
func (m Message) Clone() Message {
	out := m
	if m.ToolCalls != nil {
		out.ToolCalls = append([]ToolCall(nil), m.ToolCalls...)
	}
	if m.Content.parts != nil {
		out.Content = Parts(append([]ContentPart(nil), m.Content.parts...)...)
	}
	return out
}

// CloneAll copies a history.
func CloneAll(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

// FunctionDefinition describes a callable tool to the model.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolDefinition is the declarative tool schema sent with each request.
type ToolDefinition struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// Action is the kind of change a tool made to a file.
type Action string

const (
	ActionCreated  Action = "created"
	ActionModified Action = "modified"
	ActionDeleted  Action = "deleted"
)

// FileChange records one file-system effect of a tool call.
type FileChange struct {
	Path   string `json:"path"`
	Action Action `json:"action"`
}

// Files maps normalized paths to file content.
type Files map[string]string

// Clone returns a copy of f. A nil map clones to an empty one.
func (f Files) Clone() Files {
	out := make(Files, len(f))
	maps.Copy(out, f)
	return out
}

// Result is the outcome of one Generate or Retry call.
type Result struct {
	Files                Files     `json:"files"`
	Messages             []Message `json:"messages"`
	Text                 string    `json:"text"`
	Aborted              bool      `json:"aborted"`
	MaxIterationsReached bool      `json:"max_iterations_reached"`
}
