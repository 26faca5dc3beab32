package llm

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/mark3labs/webgen/internal/errors"
	"github.com/mark3labs/webgen/internal/logger"
	"github.com/mark3labs/webgen/internal/message"
)

const (
	dataPrefix = "data:"
	doneMarker = "[DONE]"
)

// reasoningKeys are the delta fields different providers use for thinking
// text, in lookup order.
var reasoningKeys = []string{"reasoning_content", "reasoning", "thinking"}

// Handlers receive incremental output while a response is decoded. Every
// field is optional.
type Handlers struct {
	OnText     func(delta string)
	OnThinking func(delta string)
	// OnToolCall fires once per tool call, when its name is first seen.
	OnToolCall func(name, id string)
}

func (h Handlers) text(s string) {
	if h.OnText != nil {
		h.OnText(s)
	}
}

func (h Handlers) thinking(s string) {
	if h.OnThinking != nil {
		h.OnThinking(s)
	}
}

func (h Handlers) toolCall(name, id string) {
	if h.OnToolCall != nil {
		h.OnToolCall(name, id)
	}
}

// partialCall collects the fragments of one streamed tool call.
type partialCall struct {
	index     int
	id        string
	name      string
	arguments strings.Builder
	announced bool
}

// accumulator assembles one assistant message from deltas. It lives for a
// single decode.
type accumulator struct {
	h        Handlers
	content  strings.Builder
	thinking strings.Builder
	calls    map[int]*partialCall
}

func newAccumulator(h Handlers) *accumulator {
	return &accumulator{h: h, calls: make(map[int]*partialCall)}
}

func (a *accumulator) addDelta(delta gjson.Result) {
	if c := delta.Get("content"); c.Type == gjson.String && c.Str != "" {
		a.content.WriteString(c.Str)
		a.h.text(c.Str)
	}

	for _, key := range reasoningKeys {
		if r := delta.Get(key); r.Type == gjson.String && r.Str != "" {
			a.thinking.WriteString(r.Str)
			a.h.thinking(r.Str)
			break
		}
	}

	for _, tc := range delta.Get("tool_calls").Array() {
		idx := int(tc.Get("index").Int())
		pc, ok := a.calls[idx]
		if !ok {
			pc = &partialCall{index: idx}
			a.calls[idx] = pc
		}
		if id := tc.Get("id").String(); id != "" && pc.id == "" {
			pc.id = id
		}
		if name := tc.Get("function.name").String(); name != "" && pc.name == "" {
			pc.name = name
		}
		if pc.name != "" && !pc.announced {
			pc.announced = true
			a.h.toolCall(pc.name, pc.id)
		}
		pc.arguments.WriteString(tc.Get("function.arguments").String())
	}
}

// message finalizes the accumulated state. Tool calls are ordered by index.
func (a *accumulator) message() message.Message {
	msg := message.Message{Role: message.RoleAssistant, Thinking: a.thinking.String()}
	if a.content.Len() > 0 {
		msg.Content = message.Text(a.content.String())
	}

	if len(a.calls) == 0 {
		return msg
	}
	indexes := make([]int, 0, len(a.calls))
	for idx := range a.calls {
		indexes = append(indexes, idx)
	}
	slices.Sort(indexes)

	msg.ToolCalls = make([]message.ToolCall, 0, len(indexes))
	for _, idx := range indexes {
		pc := a.calls[idx]
		id := pc.id
		if id == "" {
			id = fmt.Sprintf("call_%d", idx)
		}
		msg.ToolCalls = append(msg.ToolCalls, message.ToolCall{
			ID:   id,
			Type: "function",
			Function: message.FunctionCall{
				Name:      pc.name,
				Arguments: pc.arguments.String(),
			},
		})
	}
	return msg
}

// DecodeStream reads an event stream of chat-completion chunks and returns
// the assembled assistant message. Chunk boundaries in r do not matter:
// input is split on newlines before any frame is parsed. Tool-call
// arguments are only joined, never parsed, here.
func DecodeStream(r io.Reader, h Handlers) (message.Message, error) {
	acc := newAccumulator(h)
	br := bufio.NewReader(r)

	for {
		line, err := br.ReadString('\n')
		if line != "" {
			done, ferr := acc.frame(line)
			if ferr != nil {
				return message.Message{}, ferr
			}
			if done {
				return acc.message(), nil
			}
		}
		if err == io.EOF {
			return acc.message(), nil
		}
		if err != nil {
			return message.Message{}, err
		}
	}
}

// frame handles one line of the stream. It reports true on the terminator.
func (a *accumulator) frame(line string) (bool, error) {
	line = strings.TrimSpace(line)
	payload, ok := strings.CutPrefix(line, dataPrefix)
	if !ok {
		return false, nil
	}
	payload = strings.TrimSpace(payload)
	if payload == doneMarker {
		return true, nil
	}
	if !gjson.Valid(payload) {
		logger.Debug("skipping malformed stream frame: %.80s", payload)
		return false, nil
	}

	chunk := gjson.Parse(payload)
	if e := chunk.Get("error"); e.Exists() && !chunk.Get("choices").Exists() {
		msg := e.Get("message").String()
		if msg == "" {
			msg = e.String()
		}
		return false, errors.NewTransportError("chat completion stream", 0, fmt.Errorf("stream error: %s", msg))
	}

	if delta := chunk.Get("choices.0.delta"); delta.Exists() {
		a.addDelta(delta)
	}
	return false, nil
}

// DecodeJSON assembles the assistant message from a non-streaming response
// body, firing each handler once in the same order the stream path would.
func DecodeJSON(body []byte, h Handlers) (message.Message, error) {
	if !gjson.ValidBytes(body) {
		return message.Message{}, errors.NewTransportError("chat completion", 0,
			fmt.Errorf("malformed response body: %.200s", body))
	}
	choice := gjson.GetBytes(body, "choices.0.message")
	if !choice.Exists() {
		return message.Message{}, errors.NewTransportError("chat completion", 0,
			errors.New("API returned empty choices"))
	}

	msg := message.Message{Role: message.RoleAssistant}

	if c := choice.Get("content"); c.Type == gjson.String && c.Str != "" {
		msg.Content = message.Text(c.Str)
		h.text(c.Str)
	}
	for _, key := range reasoningKeys {
		if r := choice.Get(key); r.Type == gjson.String && r.Str != "" {
			msg.Thinking = r.Str
			h.thinking(r.Str)
			break
		}
	}

	for i, tc := range choice.Get("tool_calls").Array() {
		call := message.ToolCall{
			ID:   tc.Get("id").String(),
			Type: "function",
			Function: message.FunctionCall{
				Name:      tc.Get("function.name").String(),
				Arguments: tc.Get("function.arguments").String(),
			},
		}
		if call.ID == "" {
			call.ID = fmt.Sprintf("call_%d", i)
		}
		msg.ToolCalls = append(msg.ToolCalls, call)
		h.toolCall(call.Function.Name, call.ID)
	}
	return msg, nil
}
