package webhook

import "strings"

// Result is the canonical shape every chat and dashboard reply converges to,
// no matter which of the ~20 payload shapes the workflow returned.
type Result struct {
	Success   bool   `json:"success"`
	Response  string `json:"response"`
	Timestamp string `json:"timestamp,omitempty"`
}

// FallbackResponse is substituted when no recognizable reply field is found.
const FallbackResponse = "Sorry — I could not generate a response."

// failureFallback is used when a success=false payload carries no error text.
const failureFallback = "Chat request failed"

// replyFields are probed in order at each nesting level. The order encodes
// trust in provider shape conventions.
var replyFields = []string{"response", "text", "answer", "output", "result", "content"}

// failureFields are probed in order when the payload reports success=false.
// "response" is included so normalizing an already-normalized failure result
// yields an equivalent result.
var failureFields = []string{"error", "message", "response"}

// extractor pulls a candidate reply string out of a decoded payload object.
// Extractors are applied in sequence, first non-empty match wins.
type extractor func(obj map[string]any) string

var replyExtractors = []extractor{
	func(obj map[string]any) string { return firstField(obj, replyFields) },
	func(obj map[string]any) string { return firstField(childObject(obj, "data"), replyFields) },
	choiceContent,
	func(obj map[string]any) string { return firstField(childObject(obj, "body"), replyFields) },
	func(obj map[string]any) string {
		return firstField(childObject(childObject(obj, "body"), "data"), replyFields)
	},
}

// Normalize reduces an arbitrary webhook reply (object, array or bare string)
// to a Result. It is pure and never fails: unrecognized input produces the
// fixed fallback string rather than an empty response.
func Normalize(raw any) Result {
	working := unwrapArray(raw)
	obj, _ := working.(map[string]any)

	if obj != nil && isExplicitFalse(obj["success"]) {
		text := firstField(obj, failureFields)
		if text == "" {
			text = firstField(childObject(obj, "data"), failureFields)
		}
		if text == "" {
			text = failureFallback
		}
		return Result{Success: false, Response: text}
	}

	success := true
	var timestamp string
	if obj != nil {
		if b, ok := obj["success"].(bool); ok {
			success = b
		}
		timestamp, _ = obj["timestamp"].(string)
	}

	if obj != nil {
		for _, extract := range replyExtractors {
			if text := extract(obj); text != "" {
				return Result{Success: success, Response: text, Timestamp: timestamp}
			}
		}
	}

	if s, ok := working.(string); ok && strings.TrimSpace(s) != "" {
		return Result{Success: true, Response: s}
	}

	return Result{Success: success, Response: FallbackResponse}
}

// unwrapArray takes the first element when the workflow returned an array.
func unwrapArray(raw any) any {
	if arr, ok := raw.([]any); ok {
		if len(arr) == 0 {
			return nil
		}
		return arr[0]
	}
	return raw
}

func childObject(obj map[string]any, key string) map[string]any {
	if obj == nil {
		return nil
	}
	child, _ := obj[key].(map[string]any)
	return child
}

func firstField(obj map[string]any, fields []string) string {
	if obj == nil {
		return ""
	}
	for _, field := range fields {
		if s := trimmedString(obj[field]); s != "" {
			return s
		}
	}
	return ""
}

// choiceContent handles OpenAI-style replies: choices[0].message.content,
// falling back to choices[0].text.
func choiceContent(obj map[string]any) string {
	choices, _ := obj["choices"].([]any)
	if len(choices) == 0 {
		return ""
	}
	choice, _ := choices[0].(map[string]any)
	if choice == nil {
		return ""
	}
	if s := trimmedString(childObject(choice, "message")["content"]); s != "" {
		return s
	}
	return trimmedString(choice["text"])
}

func trimmedString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// isExplicitFalse mirrors the frontend's success === false check: only a
// literal boolean false counts, absent or truthy values do not.
func isExplicitFalse(v any) bool {
	b, ok := v.(bool)
	return ok && !b
}
