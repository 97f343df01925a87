// Package assistant implements the scripted chat and voice assistants: two
// independent keyword rule tables and the widget state machines that drive
// them.
package assistant

import "strings"

// Kind tags a rule table with the widget it belongs to.
type Kind string

const (
	KindChat  Kind = "chat"
	KindVoice Kind = "voice"
)

// Rule maps a predicate over lower-cased input to a canned response.
type Rule struct {
	Name     string
	Match    func(lower string) bool
	Response string
}

// RuleSet is an ordered rule table. The first matching rule wins; Fallback
// receives the input exactly as typed or spoken.
type RuleSet struct {
	Kind     Kind
	Rules    []Rule
	Fallback func(input string) string
}

// Respond returns the response for input. It has no side effects.
func (rs *RuleSet) Respond(input string) string {
	lower := strings.ToLower(input)
	for _, r := range rs.Rules {
		if r.Match(lower) {
			return r.Response
		}
	}
	return rs.Fallback(input)
}

// Match returns the name of the rule input hits, or "fallback".
func (rs *RuleSet) Match(input string) string {
	lower := strings.ToLower(input)
	for _, r := range rs.Rules {
		if r.Match(lower) {
			return r.Name
		}
	}
	return "fallback"
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}

// Greeting is the first bot message of every chat transcript.
const Greeting = "Hello! I'm your TaskFlow AI assistant. I can help you manage your tasks, set priorities, and answer questions about productivity. How can I help you today?"

const (
	ChatTaskResponse          = `I can help you manage your tasks! You can create new tasks using the "New Task" button in the header. Would you like me to guide you through creating a task or help you organize existing ones?`
	ChatPriorityResponse      = "Task prioritization is key to productivity! I recommend using the Eisenhower Matrix: High priority for urgent + important tasks, Medium for important but not urgent, and Low for less critical items. Would you like help setting priorities for your current tasks?"
	ChatDeadlineResponse      = "Setting realistic deadlines is crucial! I suggest breaking large tasks into smaller chunks and setting interim deadlines. You can set due dates when creating or editing tasks. Need help organizing your upcoming deadlines?"
	ChatCollaborationResponse = "TaskFlow supports team collaboration! You can share tasks with colleagues by email or username. This helps with accountability and keeps everyone in the loop. Would you like tips on effective task delegation?"
	ChatProductivityResponse  = "Here are some productivity tips: 1) Use the Pomodoro Technique (25min work + 5min break), 2) Batch similar tasks together, 3) Tackle your most important task first thing in the morning. What specific area would you like to improve?"
	ChatGreetingResponse      = "Hello! Great to see you using TaskFlow. I'm here to help you stay organized and productive. What would you like to work on today?"
	ChatFallbackResponse      = "That's an interesting question! I'm specialized in helping with task management, productivity tips, and using TaskFlow features. Feel free to ask me about organizing tasks, setting priorities, meeting deadlines, or any productivity challenges you're facing."
)

// ChatRules is the text chat rule table.
var ChatRules = &RuleSet{
	Kind: KindChat,
	Rules: []Rule{
		{Name: "task", Match: func(s string) bool { return containsAny(s, "task", "todo") }, Response: ChatTaskResponse},
		{Name: "priority", Match: func(s string) bool { return containsAny(s, "priority") }, Response: ChatPriorityResponse},
		{Name: "deadline", Match: func(s string) bool { return containsAny(s, "deadline", "due") }, Response: ChatDeadlineResponse},
		{Name: "collaboration", Match: func(s string) bool { return containsAny(s, "collaboration", "share") }, Response: ChatCollaborationResponse},
		{Name: "productivity", Match: func(s string) bool { return containsAny(s, "productivity", "focus") }, Response: ChatProductivityResponse},
		{Name: "greeting", Match: func(s string) bool { return containsAny(s, "hello", "hi") }, Response: ChatGreetingResponse},
	},
	Fallback: func(string) string { return ChatFallbackResponse },
}

const (
	VoiceCreateResponse   = "I can help you create a task. Please use the New Task button in the dashboard to add details like title, description, and due date."
	VoiceShowResponse     = "You can view all your tasks in the dashboard. Use the sidebar filters to see specific categories like Today, Overdue, or Completed tasks."
	VoiceHelpResponse     = "I can help you with task management, creating new tasks, setting priorities, and answering productivity questions. What would you like to know?"
	VoicePriorityResponse = "You can set task priorities as High, Medium, or Low when creating or editing tasks. High priority tasks should be tackled first."
	VoiceDeadlineResponse = "Set due dates for your tasks to stay organized. You can view overdue tasks using the sidebar filter."
)

// VoiceRules is the voice command rule table.
var VoiceRules = &RuleSet{
	Kind: KindVoice,
	Rules: []Rule{
		{Name: "create", Match: func(s string) bool { return containsAll(s, "create", "task") }, Response: VoiceCreateResponse},
		{Name: "show", Match: func(s string) bool {
			return strings.Contains(s, "show") && containsAny(s, "task", "todo")
		}, Response: VoiceShowResponse},
		{Name: "help", Match: func(s string) bool { return containsAny(s, "help") }, Response: VoiceHelpResponse},
		{Name: "priority", Match: func(s string) bool { return containsAny(s, "priority") }, Response: VoicePriorityResponse},
		{Name: "deadline", Match: func(s string) bool { return containsAny(s, "deadline", "due date") }, Response: VoiceDeadlineResponse},
	},
	Fallback: func(input string) string {
		return "I heard you say: " + input + ". I can help with task management, productivity tips, and using TaskFlow features. Please be more specific about what you need help with."
	},
}

// RespondChat answers a chat message.
func RespondChat(input string) string { return ChatRules.Respond(input) }

// RespondVoice answers a voice command.
func RespondVoice(input string) string { return VoiceRules.Respond(input) }
