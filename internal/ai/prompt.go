package ai

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// TodoItem is an existing task handed to the planner for rescheduling.
type TodoItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// FormatTodoList renders the free-text request followed by one line per task.
func FormatTodoList(prompt string, tasks []TodoItem) string {
	var b strings.Builder
	if prompt != "" {
		b.WriteString("User Request: ")
		b.WriteString(prompt)
		b.WriteString("\n\n")
	}
	for _, t := range tasks {
		fmt.Fprintf(&b, "- [ID: %s] %s\n", t.ID, t.Title)
	}
	return b.String()
}

func systemPrompt(appName string, today time.Time) string {
	return fmt.Sprintf(`You are an expert scheduler for the %s app.
Your goal is to organize a chaotic to-do list into a structured, visual day plan.

Rules:
1. Return ONLY valid JSON. Do not include markdown formatting like `+"```json ... ```"+`.
2. Format: Returns an object: { "message": "Short friendly text explaining what you did", "tasks": [ ...array of specific task objects... ] }
   - Task object format: { id, title, start_time (ISO8601), end_time (ISO8601), icon (emoji), color (hex), description }
3. Assume today is %s.
4. Schedule tasks between 08:00 and 19:00 unless specified.
5. Keep titles punchy and short.
6. Add gaps for breaks if the schedule is tight.
7. IMPORTANT: Preserve the 'id' from the input in the output object if updating, or generate new IDs if creating.
8. SPLITTING TASKS: If the input implies two distinct moments (e.g. 'Go to gym at 8am and return at 6pm'), create TWO separate tasks.
9. If the user mentions 'Morning' or 'Evening', place the tasks in those approximate time windows.
`, appName, today.Format("2006-01-02"))
}

func userPrompt(todoList string) string {
	return "Here is my request: \n" + todoList + "\n\n Please plan my day. Return JSON with 'message' and 'tasks'."
}

var fencePattern = regexp.MustCompile("^```(?:json)?\\s*|\\s*```$")

func stripFences(content string) string {
	return fencePattern.ReplaceAllString(strings.TrimSpace(content), "")
}
