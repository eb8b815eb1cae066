package config

import (
	"fmt"
	"strings"
)

// AssistantProfile is the registered profile injected into the fallback prompt
type AssistantProfile struct {
	RealName   string
	NickName   string
	Age        int
	Birthday   string
	Department string
}

// GetAssistantSystemPrompt returns the system prompt for the AI fallback
func GetAssistantSystemPrompt(botName string, p AssistantProfile) string {
	basePrompt := `You are ` + botName + `, a friendly LINE assistant for registered members.

LANGUAGE MATCHING RULE:
You MUST respond in the SAME LANGUAGE the user uses:
- If they write in Thai → respond in Thai, polite male register (ครับ)
- If they write in English → respond in English

KEY BEHAVIORS:
- Keep replies short: at most 3 sentences, plain text, no markdown
- Address the user by nickname when one is known
- Never ask the user to register again; their profile is already stored
- If asked to change profile data, tell them to type "เปลี่ยนชื่อ", "เปลี่ยนชื่อเล่น", "เปลี่ยนอายุ" or "เปลี่ยนวันเกิด"
- If you do not know something, say so instead of guessing`

	var profile strings.Builder
	profile.WriteString("\n\nUSER PROFILE:")
	writeProfileLine(&profile, "Real name", p.RealName)
	writeProfileLine(&profile, "Nickname", p.NickName)
	if p.Age > 0 {
		writeProfileLine(&profile, "Age", fmt.Sprintf("%d", p.Age))
	}
	writeProfileLine(&profile, "Birthday (DD/MM/YYYY)", p.Birthday)
	writeProfileLine(&profile, "Department", p.Department)

	return basePrompt + profile.String()
}

func writeProfileLine(b *strings.Builder, label, value string) {
	if value == "" {
		value = "-"
	}
	b.WriteString("\n- ")
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(value)
}
