package orchestrator

import (
	"fmt"
	"strings"
)

const defaultSystemInstruction = "You are an Instructional Design Auditor. Analyze content for clarity, brevity, and impact."

const topicSystemPrompt = "You are a Curriculum Architect. Your goal is to identify the core pedagogical topic of a course section."

const researchSystemPrompt = `You are an Expert Instructional Design Researcher.
Your goal is to craft a targeted search query for a knowledge base containing the "Science of Instruction".

THEORETICAL FRAMEWORK REQUIREMENTS:
Construct a query that connects the user's TOPIC to specific principles from:
1. Gagné's 9 Events of Instruction
2. Mayer's 12 Principles of Multimedia Learning
3. Adult Learning Theory (Andragogy)

OUTPUT RULE:
Return ONLY the optimized search query string. Do not explain.`

var scriptingRules = map[string]string{
	"basic": "NOTES REWRITE RULES (BASIC): Start bullets with verbs. Directive tone. No fluff.",
	"light": "NOTES REWRITE RULES (LIGHT): Conversational but scannable. Spoken tone. Leave room for expertise.",
	"heavy": "NOTES REWRITE RULES (HEAVY): Write word-for-word script. Conversational and thorough.",
}

// scriptingLevel normalizes the configured level; anything unknown is Light.
func scriptingLevel(level string) string {
	l := strings.ToLower(strings.TrimSpace(level))
	if _, ok := scriptingRules[l]; ok {
		return l
	}
	return "light"
}

func outline(slides []SlideInput) string {
	var b strings.Builder
	for _, s := range slides {
		title := s.Title
		if title == "" {
			title = "Untitled"
		}
		layout := s.Layout
		if layout == "" {
			layout = "Unknown"
		}
		fmt.Fprintf(&b, "Slide %d: %s [%s]\n", s.Number, title, layout)
	}
	return b.String()
}

func topicPrompt(slides []SlideInput) (string, string) {
	user := "Review this Course Outline (Slide Titles & Layouts):\n" + outline(slides) +
		"TASK: Summarize the primary instructional topic and learning strategy of this section in 1 concise sentence."
	return topicSystemPrompt, user
}

func researchQueryPrompt(topic string) (string, string) {
	user := fmt.Sprintf("COURSE TOPIC:\n%q\n\nTASK:\nConvert this topic into a search query that looks for the most relevant instructional design best practices for this specific type of content.", topic)
	return researchSystemPrompt, user
}

func rewritePrompt(slides []SlideInput, research, systemInstruction, level string, headers []string) (string, string) {
	if strings.TrimSpace(systemInstruction) == "" {
		systemInstruction = defaultSystemInstruction
	}
	system := systemInstruction + "\n\nCRITICAL OUTPUT INSTRUCTION:\nYou are analyzing a BATCH of slides. You must return a strict JSON LIST of objects."

	level = scriptingLevel(level)
	headerList := "None defined"
	if len(headers) > 0 {
		quoted := make([]string, len(headers))
		for i, h := range headers {
			quoted[i] = "'" + h + "'"
		}
		headerList = strings.Join(quoted, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "PART 1: INSTRUCTIONAL DESIGN RESEARCH\nUse this research to guide your critique:\n%s\n\n", research)
	fmt.Fprintf(&b, `PART 2: SCRIPTING & ANALYSIS RULES
1. Analyze Notes First: evaluate the existing speaker notes against the %s standard.
2. Noise reduction: if the existing notes are already clear (clarity > 7) and match the tone, do not rewrite them; return null for suggested_notes. If the notes are empty, return null unless the slide visual is complex and needs explanation.
3. Formatting: if you rewrite, keep the original bullet style and preserve every "CLICK" cue exactly where it appears.
4. Headers: preserve these headers if found: [%s].

`, strings.ToUpper(level[:1])+level[1:], headerList)
	b.WriteString(`PART 3: GAGNÉ EVENT & INTEGRITY CHECK
Check the "Instructional Activity" header against the slide content.
- Practice vs guidance: learners solving a problem is Elicit Performance, not Provide Guidance. Warn in tone_audit if mislabeled.
- Assessment: a quiz or knowledge check must be Assess Performance. Warn if labeled Guidance or Content.
- Valid events: Gain Attention, Inform Objectives, Stimulate Recall, Present Content, Provide Guidance, Elicit Performance, Provide Feedback, Assess Performance, Enhance Retention.

`)
	fmt.Fprintf(&b, "Current Setting: %s SCRIPTING\n%s\n\nPART 4: SLIDE BATCH DATA\n", strings.ToUpper(level), scriptingRules[level])
	for _, s := range slides {
		fmt.Fprintf(&b, "--- SLIDE %d [Layout: %s, Images: %d] ---\nON-SCREEN TEXT: %s\nSPEAKER NOTES: %s\n", s.Number, s.Layout, s.Images, s.Text, s.Notes)
	}
	b.WriteString(`
PART 5: REQUIRED OUTPUT FORMAT
Return a JSON list with this exact structure for every slide:
[
  {
    "slide_number": <int>,
    "clarity_score": <int 1-10>,
    "tone_audit": "<string> (include MISLABEL WARNING here if the Gagné event is wrong)",
    "suggested_notes": <string or null>,
    "remediation": {
      "option_a": {"label": "Polish Visuals", "text": "<string>"},
      "option_b": {"label": "Simplify Visuals", "text": "<string>"}
    }
  }
]`)
	return system, b.String()
}
