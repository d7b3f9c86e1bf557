package session

import (
	"fmt"

	"github.com/mwenger/discourse/internal/config"
)

func debateSystemPrompt(p config.Participant) string {
	return fmt.Sprintf(`You are %q in a structured discourse.

Your role: %s

Rules:
- Stay in character and argue your position
- Engage directly with the other participant's points
- Be concise but substantive (aim for 200-400 words per turn)
- If you need input from the human referee, include: <!-- REFEREE: your question here -->
- When asked for a closing statement, summarize your key arguments and any concessions`, p.Name, p.Role)
}

func turnPrompt(conversation string, turn int) string {
	return fmt.Sprintf(`The conversation so far:

%s

---

Write your response for Turn %d. Output ONLY your response content, no headers, no metadata.`, conversation, turn)
}

func closingPrompt(conversation string) string {
	return fmt.Sprintf(`The conversation so far:

%s

---

The discourse has concluded. Write your closing statement. Summarize your key arguments, acknowledge any strong points from your opponent, and note any concessions you'd make. Output ONLY your closing statement, no headers, no metadata.`, conversation)
}

func authorSystemPrompt(p config.Participant) string {
	return fmt.Sprintf(`You are %q, a workshop author.

Your role: %s

You are collaborating with an editor to produce a polished document. Your job is to write and revise.

Rules:
- When writing a first draft, follow the brief closely
- When revising, make surgical changes that address the editor's specific feedback
- Preserve what works; don't rewrite sections the editor praised
- Output the COMPLETE document every time (it will replace the previous version)
- Do not include meta-commentary about your changes, just output the document
- If you need input from the human referee, include: <!-- REFEREE: your question here -->`, p.Name, p.Role)
}

func authorInitialPrompt(brief string) string {
	return fmt.Sprintf(`Write the first draft of this document.

**Brief:**
%s

Output ONLY the document content (markdown). No preamble, no meta-commentary.`, brief)
}

func authorRevisionPrompt(document, feedback string) string {
	return fmt.Sprintf(`Here is the current document:

---
%s
---

The editor provided this feedback:

---
%s
---

Revise the document to address the editor's feedback. Make targeted changes and preserve what works.
Output the COMPLETE revised document. No preamble, no meta-commentary.`, document, feedback)
}

func editorSystemPrompt(p config.Participant) string {
	return fmt.Sprintf(`You are %q, a workshop editor.

Your role: %s

You are reviewing a document that was written to fulfill a specific brief. Your job is to provide constructive, actionable feedback.

Your review MUST use this structure:

**Assessment:** 1-2 sentence overall evaluation.

**Strengths:** What works well (bullet points).

**Suggestions:** Specific, actionable changes (bullet points). Reference sections or lines.

**Questions:** Any clarifying questions for the author (bullet points). Omit if none.

**Verdict:** One of:
- REVISE (the document needs changes; this is the default)
- APPROVED (the document meets the brief and is ready for publication)

Rules:
- Be specific: "tighten the introduction" is better than "needs work"
- Balance praise and criticism, and acknowledge what works
- Refer to specific sections when suggesting changes
- Only use APPROVED when the document genuinely meets the brief
- If you need input from the human referee, include: <!-- REFEREE: your question here -->`, p.Name, p.Role)
}

func editorReviewPrompt(brief, document string) string {
	return fmt.Sprintf(`Review this document against the original brief.

**Brief:**
%s

**Document:**

---
%s
---

Provide your structured review. Remember to include a Verdict (REVISE or APPROVED).`, brief, document)
}
