package scanning

import "strings"

// transcriptionPrompt is the shared prompt used by all LLM providers for reading slips
const transcriptionPrompt = `You are reading a Thai or English payment slip, bank transfer confirmation or shop receipt.

Transcribe every piece of text visible in the image exactly as printed, line by line, top to bottom.

Important:
- Keep Thai and English text, digits, dates, times, currency symbols and punctuation unchanged
- Keep Buddhist Era years and Thai month abbreviations as printed (e.g. "15 มี.ค. 68")
- Do not translate, summarise, correct or reformat anything
- Do not add commentary, labels or JSON
- Do not use markdown code blocks`

// cleanTranscript strips the markdown fences a model may wrap around a
// transcript despite the prompt.
func cleanTranscript(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		// drop the opening fence line including any language tag
		if idx := strings.Index(text, "\n"); idx != -1 {
			text = text[idx+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	return strings.TrimSpace(text)
}
