package gemini

import "fmt"

// promptTemplate is the fixed verification prompt. The interpolated values
// are the target species (three occurrences) and the reference description;
// the surrounding wording is deliberately frozen because the verdict parser
// depends on the MATCH / NO MATCH response framing it requests.
const promptTemplate = `
You are an expert herpetologist performing species verification.

The target species is *%[1]s*.

--- REFERENCE MATERIALS ---

1.  **Reference Image:** The first image provided shows the key head features of a confirmed *%[1]s*.
2.  **Key Text Description (Dorsal Pattern):** "%[2]s"

--- TASK ---

The second image provided is the **Candidate Image** for identification.

1.  **Compare** the Candidate Image against the Reference Image (head morphology, scale patterns, eye characteristics) AND the Key Text Description (body pattern characteristics).
2.  **Determine** if the Candidate Image is a **MATCH** or **NO MATCH** for *%[1]s*.
3.  **Provide a concise explanation** detailing the matching and non-matching features you observed in both the head and body (if visible).

Format your response as a simple verdict followed by a brief justification.
`

// BuildPrompt renders the verification prompt for one work unit.
func BuildPrompt(targetSpecies, description string) string {
	return fmt.Sprintf(promptTemplate, targetSpecies, description)
}
