package classify

import (
	"fmt"
	"strings"
)

// classificationPrompt is the shared prompt used by the LLM backends
func classificationPrompt(labels []string, latitude, longitude float64) string {
	return fmt.Sprintf(`You are identifying insect and mite pests of onion crops from a field photograph taken at latitude %s, longitude %s.

Choose the single best matching label from this list:
%s

Return ONLY valid JSON in one of these exact formats:
{"predicted_class": "<label from the list>"}
{"error": "<short reason>"}

Important:
- Use the label exactly as written in the list
- If the photo shows no pest, or none from the list, return the error format with "no pest detected"
- Do not include any text before or after the JSON
- Do not use markdown code blocks`,
		formatCoordinate(latitude), formatCoordinate(longitude), "- "+strings.Join(labels, "\n- "))
}
