package recognition

import "strings"

// Mode selects what a recognition request asks the model to do.
type Mode string

const (
	ModeIdentify Mode = "identify"
	ModeDiagnose Mode = "diagnose"
)

// SystemPrompt is sent as the system turn of every recognition request.
const SystemPrompt = `You are a botanist looking at a photo of a plant. Reply with a single JSON object and nothing else. Do not wrap it in markdown.`

// IdentifyPrompt asks for an Identification.
const IdentifyPrompt = `Identify the plant in this photo. Respond with JSON of this shape:
{"name": "common name", "scientific_name": "...", "family": "...", "confidence": 0.0-1.0, "description": "one or two sentences", "care": {"water": "...", "light": "...", "soil": "...", "temperature": "...", "humidity": "..."}}`

// DiagnosePrompt asks for a Diagnosis.
const DiagnosePrompt = `Look for signs of disease, pests or care problems on the plant in this photo. Respond with JSON of this shape:
{"problem": "short name or \"healthy\"", "severity": "none|mild|moderate|severe", "causes": ["..."], "treatment": ["..."], "prevention": ["..."]}`

// PromptFor returns the instruction text for mode. Unknown modes identify.
// Symptoms reported by the user are appended when present.
func PromptFor(mode Mode, priorSymptoms string) string {
	text := IdentifyPrompt
	if mode == ModeDiagnose {
		text = DiagnosePrompt
	}
	return WithSymptoms(text, priorSymptoms)
}

// WithSymptoms appends user-described symptoms to an instruction.
func WithSymptoms(instruction, symptoms string) string {
	symptoms = strings.TrimSpace(symptoms)
	if symptoms == "" {
		return instruction
	}
	return instruction + "\n\nThe owner reports these symptoms: " + symptoms
}

// ParseMode maps user input to a Mode.
func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeIdentify:
		return ModeIdentify, true
	case ModeDiagnose:
		return ModeDiagnose, true
	default:
		return "", false
	}
}
