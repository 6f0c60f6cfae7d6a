package recognition

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpret_Identification(t *testing.T) {
	raw := "```json\n{\"name\":\"Snake plant\",\"scientific_name\":\"Dracaena trifasciata\",\"confidence\":0.88,\"care\":{\"water\":\"every 2-3 weeks\"}}\n```"

	answer := Interpret[Identification](raw)

	require.True(t, answer.OK())
	assert.Equal(t, raw, answer.Raw)
	assert.Equal(t, "Snake plant", answer.Parsed.Name)
	assert.Equal(t, "Dracaena trifasciata", answer.Parsed.ScientificName)
	assert.Equal(t, "every 2-3 weeks", answer.Parsed.Care.Water)
}

func TestInterpret_Diagnosis(t *testing.T) {
	answer := Interpret[Diagnosis](`{"problem":"root rot","severity":"moderate","causes":["overwatering"],"treatment":["repot"]}`)

	require.True(t, answer.OK())
	assert.Equal(t, "root rot", answer.Parsed.Problem)
	assert.Equal(t, []string{"overwatering"}, answer.Parsed.Causes)
}

func TestInterpret_FallsBackToRawText(t *testing.T) {
	raw := "This looks like a healthy peace lily. Keep the soil slightly moist."

	answer := Interpret[Identification](raw)

	assert.False(t, answer.OK())
	assert.Nil(t, answer.Parsed)
	assert.Equal(t, raw, answer.Raw)
}

func TestInterpret_IdentificationWithoutNameFallsBack(t *testing.T) {
	for _, raw := range []string{
		"null",
		`{"error": "no plant is visible in this photo"}`,
		"I can't see a plant. {}",
	} {
		answer := Interpret[Identification](raw)

		assert.False(t, answer.OK(), "raw %q", raw)
		assert.Nil(t, answer.Parsed, "raw %q", raw)
		assert.Equal(t, raw, answer.Raw)
	}
}

func TestInterpret_DiagnosisWithoutProblemFallsBack(t *testing.T) {
	for _, raw := range []string{
		"null",
		`{"error": "the leaves are not visible"}`,
		`{"problem": "  ", "severity": "low"}`,
	} {
		answer := Interpret[Diagnosis](raw)

		assert.False(t, answer.OK(), "raw %q", raw)
		assert.Equal(t, raw, answer.Raw)
	}
}

func TestPromptFor(t *testing.T) {
	assert.Equal(t, IdentifyPrompt, PromptFor(ModeIdentify, ""))
	assert.Equal(t, IdentifyPrompt, PromptFor("unknown", "  "))

	text := PromptFor(ModeDiagnose, "yellow leaves at the base")
	assert.Contains(t, text, DiagnosePrompt)
	assert.Contains(t, text, "yellow leaves at the base")
}

func TestParseMode(t *testing.T) {
	mode, ok := ParseMode("")
	assert.True(t, ok)
	assert.Equal(t, ModeIdentify, mode)

	mode, ok = ParseMode(" Diagnose ")
	assert.True(t, ok)
	assert.Equal(t, ModeDiagnose, mode)

	_, ok = ParseMode("prune")
	assert.False(t, ok)
}

func TestEncodeImage(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")

	encoded, mimeType, err := EncodeImage(png, "")
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.Equal(t, png, decoded)

	_, mimeType, err = EncodeImage(png, "image/webp")
	require.NoError(t, err)
	assert.Equal(t, "image/webp", mimeType)

	_, _, err = EncodeImage(nil, "")
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestDataURIRoundTrip(t *testing.T) {
	uri := DataURI("image/jpeg", "QUJD")
	assert.Equal(t, "data:image/jpeg;base64,QUJD", uri)

	mimeType, payload := SplitDataURI(uri)
	assert.Equal(t, "image/jpeg", mimeType)
	assert.Equal(t, "QUJD", payload)

	mimeType, payload = SplitDataURI("QUJD")
	assert.Empty(t, mimeType)
	assert.Equal(t, "QUJD", payload)
}
