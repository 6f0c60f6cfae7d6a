package recognition

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/leofalp/plantcare/core/parse"
)

// Identification is the answer shape requested by IdentifyPrompt.
type Identification struct {
	Name           string      `json:"name"`
	ScientificName string      `json:"scientific_name,omitempty"`
	Family         string      `json:"family,omitempty"`
	Confidence     float64     `json:"confidence,omitempty"`
	Description    string      `json:"description,omitempty"`
	Care           CareSummary `json:"care"`
}

// CareSummary is the short care sheet embedded in an Identification.
type CareSummary struct {
	Water       string `json:"water,omitempty"`
	Light       string `json:"light,omitempty"`
	Soil        string `json:"soil,omitempty"`
	Temperature string `json:"temperature,omitempty"`
	Humidity    string `json:"humidity,omitempty"`
}

// Diagnosis is the answer shape requested by DiagnosePrompt.
type Diagnosis struct {
	Problem    string   `json:"problem"`
	Severity   string   `json:"severity,omitempty"`
	Causes     []string `json:"causes,omitempty"`
	Treatment  []string `json:"treatment,omitempty"`
	Prevention []string `json:"prevention,omitempty"`
}

// Valid reports whether the reply named a plant.
func (i Identification) Valid() bool {
	return strings.TrimSpace(i.Name) != ""
}

// Valid reports whether the reply named a problem.
func (d Diagnosis) Valid() bool {
	return strings.TrimSpace(d.Problem) != ""
}

// Answer is a model reply: always the raw text, plus the decoded value when
// the text held one.
type Answer[T any] struct {
	Raw    string
	Parsed *T
}

// OK reports whether the reply decoded.
func (a Answer[T]) OK() bool {
	return a.Parsed != nil
}

// Interpret decodes raw into T. On failure Parsed stays nil and the caller
// shows Raw as a plain-text answer. A T with a Valid method must also report
// itself valid, so refusals and empty objects fall back too.
func Interpret[T any](raw string) Answer[T] {
	answer := Answer[T]{Raw: raw}
	value, err := parse.JSONAs[T](raw)
	if err != nil {
		return answer
	}
	if v, ok := any(value).(interface{ Valid() bool }); ok && !v.Valid() {
		return answer
	}
	answer.Parsed = &value
	return answer
}

// ErrEmptyImage is returned for a zero-length image.
var ErrEmptyImage = errors.New("image is empty")

// EncodeImage returns the base64 form of data and its MIME type. An empty
// mimeType is sniffed from the bytes.
func EncodeImage(data []byte, mimeType string) (string, string, error) {
	if len(data) == 0 {
		return "", "", ErrEmptyImage
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return base64.StdEncoding.EncodeToString(data), mimeType, nil
}

// DataURI formats base64 image data as a data URI.
func DataURI(mimeType, base64Data string) string {
	return "data:" + mimeType + ";base64," + base64Data
}

// SplitDataURI accepts either a data URI or bare base64 and returns the MIME
// type (empty when unknown) and the base64 payload.
func SplitDataURI(s string) (string, string) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return "", s
	}
	header, payload, found := strings.Cut(s[len("data:"):], ",")
	if !found {
		return "", s
	}
	mimeType, _, _ := strings.Cut(header, ";")
	return mimeType, payload
}
