package utils

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

const helloWorldStream = "data: {\"choices\":[{\"delta\":{\"content\":\"Hello\"}}]}\n" +
	": keep-alive\n" +
	"event: message\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\" world\"}}]}\r\n" +
	"\n" +
	"data: [DONE]\n"

var helloWorldPayloads = []string{
	`{"choices":[{"delta":{"content":"Hello"}}]}`,
	`{"choices":[{"delta":{"content":" world"}}]}`,
}

// decodeChunks feeds chunks in order and returns payloads up to the first Done.
func decodeChunks(t *testing.T, chunks []string) ([]string, bool) {
	t.Helper()
	decoder := NewDataLineDecoder(0)
	var payloads []string
	for _, chunk := range chunks {
		lines, err := decoder.Feed([]byte(chunk))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, line := range lines {
			if line.Done {
				return payloads, true
			}
			payloads = append(payloads, line.Payload)
		}
	}
	line, ok, err := decoder.Flush()
	if err != nil {
		t.Fatalf("unexpected flush error: %v", err)
	}
	if ok {
		if line.Done {
			return payloads, true
		}
		payloads = append(payloads, line.Payload)
	}
	return payloads, false
}

func assertPayloads(t *testing.T, got, expected []string) {
	t.Helper()
	if len(got) != len(expected) {
		t.Fatalf("expected %d payloads %q, got %d %q", len(expected), expected, len(got), got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("payload %d: expected %q, got %q", i, expected[i], got[i])
		}
	}
}

// TestDataLineDecoder_ChunkBoundaryInvariance splits the same stream at every
// byte offset and checks the decoded sequence never changes.
func TestDataLineDecoder_ChunkBoundaryInvariance(t *testing.T) {
	whole, done := decodeChunks(t, []string{helloWorldStream})
	if !done {
		t.Fatal("expected [DONE] to be seen")
	}
	assertPayloads(t, whole, helloWorldPayloads)

	for split := 1; split < len(helloWorldStream); split++ {
		got, done := decodeChunks(t, []string{helloWorldStream[:split], helloWorldStream[split:]})
		if !done {
			t.Fatalf("split at %d: expected [DONE]", split)
		}
		assertPayloads(t, got, helloWorldPayloads)
	}

	var perByte []string
	for _, r := range []byte(helloWorldStream) {
		perByte = append(perByte, string([]byte{r}))
	}
	got, _ := decodeChunks(t, perByte)
	assertPayloads(t, got, helloWorldPayloads)

	got, _ = decodeChunks(t, strings.SplitAfter(helloWorldStream, "\n"))
	assertPayloads(t, got, helloWorldPayloads)
}

// TestDataLineDecoder_StrictPrefix verifies that only "data: " with a space
// counts as a data line.
func TestDataLineDecoder_StrictPrefix(t *testing.T) {
	got, _ := decodeChunks(t, []string{"data:{\"x\":1}\nDATA: y\n data: z\ndata: kept\n"})
	assertPayloads(t, got, []string{"kept"})
}

// TestDataLineDecoder_FlushUnterminatedLine verifies a final line without a
// newline is still decoded at end of stream.
func TestDataLineDecoder_FlushUnterminatedLine(t *testing.T) {
	got, done := decodeChunks(t, []string{"data: first\ndata: last"})
	if done {
		t.Error("did not expect [DONE]")
	}
	assertPayloads(t, got, []string{"first", "last"})
}

// TestDataLineDecoder_LineTooLong verifies the pending buffer cap.
func TestDataLineDecoder_LineTooLong(t *testing.T) {
	decoder := NewDataLineDecoder(16)

	if _, err := decoder.Feed([]byte("data: 0123456789")); err != nil {
		t.Fatalf("unexpected error below the cap: %v", err)
	}
	_, err := decoder.Feed([]byte("abcdef"))
	if !errors.Is(err, ErrLineTooLong) {
		t.Fatalf("expected ErrLineTooLong, got %v", err)
	}
}

// TestDataLineDecoder_InvalidUTF8 verifies a complete line that is not text
// fails decoding.
func TestDataLineDecoder_InvalidUTF8(t *testing.T) {
	decoder := NewDataLineDecoder(0)
	lines, err := decoder.Feed([]byte("data: ok\ndata: \xff\xfe\n"))
	if !errors.Is(err, ErrInvalidText) {
		t.Fatalf("expected ErrInvalidText, got %v", err)
	}
	if len(lines) != 1 || lines[0].Payload != "ok" {
		t.Errorf("expected lines before the failure to be returned, got %+v", lines)
	}
}

// TestDataLineDecoder_MultiByteRuneAcrossChunks verifies a rune split across
// reads is not mistaken for invalid text.
func TestDataLineDecoder_MultiByteRuneAcrossChunks(t *testing.T) {
	stream := "data: felce 🌿\n"
	cut := strings.Index(stream, "🌿") + 2
	got, _ := decodeChunks(t, []string{stream[:cut], stream[cut:]})
	assertPayloads(t, got, []string{"felce 🌿"})
}

// ---- SSEScanner tests -------------------------------------------------------

// TestSSEScanner_OneByteReads verifies payloads and io.EOF at [DONE] when the
// reader hands out a single byte per Read.
func TestSSEScanner_OneByteReads(t *testing.T) {
	scanner := NewSSEScanner(iotest.OneByteReader(strings.NewReader(helloWorldStream + "data: after-done\n")))

	var got []string
	for {
		payload, err := scanner.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, payload)
	}
	assertPayloads(t, got, helloWorldPayloads)

	if _, err := scanner.Next(); err != io.EOF {
		t.Errorf("expected io.EOF to be sticky, got %v", err)
	}
}

// TestSSEScanner_EndWithoutDone verifies a body that ends without [DONE]
// terminates with io.EOF after its last line.
func TestSSEScanner_EndWithoutDone(t *testing.T) {
	scanner := NewSSEScanner(strings.NewReader("data: a\ndata: b"))

	for _, expected := range []string{"a", "b"} {
		payload, err := scanner.Next()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if payload != expected {
			t.Errorf("expected %q, got %q", expected, payload)
		}
	}
	if _, err := scanner.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

// TestSSEScanner_ReadErrorAfterData verifies lines read before a transport
// failure are delivered before the error.
func TestSSEScanner_ReadErrorAfterData(t *testing.T) {
	reader := io.MultiReader(strings.NewReader("data: partial\n"), iotest.ErrReader(errors.New("connection reset")))
	scanner := NewSSEScanner(reader)

	payload, err := scanner.Next()
	if err != nil || payload != "partial" {
		t.Fatalf("expected partial payload, got %q, %v", payload, err)
	}
	_, err = scanner.Next()
	if !errors.Is(err, ErrTransport) {
		t.Errorf("expected ErrTransport, got %v", err)
	}
}
