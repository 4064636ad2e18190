package twilio

import (
	"strings"
	"testing"
)

func TestGatherSpeechWithSay(t *testing.T) {
	t.Parallel()

	resp := GatherSpeech("/process-response?agent_type=PIZZA", "en-US", "", &Say{
		Voice:    "Polly.Joanna-Neural",
		Language: "en-US",
		Text:     "What would you like to order?",
	})

	body, err := resp.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	got := string(body)

	for _, want := range []string{
		`<Gather input="speech"`,
		`action="/process-response?agent_type=PIZZA"`,
		`method="POST"`,
		`timeout="10"`,
		`speechTimeout="auto"`,
		`language="en-US"`,
		`<Say voice="Polly.Joanna-Neural" language="en-US">What would you like to order?</Say>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("twiml missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "<Play>") {
		t.Errorf("twiml should not carry a Play verb:\n%s", got)
	}
}

func TestGatherSpeechPrefersPlay(t *testing.T) {
	t.Parallel()

	resp := GatherSpeech("/process-response", "ta-IN", "https://example.com/audio/abc.mp3", &Say{Text: "fallback"})
	body, err := resp.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	got := string(body)

	if !strings.Contains(got, "<Play>https://example.com/audio/abc.mp3</Play>") {
		t.Errorf("twiml missing Play verb:\n%s", got)
	}
	if strings.Contains(got, "<Say") {
		t.Errorf("Play must take precedence over Say:\n%s", got)
	}
}

func TestFarewellHangsUp(t *testing.T) {
	t.Parallel()

	resp := Farewell("", &Say{Text: "Goodbye."})
	body, err := resp.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	got := string(body)

	if !strings.Contains(got, "<Say>Goodbye.</Say>") {
		t.Errorf("twiml missing Say:\n%s", got)
	}
	if !strings.Contains(got, "<Hangup></Hangup>") {
		t.Errorf("twiml missing Hangup:\n%s", got)
	}
	if idx := strings.Index(got, "<Say>"); idx > strings.Index(got, "<Hangup>") {
		t.Errorf("Say must precede Hangup:\n%s", got)
	}
}

func TestRenderIncludesXMLHeader(t *testing.T) {
	t.Parallel()

	body, err := Farewell("https://example.com/a.mp3", nil).Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.HasPrefix(string(body), "<?xml version=") {
		t.Fatalf("twiml missing xml declaration:\n%s", body)
	}
}

func TestTextIsEscaped(t *testing.T) {
	t.Parallel()

	body, err := Farewell("", &Say{Text: `say "hi" & <bye>`}).Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	got := string(body)
	if strings.Contains(got, "<bye>") {
		t.Errorf("text must be escaped:\n%s", got)
	}
	if !strings.Contains(got, "&amp;") {
		t.Errorf("ampersand must be escaped:\n%s", got)
	}
}
