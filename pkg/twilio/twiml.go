package twilio

import (
	"encoding/xml"
	"fmt"
	"net/http"
)

// TwiML verbs. Field order inside Response and Gather matters: encoding/xml
// emits elements in declaration order, and Twilio executes them in document
// order.

type Say struct {
	XMLName  xml.Name `xml:"Say"`
	Voice    string   `xml:"voice,attr,omitempty"`
	Language string   `xml:"language,attr,omitempty"`
	Text     string   `xml:",chardata"`
}

type Play struct {
	XMLName xml.Name `xml:"Play"`
	URL     string   `xml:",chardata"`
}

type Gather struct {
	XMLName       xml.Name `xml:"Gather"`
	Input         string   `xml:"input,attr"`
	Action        string   `xml:"action,attr"`
	Method        string   `xml:"method,attr"`
	Timeout       int      `xml:"timeout,attr,omitempty"`
	SpeechTimeout string   `xml:"speechTimeout,attr,omitempty"`
	Language      string   `xml:"language,attr,omitempty"`

	Play *Play
	Say  *Say
}

type Hangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

type Response struct {
	XMLName xml.Name `xml:"Response"`

	Gather *Gather
	Play   *Play
	Say    *Say
	Hangup *Hangup
}

// GatherSpeech wraps a prompt in a speech Gather posting the transcript to
// action. Either audioURL (Play) or say is used, Play taking precedence.
func GatherSpeech(action, languageCode, audioURL string, say *Say) *Response {
	gather := &Gather{
		Input:         "speech",
		Action:        action,
		Method:        http.MethodPost,
		Timeout:       10,
		SpeechTimeout: "auto",
		Language:      languageCode,
	}
	if audioURL != "" {
		gather.Play = &Play{URL: audioURL}
	} else {
		gather.Say = say
	}
	return &Response{Gather: gather}
}

// Farewell speaks or plays a final prompt and hangs up.
func Farewell(audioURL string, say *Say) *Response {
	resp := &Response{Hangup: &Hangup{}}
	if audioURL != "" {
		resp.Play = &Play{URL: audioURL}
	} else {
		resp.Say = say
	}
	return resp
}

// Render serializes the response with the XML declaration Twilio expects.
func (r *Response) Render() ([]byte, error) {
	body, err := xml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("twilio: marshal twiml: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}
