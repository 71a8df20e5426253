// Package callxml builds the call-control documents returned to the
// telephony provider on the answer webhook. Both builders are deterministic
// and cannot fail; malformed input still yields a well-formed document.
package callxml

import (
	"encoding/xml"
	"fmt"
)

// DefaultVoice is the provider TTS voice used for the greeting.
const DefaultVoice = "WOMAN"

const errorText = "Sorry, we are experiencing technical difficulties. Please try again later."

type speakElement struct {
	XMLName xml.Name `xml:"Speak"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type sayElement struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type dialElement struct {
	XMLName xml.Name `xml:"Dial"`
	Sip     string   `xml:"Sip"`
}

type hangupElement struct {
	XMLName xml.Name `xml:"Hangup"`
}

// responseDocument field order matters: the greeting must precede the dial.
type responseDocument struct {
	XMLName xml.Name `xml:"Response"`
	Speak   *speakElement
	Say     *sayElement
	Dial    *dialElement
	Hangup  *hangupElement
}

// SipAddress builds the SIP URI the provider bridges call media to.
func SipAddress(roomName, sipDomain string) string {
	return fmt.Sprintf("sip:%s@%s/", roomName, sipDomain)
}

// BuildAnswerDocument returns the Plivo-dialect document that speaks the
// default greeting and bridges the call into the given room.
func BuildAnswerDocument(roomName, sipDomain string) string {
	return BuildAnswerDocumentWithGreeting(
		"Hello! Please hold while we connect you to our assistant.", roomName, sipDomain)
}

// BuildAnswerDocumentWithGreeting is BuildAnswerDocument with a custom greeting.
func BuildAnswerDocumentWithGreeting(greeting, roomName, sipDomain string) string {
	return render(&responseDocument{
		Speak: &speakElement{Voice: DefaultVoice, Text: greeting},
		Dial:  &dialElement{Sip: SipAddress(roomName, sipDomain)},
	})
}

// BuildErrorDocument returns the fallback document used when the answer
// handler cannot build a bridge response. The provider has no other recourse,
// so the caller hears an apology and the call ends cleanly.
func BuildErrorDocument() string {
	return render(&responseDocument{
		Speak:  &speakElement{Voice: DefaultVoice, Text: errorText},
		Hangup: &hangupElement{},
	})
}

// BuildTwiMLAnswerDocument is the TwiML equivalent of BuildAnswerDocument,
// used when the Twilio dialer is selected.
func BuildTwiMLAnswerDocument(greeting, roomName, sipDomain string) string {
	return render(&responseDocument{
		Say:  &sayElement{Text: greeting},
		Dial: &dialElement{Sip: SipAddress(roomName, sipDomain)},
	})
}

// BuildTwiMLErrorDocument is the TwiML equivalent of BuildErrorDocument.
func BuildTwiMLErrorDocument() string {
	return render(&responseDocument{
		Say:    &sayElement{Text: errorText},
		Hangup: &hangupElement{},
	})
}

func render(doc *responseDocument) string {
	body, err := xml.MarshalIndent(doc, "", "    ")
	if err != nil {
		// Unreachable for these types; keep the provider fed regardless.
		return xml.Header + "<Response><Hangup/></Response>"
	}
	return xml.Header + string(body)
}
