package callxml

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAnswerDocumentBridgesToRoom(t *testing.T) {
	doc := BuildAnswerDocument("call-abc123", "sip.example.com")

	assert.Contains(t, doc, "sip:call-abc123@sip.example.com/")
	assert.Equal(t, 1, strings.Count(doc, "<Speak"))
	assert.Equal(t, 1, strings.Count(doc, "<Dial>"))

	// The greeting must come before the bridge instruction.
	assert.Less(t, strings.Index(doc, "<Speak"), strings.Index(doc, "<Dial>"))
	assert.NotContains(t, doc, "<Hangup")
}

func TestBuildAnswerDocumentIsWellFormed(t *testing.T) {
	doc := BuildAnswerDocumentWithGreeting("Hold the line.", "call-x", "lk.example.io")

	var parsed struct {
		XMLName xml.Name `xml:"Response"`
		Speak   struct {
			Voice string `xml:"voice,attr"`
			Text  string `xml:",chardata"`
		} `xml:"Speak"`
		Dial struct {
			Sip string `xml:"Sip"`
		} `xml:"Dial"`
	}
	require.NoError(t, xml.Unmarshal([]byte(doc), &parsed))

	assert.Equal(t, "Hold the line.", parsed.Speak.Text)
	assert.Equal(t, DefaultVoice, parsed.Speak.Voice)
	assert.Equal(t, "sip:call-x@lk.example.io/", parsed.Dial.Sip)
}

func TestBuildErrorDocumentHangsUp(t *testing.T) {
	doc := BuildErrorDocument()

	assert.Contains(t, doc, "<Speak")
	assert.Contains(t, doc, "<Hangup")
	assert.NotContains(t, doc, "<Dial>")
	assert.Less(t, strings.Index(doc, "<Speak"), strings.Index(doc, "<Hangup"))
}

func TestBuildTwiMLAnswerDocument(t *testing.T) {
	doc := BuildTwiMLAnswerDocument("Hello.", "call-tw1", "lk.example.io")

	assert.Contains(t, doc, "<Say>Hello.</Say>")
	assert.Contains(t, doc, "sip:call-tw1@lk.example.io/")
	assert.NotContains(t, doc, "<Speak")
}

func TestBuildTwiMLErrorDocument(t *testing.T) {
	doc := BuildTwiMLErrorDocument()

	assert.Contains(t, doc, "<Say>")
	assert.Contains(t, doc, "<Hangup")
}

func TestDocumentsStartWithXMLHeader(t *testing.T) {
	for _, doc := range []string{
		BuildAnswerDocument("call-a", "d.example.com"),
		BuildErrorDocument(),
		BuildTwiMLAnswerDocument("hi", "call-b", "d.example.com"),
	} {
		assert.True(t, strings.HasPrefix(doc, "<?xml"))
	}
}
