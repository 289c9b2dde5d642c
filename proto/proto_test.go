package proto

import (
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func childTags(el *etree.Element) []string {
	tags := []string{}
	for _, c := range el.ChildElements() {
		tags = append(tags, c.Tag)
	}
	return tags
}

func attrMap(el *etree.Element) map[string]string {
	m := make(map[string]string)
	for _, a := range el.Attr {
		m[a.FullKey()] = a.Value
	}
	return m
}

func assertSameElement(t *testing.T, want, got *etree.Element) {
	t.Helper()
	assert.Equal(t, want.Tag, got.Tag)
	assert.Equal(t, want.NamespaceURI(), got.NamespaceURI(), "namespace of %s", want.Tag)
	assert.Equal(t, want.Text(), got.Text(), "text of %s", want.Tag)
	assert.Equal(t, attrMap(want), attrMap(got), "attributes of %s", want.Tag)
	wantChildren, gotChildren := want.ChildElements(), got.ChildElements()
	require.Len(t, gotChildren, len(wantChildren), "children of %s", want.Tag)
	for i := range wantChildren {
		assertSameElement(t, wantChildren[i], gotChildren[i])
	}
}

func TestReturnValue_Element(t *testing.T) {
	tests := []struct {
		name string
		rv   ReturnValue
		tags []string
	}{
		{"code only", NewReturnValue(1), []string{"returnCode", "deviceClass"}},
		{"with message", NewReturnValue(1).WithMessage("ok"), []string{"returnCode", "message", "deviceClass"}},
		{"with duration", NewReturnValue(2).WithDuration("PT5S"), []string{"returnCode", "duration", "deviceClass"}},
		{"all fields", NewReturnValue(3).WithMessage("m").WithDuration("PT1M"), []string{"returnCode", "message", "duration", "deviceClass"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el := tt.rv.Element("")
			assert.Equal(t, DefaultReturnValueTag, el.Tag)
			assert.Equal(t, SiLANamespace, el.NamespaceURI())
			assert.Equal(t, tt.tags, childTags(el))
			for _, c := range el.ChildElements() {
				assert.Equal(t, SiLANamespace, c.NamespaceURI())
			}
		})
	}
}

func TestReturnValue_DefaultsAndCustomTag(t *testing.T) {
	el := NewReturnValue(4).Element("ResponseEventResult")
	assert.Equal(t, "ResponseEventResult", el.Tag)
	assert.Equal(t, "4", el.SelectElement("returnCode").Text())
	assert.Equal(t, "30", el.SelectElement("deviceClass").Text())

	el = NewReturnValue(1).WithDeviceClass(12).Element("")
	assert.Equal(t, "12", el.SelectElement("deviceClass").Text())
}

func TestReturnValue_ExplicitDeviceClassIsKept(t *testing.T) {
	xml, err := NewReturnValue(1).WithDeviceClass(0).XML("")
	require.NoError(t, err)
	assert.Equal(t, `<returnValue xmlns="http://sila.coop"><returnCode>1</returnCode><deviceClass>0</deviceClass></returnValue>`, xml)

	el := ReturnValue{ReturnCode: 2, DeviceClass: -5}.Element("")
	assert.Equal(t, "-5", el.SelectElement("deviceClass").Text())

	zero := NewReturnValue(1).WithDeviceClass(0)
	data, err := Envelope(ErrorEvent{RequestID: 1, ReturnValue: &zero}.Element())
	require.NoError(t, err)
	got, err := ParseEvent(data)
	require.NoError(t, err)
	assert.Equal(t, 0, got.(ErrorEvent).ReturnValue.DeviceClass)
}

func TestReturnValue_XML(t *testing.T) {
	xml, err := NewReturnValue(1).WithMessage("ok").XML("")
	require.NoError(t, err)
	assert.Equal(t, `<returnValue xmlns="http://sila.coop"><returnCode>1</returnCode><message>ok</message><deviceClass>30</deviceClass></returnValue>`, xml)
}

func TestReturnValue_EmptyMessageIsPresent(t *testing.T) {
	el := NewReturnValue(1).WithMessage("").Element("")
	assert.Equal(t, []string{"returnCode", "message", "deviceClass"}, childTags(el))
}

func TestResponseEvent_Element(t *testing.T) {
	rv := NewReturnValue(1).WithMessage("ok")
	el := ResponseEvent{RequestID: 1, ReturnValue: &rv, ResponseData: String("X")}.Element()

	assert.Equal(t, "ResponseEvent", el.Tag)
	assert.Equal(t, SiLANamespace, el.NamespaceURI())
	assert.Equal(t, []string{"requestId", "returnValue", "responseData"}, childTags(el))
	assert.Equal(t, "1", el.SelectElement("requestId").Text())
	assert.Equal(t, "X", el.SelectElement("responseData").Text())

	ret := el.SelectElement("returnValue")
	assert.Equal(t, []string{"returnCode", "message", "deviceClass"}, childTags(ret))
	assert.Equal(t, "1", ret.SelectElement("returnCode").Text())
	assert.Equal(t, "ok", ret.SelectElement("message").Text())
	assert.Equal(t, "30", ret.SelectElement("deviceClass").Text())
	assert.Nil(t, ret.SelectAttr("xmlns"), "nested returnValue should inherit the namespace")
	assert.Equal(t, SiLANamespace, ret.NamespaceURI())
}

func TestEvents_OptionalChildren(t *testing.T) {
	rv := NewReturnValue(3)
	tests := []struct {
		name   string
		event  Event
		action string
		tags   []string
	}{
		{"response minimal", ResponseEvent{RequestID: 7}, "ResponseEvent", []string{"requestId"}},
		{"data minimal", DataEvent{RequestID: 7}, "DataEvent", []string{"requestId"}},
		{"data full", DataEvent{RequestID: 7, DataValue: String("v")}, "DataEvent", []string{"requestId", "dataValue"}},
		{"error minimal", ErrorEvent{RequestID: 2}, "ErrorEvent", []string{"requestId"}},
		{"error full", ErrorEvent{RequestID: 2, ReturnValue: &rv, ContinuationTask: String("abort")}, "ErrorEvent", []string{"requestId", "returnValue", "continuationTask"}},
		{"status full", StatusEvent{DeviceID: String("tc-1"), ReturnValue: &rv, EventDescription: String("idle")}, "StatusEvent", []string{"deviceId", "returnValue", "eventDescription"}},
		{"status description only", StatusEvent{EventDescription: String("idle")}, "StatusEvent", []string{"eventDescription"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el := tt.event.Element()
			assert.Equal(t, tt.action, tt.event.Action())
			assert.Equal(t, tt.action, el.Tag)
			assert.Equal(t, tt.tags, childTags(el))
		})
	}
}

func TestStatusEvent_EmptyKeepsXSIDeclaration(t *testing.T) {
	el := StatusEvent{}.Element()
	assert.Empty(t, el.ChildElements())
	attr := el.SelectAttr("xmlns:i")
	require.NotNil(t, attr)
	assert.Equal(t, XSINamespace, attr.Value)
}

func TestEnvelope_Structure(t *testing.T) {
	payload := DataEvent{RequestID: 5, DataValue: String("<x>&</x>")}.Element()
	data, err := Envelope(payload)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), `<?xml version="1.0" encoding="utf-8"?>`))

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(data))
	root := doc.Root()
	assert.Equal(t, "Envelope", root.Tag)
	assert.Equal(t, SOAPNamespace, root.NamespaceURI())
	assert.Equal(t, XSINamespace, root.SelectAttrValue("xmlns:xsi", ""))
	assert.Equal(t, XSDNamespace, root.SelectAttrValue("xmlns:xsd", ""))
	require.Len(t, root.ChildElements(), 1)
	body := root.ChildElements()[0]
	assert.Equal(t, "Body", body.Tag)
	assert.Equal(t, SOAPNamespace, body.NamespaceURI())

	got, err := ParseEnvelope(data)
	require.NoError(t, err)
	assertSameElement(t, payload, got)
	assert.Nil(t, payload.Parent(), "Envelope must not re-parent the payload")
}

func TestEnvelope_Deterministic(t *testing.T) {
	payload := StatusEvent{DeviceID: String("dev")}.Element()
	a, err := Envelope(payload)
	require.NoError(t, err)
	b, err := Envelope(payload)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEnvelope_Nil(t *testing.T) {
	_, err := Envelope(nil)
	assert.Error(t, err)
}

func TestParseEnvelope_Invalid(t *testing.T) {
	tests := map[string]string{
		"not xml":        "this is not xml",
		"wrong root":     `<Envelope xmlns="urn:other"><Body><a/></Body></Envelope>`,
		"no body":        `<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"/>`,
		"empty body":     `<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body/></s:Envelope>`,
		"two body items": `<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body><a/><b/></s:Body></s:Envelope>`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseEnvelope([]byte(data))
			assert.ErrorIs(t, err, ErrInvalidEnvelope)
		})
	}
}

func TestParseEvent_RoundTrip(t *testing.T) {
	rv := NewReturnValue(1).WithMessage("ok").WithDuration("PT2S")
	events := []Event{
		ResponseEvent{RequestID: 1, ReturnValue: &rv, ResponseData: String("<ResponseData/>")},
		ResponseEvent{RequestID: 2},
		DataEvent{RequestID: -1},
		DataEvent{RequestID: 3, DataValue: String("42")},
		ErrorEvent{RequestID: 4, ReturnValue: &rv, ContinuationTask: String("retry")},
		StatusEvent{DeviceID: String("tc"), ReturnValue: &rv, EventDescription: String("done")},
		StatusEvent{},
	}
	for _, ev := range events {
		t.Run(ev.Action(), func(t *testing.T) {
			data, err := Envelope(ev.Element())
			require.NoError(t, err)
			got, err := ParseEvent(data)
			require.NoError(t, err)
			assert.Equal(t, ev, got)
		})
	}
}

func TestParseEvent_PrefixedPayload(t *testing.T) {
	data := `<?xml version="1.0"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" xmlns:sila="http://sila.coop">
  <s:Body>
    <sila:DataEvent><sila:requestId>9</sila:requestId><sila:dataValue>abc</sila:dataValue></sila:DataEvent>
  </s:Body>
</s:Envelope>`
	ev, err := ParseEvent([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, DataEvent{RequestID: 9, DataValue: String("abc")}, ev)
}

func TestParseEvent_Errors(t *testing.T) {
	unknown, err := Envelope(etree.NewElement("Ping"))
	require.NoError(t, err)
	_, err = ParseEvent(unknown)
	assert.ErrorIs(t, err, ErrUnknownEvent)

	missing, err := Envelope(newSiLAElement(ActionDataEvent))
	require.NoError(t, err)
	_, err = ParseEvent(missing)
	assert.ErrorContains(t, err, "missing requestId")

	bad := newSiLAElement(ActionErrorEvent)
	bad.CreateElement("requestId").SetText("one")
	badData, err := Envelope(bad)
	require.NoError(t, err)
	_, err = ParseEvent(badData)
	assert.ErrorContains(t, err, "invalid requestId")
}

func TestValidate(t *testing.T) {
	negativeClass := NewReturnValue(1).WithDeviceClass(-1)
	badMessage := NewReturnValue(1).WithMessage("bell\x07")
	badDuration := NewReturnValue(1).WithDuration("PT1S\x1b")

	assert.NoError(t, ResponseEvent{RequestID: 0, ResponseData: String("tab\tnewline\n")}.Validate())
	assert.NoError(t, ResponseEvent{RequestID: -1}.Validate())
	assert.NoError(t, DataEvent{RequestID: -42}.Validate())
	assert.NoError(t, ErrorEvent{RequestID: 1, ReturnValue: &negativeClass}.Validate())
	assert.Error(t, DataEvent{RequestID: 1, DataValue: String("nul\x00")}.Validate())
	assert.ErrorContains(t, ErrorEvent{RequestID: 1, ReturnValue: &badDuration}.Validate(), "returnValue.duration")
	assert.ErrorContains(t, StatusEvent{ReturnValue: &badMessage}.Validate(), "returnValue.message")
	assert.Error(t, StatusEvent{DeviceID: String(string([]byte{0xff}))}.Validate())
}

func TestSOAPAction(t *testing.T) {
	assert.Equal(t, `"http://sila.coop/ResponseEvent"`, SOAPAction(ActionResponseEvent))
	assert.Equal(t, `"http://sila.coop/StatusEvent"`, SOAPAction(ActionStatusEvent))
}

func TestFault(t *testing.T) {
	data, err := Envelope(Fault("Client", "bad request"))
	require.NoError(t, err)
	fault, err := ParseEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, "Fault", fault.Tag)
	assert.Equal(t, SOAPNamespace, fault.NamespaceURI())
	assert.Equal(t, "soap:Client", fault.SelectElement("faultcode").Text())
	assert.Equal(t, "bad request", fault.SelectElement("faultstring").Text())
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "PT0S"},
		{5 * time.Second, "PT5S"},
		{3500 * time.Millisecond, "PT3.5S"},
		{90 * time.Minute, "PT1H30M"},
		{time.Hour + 2*time.Minute + 3*time.Second, "PT1H2M3S"},
		{-2 * time.Minute, "-PT2M"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.d), tt.d.String())
	}
}

func TestParseDuration(t *testing.T) {
	tests := map[string]time.Duration{
		"PT0S":       0,
		"PT3.5S":     3500 * time.Millisecond,
		"PT1H30M":    90 * time.Minute,
		"P1DT1H":     25 * time.Hour,
		"P0DT0H0M5S": 5 * time.Second,
		"-PT2M":      -2 * time.Minute,
	}
	for s, want := range tests {
		got, err := ParseDuration(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, got, s)
	}

	for _, s := range []string{"", "P", "PT", "5S", "P1Y", "PT1D", "PTxS", "P1H"} {
		_, err := ParseDuration(s)
		assert.Error(t, err, s)
	}

	for _, d := range []time.Duration{0, time.Second, 61 * time.Minute, 1500 * time.Millisecond} {
		got, err := ParseDuration(FormatDuration(d))
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
}

func TestOperationResponse_RoundTrip(t *testing.T) {
	el := OperationResponse(ActionResponseEvent, NewReturnValue(1).WithMessage("Success"))
	assert.Equal(t, "ResponseEventResponse", el.Tag)
	assert.Equal(t, []string{"ResponseEventResult"}, childTags(el))
	assert.Equal(t, SiLANamespace, el.ChildElements()[0].NamespaceURI())

	data, err := Envelope(el)
	require.NoError(t, err)
	rv, err := ParseOperationResult(data)
	require.NoError(t, err)
	assert.Equal(t, NewReturnValue(1).WithMessage("Success"), rv)
}

func TestParseOperationResult_Fault(t *testing.T) {
	data, err := Envelope(Fault("Client", "unknown event"))
	require.NoError(t, err)
	_, err = ParseOperationResult(data)
	var fault *FaultError
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "soap:Client", fault.Code)
	assert.Equal(t, "unknown event", fault.Reason)
}

func TestParseOperationResult_NoResult(t *testing.T) {
	data, err := Envelope(newSiLAElement("Whatever"))
	require.NoError(t, err)
	_, err = ParseOperationResult(data)
	assert.ErrorIs(t, err, ErrInvalidEnvelope)
}
