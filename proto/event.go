package proto

import (
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/beevik/etree"
)

const (
	ActionResponseEvent = "ResponseEvent"
	ActionDataEvent     = "DataEvent"
	ActionErrorEvent    = "ErrorEvent"
	ActionStatusEvent   = "StatusEvent"
)

var ErrUnknownEvent = errors.New("unknown event")

// Event is one of the four EventReceiver payloads.
type Event interface {
	// Action is the SiLA operation name, which is also the root tag.
	Action() string
	Element() *etree.Element
	Validate() error
}

type ResponseEvent struct {
	RequestID    int          `json:"requestId"`
	ReturnValue  *ReturnValue `json:"returnValue,omitempty"`
	ResponseData *string      `json:"responseData,omitempty"`
}

type DataEvent struct {
	RequestID int     `json:"requestId"`
	DataValue *string `json:"dataValue,omitempty"`
}

type ErrorEvent struct {
	RequestID        int          `json:"requestId"`
	ReturnValue      *ReturnValue `json:"returnValue,omitempty"`
	ContinuationTask *string      `json:"continuationTask,omitempty"`
}

type StatusEvent struct {
	DeviceID         *string      `json:"deviceId,omitempty"`
	ReturnValue      *ReturnValue `json:"returnValue,omitempty"`
	EventDescription *string      `json:"eventDescription,omitempty"`
}

func (e ResponseEvent) Action() string { return ActionResponseEvent }
func (e DataEvent) Action() string     { return ActionDataEvent }
func (e ErrorEvent) Action() string    { return ActionErrorEvent }
func (e StatusEvent) Action() string   { return ActionStatusEvent }

func (e ResponseEvent) Element() *etree.Element {
	root := newSiLAElement(ActionResponseEvent)
	root.CreateElement("requestId").SetText(strconv.Itoa(e.RequestID))
	if e.ReturnValue != nil {
		appendSiLA(root, e.ReturnValue.Element(DefaultReturnValueTag))
	}
	if e.ResponseData != nil {
		root.CreateElement("responseData").SetText(*e.ResponseData)
	}
	return root
}

func (e DataEvent) Element() *etree.Element {
	root := newSiLAElement(ActionDataEvent)
	root.CreateElement("requestId").SetText(strconv.Itoa(e.RequestID))
	if e.DataValue != nil {
		root.CreateElement("dataValue").SetText(*e.DataValue)
	}
	return root
}

func (e ErrorEvent) Element() *etree.Element {
	root := newSiLAElement(ActionErrorEvent)
	root.CreateElement("requestId").SetText(strconv.Itoa(e.RequestID))
	if e.ReturnValue != nil {
		appendSiLA(root, e.ReturnValue.Element(DefaultReturnValueTag))
	}
	if e.ContinuationTask != nil {
		root.CreateElement("continuationTask").SetText(*e.ContinuationTask)
	}
	return root
}

// Element for StatusEvent also declares xmlns:i for the XSI namespace; every
// child is optional.
func (e StatusEvent) Element() *etree.Element {
	root := newSiLAElement(ActionStatusEvent)
	root.CreateAttr("xmlns:i", XSINamespace)
	if e.DeviceID != nil {
		root.CreateElement("deviceId").SetText(*e.DeviceID)
	}
	if e.ReturnValue != nil {
		appendSiLA(root, e.ReturnValue.Element(DefaultReturnValueTag))
	}
	if e.EventDescription != nil {
		root.CreateElement("eventDescription").SetText(*e.EventDescription)
	}
	return root
}

func (e ResponseEvent) Validate() error {
	return validate(e.ReturnValue, field{"responseData", e.ResponseData})
}

func (e DataEvent) Validate() error {
	return validate(nil, field{"dataValue", e.DataValue})
}

func (e ErrorEvent) Validate() error {
	return validate(e.ReturnValue, field{"continuationTask", e.ContinuationTask})
}

func (e StatusEvent) Validate() error {
	return validate(e.ReturnValue, field{"deviceId", e.DeviceID}, field{"eventDescription", e.EventDescription})
}

type field struct {
	name  string
	value *string
}

func validate(rv *ReturnValue, fields ...field) error {
	if rv != nil {
		if err := rv.Validate(); err != nil {
			return fmt.Errorf("returnValue.%w", err)
		}
	}
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		if err := checkText(*f.value); err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
	}
	return nil
}

// checkText rejects strings that cannot be carried in an XML 1.0 document.
func checkText(s string) error {
	if !utf8.ValidString(s) {
		return errors.New("text is not valid UTF-8")
	}
	for i, r := range s {
		if !isXMLChar(r) {
			return fmt.Errorf("character %U at offset %d is not allowed in XML", r, i)
		}
	}
	return nil
}

func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}

func newSiLAElement(tag string) *etree.Element {
	el := etree.NewElement(tag)
	el.CreateAttr("xmlns", SiLANamespace)
	return el
}

// appendSiLA adds child to parent, dropping the child's default namespace
// declaration because the parent already carries it.
func appendSiLA(parent, child *etree.Element) {
	if child.SelectAttrValue("xmlns", "") == SiLANamespace {
		child.RemoveAttr("xmlns")
	}
	parent.AddChild(child)
}

// ParseEvent decodes a SOAP envelope carrying one of the four events.
func ParseEvent(data []byte) (Event, error) {
	payload, err := ParseEnvelope(data)
	if err != nil {
		return nil, err
	}
	return EventFromElement(payload)
}

func EventFromElement(el *etree.Element) (Event, error) {
	if ns := el.NamespaceURI(); ns != SiLANamespace {
		return nil, fmt.Errorf("%w: %s in namespace %q", ErrUnknownEvent, el.Tag, ns)
	}
	switch el.Tag {
	case ActionResponseEvent:
		var ev ResponseEvent
		err := eachChild(el, func(child *etree.Element) (err error) {
			switch child.Tag {
			case "requestId":
				ev.RequestID, err = parseRequestID(child)
			case "returnValue":
				ev.ReturnValue, err = parseReturnValuePtr(child)
			case "responseData":
				ev.ResponseData = String(child.Text())
			}
			return err
		}, "requestId")
		return result(ev, err)
	case ActionDataEvent:
		var ev DataEvent
		err := eachChild(el, func(child *etree.Element) (err error) {
			switch child.Tag {
			case "requestId":
				ev.RequestID, err = parseRequestID(child)
			case "dataValue":
				ev.DataValue = String(child.Text())
			}
			return err
		}, "requestId")
		return result(ev, err)
	case ActionErrorEvent:
		var ev ErrorEvent
		err := eachChild(el, func(child *etree.Element) (err error) {
			switch child.Tag {
			case "requestId":
				ev.RequestID, err = parseRequestID(child)
			case "returnValue":
				ev.ReturnValue, err = parseReturnValuePtr(child)
			case "continuationTask":
				ev.ContinuationTask = String(child.Text())
			}
			return err
		}, "requestId")
		return result(ev, err)
	case ActionStatusEvent:
		var ev StatusEvent
		err := eachChild(el, func(child *etree.Element) (err error) {
			switch child.Tag {
			case "deviceId":
				ev.DeviceID = String(child.Text())
			case "returnValue":
				ev.ReturnValue, err = parseReturnValuePtr(child)
			case "eventDescription":
				ev.EventDescription = String(child.Text())
			}
			return err
		})
		return result(ev, err)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, el.Tag)
	}
}

func eachChild(el *etree.Element, fn func(*etree.Element) error, required ...string) error {
	seen := make(map[string]bool)
	for _, child := range el.ChildElements() {
		seen[child.Tag] = true
		if err := fn(child); err != nil {
			return fmt.Errorf("%s: %w", el.Tag, err)
		}
	}
	for _, tag := range required {
		if !seen[tag] {
			return fmt.Errorf("%s: missing %s", el.Tag, tag)
		}
	}
	return nil
}

func parseRequestID(el *etree.Element) (int, error) {
	id, err := strconv.Atoi(el.Text())
	if err != nil {
		return 0, fmt.Errorf("invalid requestId %q: %w", el.Text(), err)
	}
	return id, nil
}

func parseReturnValuePtr(el *etree.Element) (*ReturnValue, error) {
	rv, err := parseReturnValue(el)
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

func result(ev Event, err error) (Event, error) {
	if err != nil {
		return nil, err
	}
	return ev, nil
}
