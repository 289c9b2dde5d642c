package proto

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/beevik/etree"
)

const (
	DefaultDeviceClass    = 30
	DefaultReturnValueTag = "returnValue"
)

// ReturnValue is a SiLA result code with an optional message and duration.
type ReturnValue struct {
	ReturnCode  int     `json:"returnCode"`
	Message     *string `json:"message,omitempty"`
	Duration    *string `json:"duration,omitempty"` // xs:duration, see FormatDuration
	DeviceClass int     `json:"deviceClass"`
}

func NewReturnValue(code int) ReturnValue {
	return ReturnValue{ReturnCode: code, DeviceClass: DefaultDeviceClass}
}

func (rv ReturnValue) WithMessage(msg string) ReturnValue {
	rv.Message = &msg
	return rv
}

func (rv ReturnValue) WithDuration(duration string) ReturnValue {
	rv.Duration = &duration
	return rv
}

func (rv ReturnValue) WithDeviceClass(class int) ReturnValue {
	rv.DeviceClass = class
	return rv
}

// Validate reports text fields that cannot be carried in XML.
func (rv ReturnValue) Validate() error {
	if rv.Message != nil {
		if err := checkText(*rv.Message); err != nil {
			return fmt.Errorf("message: %w", err)
		}
	}
	if rv.Duration != nil {
		if err := checkText(*rv.Duration); err != nil {
			return fmt.Errorf("duration: %w", err)
		}
	}
	return nil
}

// Element renders the return value as a SiLA element named tag
// (DefaultReturnValueTag when tag is empty). Child order is fixed:
// returnCode, message, duration, deviceClass. DeviceClass is written as
// given; NewReturnValue sets the default.
func (rv ReturnValue) Element(tag string) *etree.Element {
	if tag == "" {
		tag = DefaultReturnValueTag
	}
	el := newSiLAElement(tag)
	el.CreateElement("returnCode").SetText(strconv.Itoa(rv.ReturnCode))
	if rv.Message != nil {
		el.CreateElement("message").SetText(*rv.Message)
	}
	if rv.Duration != nil {
		el.CreateElement("duration").SetText(*rv.Duration)
	}
	el.CreateElement("deviceClass").SetText(strconv.Itoa(rv.DeviceClass))
	return el
}

// XML renders Element(tag) as a standalone XML fragment.
func (rv ReturnValue) XML(tag string) (string, error) {
	doc := etree.NewDocument()
	doc.SetRoot(rv.Element(tag))
	return doc.WriteToString()
}

func parseReturnValue(el *etree.Element) (ReturnValue, error) {
	rv := ReturnValue{DeviceClass: DefaultDeviceClass}
	var sawCode bool
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "returnCode":
			code, err := strconv.Atoi(child.Text())
			if err != nil {
				return rv, fmt.Errorf("invalid returnCode %q: %w", child.Text(), err)
			}
			rv.ReturnCode = code
			sawCode = true
		case "message":
			rv.Message = String(child.Text())
		case "duration":
			rv.Duration = String(child.Text())
		case "deviceClass":
			class, err := strconv.Atoi(child.Text())
			if err != nil {
				return rv, fmt.Errorf("invalid deviceClass %q: %w", child.Text(), err)
			}
			rv.DeviceClass = class
		}
	}
	if !sawCode {
		return rv, errors.New("returnValue is missing returnCode")
	}
	return rv, nil
}

// String returns a pointer to s, for optional fields.
func String(s string) *string {
	return &s
}
