package proto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

var ErrInvalidEnvelope = errors.New("invalid SOAP envelope")

// Envelope wraps payload as the sole child of a SOAP 1.1 Body and returns the
// UTF-8 document with its XML declaration. Payload is copied, never moved.
func Envelope(payload *etree.Element) ([]byte, error) {
	if payload == nil {
		return nil, errors.New("envelope payload is nil")
	}
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	env := doc.CreateElement(soapPrefix + ":Envelope")
	env.CreateAttr("xmlns:"+soapPrefix, SOAPNamespace)
	env.CreateAttr("xmlns:xsi", XSINamespace)
	env.CreateAttr("xmlns:xsd", XSDNamespace)
	body := env.CreateElement(soapPrefix + ":Body")
	body.AddChild(payload.Copy())
	return doc.WriteToBytes()
}

// ParseEnvelope returns the single child of the envelope's Body. The element
// stays attached to the parsed document so inherited namespaces resolve.
func ParseEnvelope(data []byte) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "Envelope" || root.NamespaceURI() != SOAPNamespace {
		return nil, fmt.Errorf("%w: missing soap Envelope", ErrInvalidEnvelope)
	}
	var body *etree.Element
	for _, child := range root.ChildElements() {
		if child.Tag == "Body" && child.NamespaceURI() == SOAPNamespace {
			body = child
			break
		}
	}
	if body == nil {
		return nil, fmt.Errorf("%w: missing soap Body", ErrInvalidEnvelope)
	}
	children := body.ChildElements()
	if len(children) != 1 {
		return nil, fmt.Errorf("%w: Body has %d elements, want 1", ErrInvalidEnvelope, len(children))
	}
	return children[0], nil
}

// Fault builds a SOAP 1.1 Fault element. code is a local name such as
// "Client" or "Server" and gets the soap prefix.
func Fault(code, reason string) *etree.Element {
	fault := etree.NewElement(soapPrefix + ":Fault")
	fault.CreateElement("faultcode").SetText(soapPrefix + ":" + code)
	fault.CreateElement("faultstring").SetText(reason)
	return fault
}

// FaultError is a SOAP Fault found in a response body.
type FaultError struct {
	Code   string
	Reason string
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("soap fault %s: %s", e.Code, e.Reason)
}

// OperationResponse builds the <ActionResponse><ActionResult> reply a
// receiver sends for a SiLA operation.
func OperationResponse(action string, rv ReturnValue) *etree.Element {
	resp := newSiLAElement(action + "Response")
	appendSiLA(resp, rv.Element(action+"Result"))
	return resp
}

// ParseOperationResult decodes a receiver reply produced by OperationResponse.
// A Fault body is returned as *FaultError.
func ParseOperationResult(data []byte) (ReturnValue, error) {
	payload, err := ParseEnvelope(data)
	if err != nil {
		return ReturnValue{}, err
	}
	if payload.Tag == "Fault" && payload.NamespaceURI() == SOAPNamespace {
		fault := &FaultError{}
		if el := payload.SelectElement("faultcode"); el != nil {
			fault.Code = el.Text()
		}
		if el := payload.SelectElement("faultstring"); el != nil {
			fault.Reason = el.Text()
		}
		return ReturnValue{}, fault
	}
	for _, child := range payload.ChildElements() {
		if strings.HasSuffix(child.Tag, "Result") {
			return parseReturnValue(child)
		}
	}
	return ReturnValue{}, fmt.Errorf("%w: %s has no result element", ErrInvalidEnvelope, payload.Tag)
}
