package proto

import "fmt"

// Namespaces used on the wire. These must match the receiver exactly.
const (
	SOAPNamespace  = "http://schemas.xmlsoap.org/soap/envelope/"
	SiLANamespace  = "http://sila.coop"
	XMLNSNamespace = "http://www.w3.org/2000/xmlns/"
	XSINamespace   = "http://www.w3.org/2001/XMLSchema-instance"
	XSDNamespace   = "http://www.w3.org/2001/XMLSchema"
)

const (
	// ContentType is the SOAP 1.1 request and response content type.
	ContentType = "text/xml; charset=utf-8"

	// ServiceType is the mDNS service advertised by event receivers.
	ServiceType = "_sila-events._tcp"

	soapPrefix = "soap"
)

// SOAPAction returns the quoted SOAPAction header value for a SiLA operation.
func SOAPAction(action string) string {
	return fmt.Sprintf("%q", SiLANamespace+"/"+action)
}
