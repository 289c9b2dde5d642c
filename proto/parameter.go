package proto

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/beevik/etree"
)

type ParameterType string

const (
	TypeString  ParameterType = "String"
	TypeInt32   ParameterType = "Int32"
	TypeDouble  ParameterType = "Double"
	TypeBoolean ParameterType = "Boolean"
)

var ErrParameterNotFound = errors.New("parameter not found")

type Parameter struct {
	Name  string
	Type  ParameterType
	Value string
}

// ParameterSet is the ordered parameter list carried in responseData, e.g.
// the thermocycler answer to GetParameters.
type ParameterSet struct {
	Params []Parameter
}

func (ps *ParameterSet) Add(name string, typ ParameterType, value string) *ParameterSet {
	ps.Params = append(ps.Params, Parameter{Name: name, Type: typ, Value: value})
	return ps
}

func (ps *ParameterSet) AddString(name, value string) *ParameterSet {
	return ps.Add(name, TypeString, value)
}

func (ps *ParameterSet) AddInt(name string, value int) *ParameterSet {
	return ps.Add(name, TypeInt32, strconv.Itoa(value))
}

func (ps *ParameterSet) AddFloat(name string, value float64) *ParameterSet {
	return ps.Add(name, TypeDouble, strconv.FormatFloat(value, 'f', -1, 64))
}

func (ps *ParameterSet) AddBool(name string, value bool) *ParameterSet {
	return ps.Add(name, TypeBoolean, strconv.FormatBool(value))
}

func (ps *ParameterSet) Get(name string) (Parameter, bool) {
	for _, p := range ps.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

func (ps *ParameterSet) lookup(name string) (Parameter, error) {
	p, ok := ps.Get(name)
	if !ok {
		return p, fmt.Errorf("%w: %q", ErrParameterNotFound, name)
	}
	return p, nil
}

func (ps *ParameterSet) Text(name string) (string, error) {
	p, err := ps.lookup(name)
	return p.Value, err
}

func (ps *ParameterSet) Int(name string) (int, error) {
	p, err := ps.lookup(name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(p.Value)
	if err != nil {
		return 0, fmt.Errorf("parameter %q: %w", name, err)
	}
	return v, nil
}

func (ps *ParameterSet) Float(name string) (float64, error) {
	p, err := ps.lookup(name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(p.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("parameter %q: %w", name, err)
	}
	return v, nil
}

func (ps *ParameterSet) Bool(name string) (bool, error) {
	p, err := ps.lookup(name)
	if err != nil {
		return false, err
	}
	v, err := strconv.ParseBool(p.Value)
	if err != nil {
		return false, fmt.Errorf("parameter %q: %w", name, err)
	}
	return v, nil
}

// ResponseData renders the set as
// <ResponseData><ParameterSet><Parameter name="..."><Type>value</Type></Parameter>...
func (ps *ParameterSet) ResponseData() (string, error) {
	doc := etree.NewDocument()
	set := doc.CreateElement("ResponseData").CreateElement("ParameterSet")
	for _, p := range ps.Params {
		if p.Name == "" {
			return "", errors.New("parameter name is required")
		}
		if err := checkText(p.Value); err != nil {
			return "", fmt.Errorf("parameter %q: %w", p.Name, err)
		}
		param := set.CreateElement("Parameter")
		param.CreateAttr("name", p.Name)
		param.CreateElement(string(p.Type)).SetText(p.Value)
	}
	return doc.WriteToString()
}

// ParseParameterSet reads a ResponseData document. A bare ParameterSet root
// is accepted as well.
func ParseParameterSet(data string) (*ParameterSet, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(data); err != nil {
		return nil, fmt.Errorf("parse parameter set: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, errors.New("parse parameter set: empty document")
	}
	set := root
	if root.Tag == "ResponseData" {
		set = root.SelectElement("ParameterSet")
	}
	if set == nil || set.Tag != "ParameterSet" {
		return nil, fmt.Errorf("parse parameter set: unexpected root %q", root.Tag)
	}

	ps := &ParameterSet{}
	for _, param := range set.SelectElements("Parameter") {
		name := param.SelectAttrValue("name", "")
		if name == "" {
			return nil, errors.New("parse parameter set: parameter without name")
		}
		value := param.ChildElements()
		if len(value) != 1 {
			return nil, fmt.Errorf("parse parameter set: parameter %q has %d values", name, len(value))
		}
		ps.Add(name, ParameterType(value[0].Tag), value[0].Text())
	}
	return ps, nil
}
