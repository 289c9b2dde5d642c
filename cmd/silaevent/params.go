package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/mbocsi/silaevents/proto"
)

// parseParams builds a parameter set from name[:type]=value arguments.
// The type defaults to String.
func parseParams(args []string) (*proto.ParameterSet, error) {
	ps := &proto.ParameterSet{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q: want name[:type]=value", arg)
		}
		name, typ, hasType := strings.Cut(key, ":")
		if name == "" {
			return nil, fmt.Errorf("invalid parameter %q: empty name", arg)
		}
		pt := proto.TypeString
		if hasType {
			var err error
			if pt, err = parameterType(typ); err != nil {
				return nil, fmt.Errorf("invalid parameter %q: %w", arg, err)
			}
		}
		ps.Add(name, pt, value)
	}
	if _, err := ps.ResponseData(); err != nil {
		return nil, err
	}
	return ps, nil
}

func parameterType(s string) (proto.ParameterType, error) {
	for _, pt := range []proto.ParameterType{
		proto.TypeString,
		proto.TypeInt32,
		proto.TypeDouble,
		proto.TypeBoolean,
	} {
		if strings.EqualFold(s, string(pt)) {
			return pt, nil
		}
	}
	return "", fmt.Errorf("unknown parameter type %q", s)
}

// normalizeDuration accepts either a Go duration ("1m30s") or an ISO 8601
// duration ("PT1M30S") and returns the ISO form.
func normalizeDuration(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return proto.FormatDuration(d), nil
	}
	if _, err := proto.ParseDuration(s); err != nil {
		return "", fmt.Errorf("invalid duration %q", s)
	}
	return s, nil
}
