package proto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParameterSet_ResponseData(t *testing.T) {
	ps := &ParameterSet{}
	ps.AddString("Message", "Hello from Go client")
	data, err := ps.ResponseData()
	require.NoError(t, err)
	assert.Equal(t, `<ResponseData><ParameterSet><Parameter name="Message"><String>Hello from Go client</String></Parameter></ParameterSet></ResponseData>`, data)
}

func TestParameterSet_RoundTrip(t *testing.T) {
	ps := &ParameterSet{}
	ps.AddString("Name", "lid <hot>").
		AddInt("Cycles", 30).
		AddFloat("BlockTemperature", 95.5).
		AddBool("LidClosed", true)

	data, err := ps.ResponseData()
	require.NoError(t, err)

	got, err := ParseParameterSet(data)
	require.NoError(t, err)
	assert.Equal(t, ps.Params, got.Params)

	name, err := got.Text("Name")
	require.NoError(t, err)
	assert.Equal(t, "lid <hot>", name)

	cycles, err := got.Int("Cycles")
	require.NoError(t, err)
	assert.Equal(t, 30, cycles)

	temp, err := got.Float("BlockTemperature")
	require.NoError(t, err)
	assert.InDelta(t, 95.5, temp, 1e-9)

	closed, err := got.Bool("LidClosed")
	require.NoError(t, err)
	assert.True(t, closed)
}

func TestParameterSet_Accessors_Errors(t *testing.T) {
	ps := &ParameterSet{}
	ps.AddString("Mode", "fast")

	_, err := ps.Int("Missing")
	assert.ErrorIs(t, err, ErrParameterNotFound)
	_, err = ps.Text("Missing")
	assert.ErrorIs(t, err, ErrParameterNotFound)
	_, err = ps.Int("Mode")
	assert.Error(t, err)
	_, err = ps.Float("Mode")
	assert.Error(t, err)
	_, err = ps.Bool("Mode")
	assert.Error(t, err)

	p, ok := ps.Get("Mode")
	assert.True(t, ok)
	assert.Equal(t, TypeString, p.Type)
}

func TestParseParameterSet_BareRoot(t *testing.T) {
	ps, err := ParseParameterSet(`<ParameterSet><Parameter name="Steps"><Int32>4</Int32></Parameter></ParameterSet>`)
	require.NoError(t, err)
	steps, err := ps.Int("Steps")
	require.NoError(t, err)
	assert.Equal(t, 4, steps)
}

func TestParseParameterSet_Invalid(t *testing.T) {
	for name, data := range map[string]string{
		"not xml":    "<<<",
		"empty":      "",
		"wrong root": "<Other/>",
		"no set":     "<ResponseData/>",
		"no name":    `<ParameterSet><Parameter><String>x</String></Parameter></ParameterSet>`,
		"two values": `<ParameterSet><Parameter name="a"><String>x</String><String>y</String></Parameter></ParameterSet>`,
		"no value":   `<ParameterSet><Parameter name="a"/></ParameterSet>`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseParameterSet(data)
			assert.Error(t, err)
		})
	}
}

func TestParameterSet_ResponseData_Invalid(t *testing.T) {
	ps := &ParameterSet{}
	ps.AddString("", "x")
	_, err := ps.ResponseData()
	assert.Error(t, err)

	ps = &ParameterSet{}
	ps.AddString("a", "\x01")
	_, err = ps.ResponseData()
	assert.Error(t, err)
}
