package bom_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikkanikki/inventory-engine/bom"
)

func giftSetProcess() bom.Process {
	return bom.Process{
		Name: "gift_set_assembly",
		Inputs: []bom.Input{
			{Product: "Soap", Ratio: 1},
			{Product: "Shampoo", Ratio: 1},
			{Product: "Gift Box Cardboard", Ratio: 1},
		},
		Output:      "Gift Set",
		OutputRatio: 1,
	}
}

func TestRegistry_Lookup(t *testing.T) {
	registry, err := bom.New([]bom.Process{giftSetProcess()})
	require.NoError(t, err)

	process, ok := registry.Process("gift_set_assembly")
	assert.True(t, ok)
	assert.Equal(t, "Gift Set", process.Output)

	_, ok = registry.Process("unknown")
	assert.False(t, ok)
}

func TestRegistry_RejectsMalformedProcesses(t *testing.T) {
	cases := []struct {
		name    string
		process bom.Process
	}{
		{"empty name", bom.Process{Output: "X", OutputRatio: 1, Inputs: []bom.Input{{Product: "A", Ratio: 1}}}},
		{"no output", bom.Process{Name: "p", OutputRatio: 1, Inputs: []bom.Input{{Product: "A", Ratio: 1}}}},
		{"zero output ratio", bom.Process{Name: "p", Output: "X", Inputs: []bom.Input{{Product: "A", Ratio: 1}}}},
		{"no inputs", bom.Process{Name: "p", Output: "X", OutputRatio: 1}},
		{"zero input ratio", bom.Process{Name: "p", Output: "X", OutputRatio: 1, Inputs: []bom.Input{{Product: "A"}}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := bom.New([]bom.Process{c.process})
			assert.Error(t, err)
		})
	}
}

func TestRegistry_RejectsDuplicateNames(t *testing.T) {
	_, err := bom.New([]bom.Process{giftSetProcess(), giftSetProcess()})
	assert.Error(t, err)
}

func TestRegistry_ParseJSON(t *testing.T) {
	registry, err := bom.Parse([]byte(`{
		"processes": [
			{
				"name": "soap_wrapping",
				"inputs": [
					{"product": "Unwrapped Soap", "ratio": 1},
					{"product": "Wrapper", "ratio": 1}
				],
				"output_product": "Soap",
				"output_ratio": 1
			}
		]
	}`))
	require.NoError(t, err)

	process, ok := registry.Process("soap_wrapping")
	require.True(t, ok)
	assert.Len(t, process.Inputs, 2)
	assert.Equal(t, "Soap", process.Output)
}

func TestProcess_RequiredAndProduced(t *testing.T) {
	// GIVEN: A recipe with a fractional input ratio
	// WHEN: Running 10 units
	// THEN: Ratios multiply before truncation

	p := bom.Process{
		Name:        "labelling",
		Inputs:      []bom.Input{{Product: "Label Sheet", Ratio: 0.5}},
		Output:      "Labelled Bottle",
		OutputRatio: 1,
	}
	assert.Equal(t, int64(5), p.Required(p.Inputs[0], 10))
	assert.Equal(t, int64(10), p.Produced(10))
}

func TestProcess_ConsumesProduct(t *testing.T) {
	p := giftSetProcess()

	ratio, ok := p.ConsumesProduct("Soap")
	assert.True(t, ok)
	assert.Equal(t, 1.0, ratio)

	_, ok = p.ConsumesProduct("Gift Set")
	assert.False(t, ok)
}

func TestDefault_Parses(t *testing.T) {
	registry := bom.Default()
	process, ok := registry.Process("gift_set_assembly")
	require.True(t, ok)
	assert.Len(t, process.Inputs, 6)
}
