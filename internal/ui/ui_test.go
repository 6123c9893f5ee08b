package ui

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/lightify/internal/store"
)

var (
	testLights = []store.Light{
		{Address: 0x84182600000B2C1D, Name: "Desk", On: true, Luminance: 40, Temperature: 2700},
		{Address: 0x84182600000B2C1E, Name: "Shelf"},
	}
	testGroups = []store.Group{
		{ID: 3, Name: "Office", Members: []uint64{0x84182600000B2C1D, 0x84182600000B2C1E}},
		{ID: 4, Name: "Hall"},
	}
)

func TestRenderTables(t *testing.T) {
	groups := RenderGroups(testGroups, testLights, 80)
	assert.Contains(t, groups, "Office")
	assert.Contains(t, groups, "Hall")
	assert.Contains(t, groups, "on")

	lights := RenderLights(testLights, 80)
	assert.Contains(t, lights, "84:18:26:00:00:0b:2c:1d")
	assert.Contains(t, lights, "Desk")
	assert.Contains(t, lights, "40%")
	assert.Contains(t, lights, "2700K")
}

func TestHeaderKeepsParamOrder(t *testing.T) {
	out := NewHeader("lights", "lightify lights",
		Param{Key: "Bridge", Value: "home"},
		Param{Key: "Address", Value: "10.0.0.2:4000"},
	).SetWidth(70).Render()

	assert.Contains(t, out, "LIGHTS")
	assert.Less(t, strings.Index(out, "Bridge"), strings.Index(out, "Address"))
}

func TestResultBoxes(t *testing.T) {
	ok := NewSuccessResult("Desk switched on", Param{Key: "Target", Value: "light:1"}).SetWidth(70).Render()
	assert.Contains(t, ok, "SUCCESS")
	assert.Contains(t, ok, "Desk switched on")

	failed := NewFailureResult("Request failed", errors.New("timed out"), "Check the bridge is reachable").SetWidth(70).Render()
	assert.Contains(t, failed, "FAILED")
	assert.Contains(t, failed, "timed out")
	assert.Contains(t, failed, "Troubleshooting")
}

func TestPrinterJSON(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.JSON = true

	p.PrintHeader("lights", "lightify lights")
	require.NoError(t, p.PrintLights(testLights))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "84:18:26:00:00:0b:2c:1d", decoded[0]["address"])
	assert.Equal(t, "Desk", decoded[0]["name"])
}

func TestPrinterStyled(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf).SetWidth(80)

	require.NoError(t, p.PrintGroups(testGroups, testLights))
	require.NoError(t, p.PrintLight("Light status", testLights[0]))

	out := buf.String()
	assert.Contains(t, out, "Office")
	assert.Contains(t, out, "Light status")
	assert.Contains(t, out, "Temperature")
}
