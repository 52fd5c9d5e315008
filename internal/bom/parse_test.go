package bom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randunun/bom-pricer/internal/model"
)

func TestParseLine_ESC(t *testing.T) {
	l := ParseLine("30A ESC x2")
	assert.Equal(t, model.TypeESC, l.Type)
	assert.Equal(t, 2, l.Quantity)
	assert.Equal(t, "ESC:30A", l.SpecKey)
	require.NotNil(t, l.Specs.CurrentA)
	assert.Equal(t, 30, *l.Specs.CurrentA)
	assert.Equal(t, "30A ESC X2", l.Raw)
}

func TestParseLine_Battery(t *testing.T) {
	l := ParseLine("3S 1500mAh LiPo x4")
	assert.Equal(t, model.TypeBattery, l.Type)
	assert.Equal(t, 4, l.Quantity)
	assert.Equal(t, "BATTERY:3S:1500MAH", l.SpecKey)
}

func TestParseLine_Motor(t *testing.T) {
	l := ParseLine("2300KV brushless motor")
	assert.Equal(t, model.TypeMotor, l.Type)
	assert.Equal(t, "MOTOR:2300KV", l.SpecKey)
}

func TestParseLine_PropellerByDimension(t *testing.T) {
	// No "prop" keyword; the NxN dimension pattern classifies it.
	l := ParseLine("5x4.5 CW blades")
	assert.Equal(t, model.TypePropeller, l.Type)
	assert.Equal(t, "PROP:UNKNOWN", l.SpecKey)
}

func TestParseLine_Servo(t *testing.T) {
	l := ParseLine("9g micro servo")
	assert.Equal(t, model.TypeServo, l.Type)
	assert.Equal(t, "SERVO:UNKNOWN", l.SpecKey)
}

func TestParseLine_ClassifyPriority(t *testing.T) {
	// "ESC" wins over "MOTOR" when both appear.
	l := ParseLine("30A ESC for brushless motor")
	assert.Equal(t, model.TypeESC, l.Type)
}

func TestParseLine_Unrecognized(t *testing.T) {
	l := ParseLine("mystery widget")
	assert.False(t, l.Recognized())
	assert.Empty(t, l.SpecKey)
	assert.Equal(t, 1, l.Quantity)
}

func TestParse_SkipsBlankLines(t *testing.T) {
	lines, truncated := Parse("30A ESC x2\n\n   \n40A ESC x1\n", 0)
	require.Len(t, lines, 2)
	assert.False(t, truncated)
	assert.Equal(t, "ESC:30A", lines[0].SpecKey)
	assert.Equal(t, "ESC:40A", lines[1].SpecKey)
}

func TestParse_Truncation(t *testing.T) {
	text := strings.Repeat("30A ESC\n", 10)
	lines, truncated := Parse(text, 3)
	assert.Len(t, lines, 3)
	assert.True(t, truncated)
}

func TestParse_OrderPreserved(t *testing.T) {
	lines, _ := Parse("40A ESC\nunknown thing\n30A ESC", 0)
	require.Len(t, lines, 3)
	assert.Equal(t, "ESC:40A", lines[0].SpecKey)
	assert.False(t, lines[1].Recognized())
	assert.Equal(t, "ESC:30A", lines[2].SpecKey)
}
